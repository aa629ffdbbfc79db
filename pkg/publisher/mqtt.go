// Package publisher pushes fetched device records to an MQTT broker,
// one retained message per device, so downstream consumers (e.g. a
// home-automation MQTT device tracker) always see the latest state.
package publisher

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
	"github.com/jiesou/oppo-cloud-tracker/pkg/oppocloud"
)

const (
	defaultClientID    = "oppo-cloud-tracker"
	defaultTopicPrefix = "oppo-cloud-tracker"

	publishWait         = 5 * time.Second
	disconnectQuiesceMs = 1500
)

// Publisher holds one broker connection for the process lifetime.
type Publisher struct {
	client mqtt.Client
	prefix string
	log    *logging.Logger
}

// New prepares a publisher for the given broker. Connect must be
// called before Publish.
func New(brokerURL, clientID, topicPrefix string, log *logging.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()

	if clientID == "" {
		clientID = defaultClientID
	}
	opts.ClientID = clientID

	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("mqtt url parse: %w", err)
	}
	opts.Servers = []*url.URL{u}

	if log == nil {
		log = logging.NewDiscard()
	}

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Infof("connected to MQTT broker %s", brokerURL)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("MQTT connection lost: %v", err)
	})
	opts.SetAutoReconnect(true)

	if topicPrefix == "" {
		topicPrefix = defaultTopicPrefix
	}

	return &Publisher{
		client: mqtt.NewClient(opts),
		prefix: strings.TrimRight(topicPrefix, "/"),
		log:    log,
	}, nil
}

// Connect blocks until the broker accepts the connection or the
// timeout passes.
func (p *Publisher) Connect(timeout time.Duration) error {
	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt connect: timed out after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// devicePayload is the wire shape. Field names follow the conventions
// home-automation MQTT device trackers expect.
type devicePayload struct {
	Model        string   `json:"model"`
	LocationName string   `json:"location_name"`
	LastSeen     string   `json:"last_seen,omitempty"`
	IsOnline     bool     `json:"is_online"`
	BatteryLevel int      `json:"battery_level"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// Publish sends one retained message per device under
// <prefix>/<device-slug>/state.
func (p *Publisher) Publish(devices []oppocloud.Device) error {
	for _, d := range devices {
		payload, err := json.Marshal(devicePayload{
			Model:        d.Model,
			LocationName: d.LocationName,
			LastSeen:     d.LastSeen,
			IsOnline:     d.IsOnline,
			BatteryLevel: d.BatteryLevel,
			Latitude:     d.Latitude,
			Longitude:    d.Longitude,
		})
		if err != nil {
			return fmt.Errorf("marshal device %q: %w", d.Model, err)
		}

		topic := fmt.Sprintf("%s/%s/state", p.prefix, Slug(d.Model))
		token := p.client.Publish(topic, 1, true, payload)
		if !token.WaitTimeout(publishWait) {
			return fmt.Errorf("publish %s: timed out after %s", topic, publishWait)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		p.log.Debugf("published %s", topic)
	}
	return nil
}

// Close disconnects from the broker, letting in-flight messages drain.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesceMs)
}

// Slug turns a device model into a topic-safe identifier. Non-ASCII
// runes are dropped rather than transliterated; a model name that
// yields nothing becomes "device".
func Slug(model string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(model) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if slug == "" {
		return "device"
	}
	return slug
}
