package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
	"github.com/jiesou/oppo-cloud-tracker/pkg/oppocloud"
)

type stubToken struct {
	timedOut bool
	err      error
}

func (t *stubToken) Wait() bool { return true }

func (t *stubToken) WaitTimeout(time.Duration) bool { return !t.timedOut }

func (t *stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *stubToken) Error() error { return t.err }

type publishRecord struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// stubMQTTClient embeds the client interface and overrides Publish;
// anything else panics on use.
type stubMQTTClient struct {
	mqtt.Client
	token     *stubToken
	published []publishRecord
}

func (c *stubMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, publishRecord{
		topic:    topic,
		qos:      qos,
		retained: retained,
		payload:  payload.([]byte),
	})
	return c.token
}

func newStubPublisher(token *stubToken) (*Publisher, *stubMQTTClient) {
	client := &stubMQTTClient{token: token}
	return &Publisher{
		client: client,
		prefix: "trackers/oppo",
		log:    logging.NewDiscard(),
	}, client
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"OPPO Find X7", "oppo-find-x7"},
		{"OnePlus 12", "oneplus-12"},
		{"  spaced  out  ", "spaced-out"},
		{"中文型号", "device"},
		{"中文 X3", "x3"},
		{"", "device"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestDevicePayloadShape(t *testing.T) {
	lat, lng := 31.23, 121.47
	device := oppocloud.Device{
		Model:        "OPPO Find X7",
		LocationName: "人民广场",
		LastSeen:     "5分钟前",
		IsOnline:     true,
		BatteryLevel: 67,
		Latitude:     &lat,
		Longitude:    &lng,
	}
	payload, err := json.Marshal(devicePayload{
		Model:        device.Model,
		LocationName: device.LocationName,
		LastSeen:     device.LastSeen,
		IsOnline:     device.IsOnline,
		BatteryLevel: device.BatteryLevel,
		Latitude:     device.Latitude,
		Longitude:    device.Longitude,
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "OPPO Find X7", decoded["model"])
	assert.Equal(t, "人民广场", decoded["location_name"])
	assert.Equal(t, true, decoded["is_online"])
	assert.Equal(t, 67.0, decoded["battery_level"])
	assert.Equal(t, 31.23, decoded["latitude"])
}

func TestDevicePayloadOmitsAbsentFields(t *testing.T) {
	payload, err := json.Marshal(devicePayload{Model: "A"})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.NotContains(t, decoded, "latitude")
	assert.NotContains(t, decoded, "longitude")
	assert.NotContains(t, decoded, "last_seen")
}

func TestPublish_RetainedPerDevice(t *testing.T) {
	pub, client := newStubPublisher(&stubToken{})

	err := pub.Publish([]oppocloud.Device{
		{Model: "OPPO Find X7", IsOnline: true},
		{Model: "OnePlus 12"},
	})
	require.NoError(t, err)
	require.Len(t, client.published, 2)

	assert.Equal(t, "trackers/oppo/oppo-find-x7/state", client.published[0].topic)
	assert.Equal(t, "trackers/oppo/oneplus-12/state", client.published[1].topic)
	for _, rec := range client.published {
		assert.Equal(t, byte(1), rec.qos)
		assert.True(t, rec.retained)
	}

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(client.published[0].payload, &decoded))
	assert.Equal(t, "OPPO Find X7", decoded["model"])
	assert.Equal(t, true, decoded["is_online"])
}

func TestPublish_BrokerTimeout(t *testing.T) {
	pub, client := newStubPublisher(&stubToken{timedOut: true})

	err := pub.Publish([]oppocloud.Device{{Model: "A"}, {Model: "B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Len(t, client.published, 1, "a wedged broker must stop the batch")
}

func TestPublish_TokenErrorPropagates(t *testing.T) {
	pub, _ := newStubPublisher(&stubToken{err: errors.New("not authorized")})

	err := pub.Publish([]oppocloud.Device{{Model: "A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
}

func TestNew_RejectsBadBrokerURL(t *testing.T) {
	_, err := New("://not-a-url", "", "", nil)
	assert.Error(t, err)
}
