// Package config loads the operator-facing configuration document from
// a YAML file, defaulting to ~/.oppo-cloud-tracker/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultEndpointURL matches the Selenium Grid address a local
	// docker-compose setup exposes.
	DefaultEndpointURL = "http://localhost:4444/wd/hub"

	defaultScanIntervalSeconds = 60
	minScanIntervalSeconds     = 30
	maxScanIntervalSeconds     = 3600
)

// MQTT configures the optional broker outlet. Publishing is disabled
// while BrokerURL is empty.
type MQTT struct {
	BrokerURL   string `yaml:"broker_url"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Config is the tracker's configuration document.
type Config struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	EndpointURL string `yaml:"endpoint_url"`
	// KeepSession keeps the browser session alive between fetches
	// instead of creating and destroying one per poll.
	KeepSession bool `yaml:"keep_session"`
	// Headless is a pointer so an absent key means true.
	Headless            *bool `yaml:"headless"`
	ScanIntervalSeconds int   `yaml:"scan_interval"`
	MQTT                MQTT  `yaml:"mqtt"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		EndpointURL:         DefaultEndpointURL,
		ScanIntervalSeconds: defaultScanIntervalSeconds,
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".oppo-cloud-tracker", "config.yaml"), nil
}

// Load reads the configuration from path, or from the default location
// when path is empty. A missing file at the default location yields the
// defaults; an explicitly-given path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	usingDefault := path == ""
	if usingDefault {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && usingDefault {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields a client cannot run without and clamps the
// scan interval into its supported range.
func (c *Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("config: username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("config: password is required")
	}
	if c.EndpointURL == "" {
		return fmt.Errorf("config: endpoint_url is required")
	}
	if c.ScanIntervalSeconds == 0 {
		c.ScanIntervalSeconds = defaultScanIntervalSeconds
	}
	if c.ScanIntervalSeconds < minScanIntervalSeconds {
		c.ScanIntervalSeconds = minScanIntervalSeconds
	}
	if c.ScanIntervalSeconds > maxScanIntervalSeconds {
		c.ScanIntervalSeconds = maxScanIntervalSeconds
	}
	return nil
}

// ScanInterval returns the poll interval as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// IsHeadless reports whether grid-launched browsers run headless.
// Defaults to true when the key is absent.
func (c *Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}
