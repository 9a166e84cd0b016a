// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full server configuration.
type Config struct {
	// Addr is the address the listener binds, host:port.
	Addr string `yaml:"addr"`

	// ReadBufferSize is the per connection receive buffer size in bytes
	// and bounds the largest inbound frame.
	ReadBufferSize int `yaml:"readBufferSize"`

	// ReadLimit caps inbound messages per second per connection.
	// Zero means unlimited.
	ReadLimit float64 `yaml:"readLimit"`

	// HandshakeTimeout bounds how long an accepted socket may take to
	// deliver its upgrade request, e.g. "10s".
	HandshakeTimeout Duration `yaml:"handshakeTimeout"`

	Log Log `yaml:"log"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Log holds logging configuration.
type Log struct {
	// Level is the minimum log level: debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is the output format: text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:             ":8181",
		ReadBufferSize:   4096,
		HandshakeTimeout: Duration(10 * time.Second),
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path, unmarshals it over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.ReadBufferSize < 0 {
		return fmt.Errorf("readBufferSize must not be negative: %d", c.ReadBufferSize)
	}
	if c.ReadLimit < 0 {
		return fmt.Errorf("readLimit must not be negative: %v", c.ReadLimit)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("handshakeTimeout must not be negative: %v", c.HandshakeTimeout)
	}
	return nil
}
