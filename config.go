package relnet

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultConfigPath is where LoadConfig looks if no path is given.
const DefaultConfigPath = "config/relnet.yml"

// PeerConfig is a statically known participant.
type PeerConfig struct {
	ID      PeerID `yaml:"id"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Config holds the settings of a Session and the daemon around it.
type Config struct {
	Host   string `yaml:"host"`
	Name   string `yaml:"name"`
	PeerID PeerID `yaml:"peer_id"`
	IsHost bool   `yaml:"is_host"`

	MaxDatagramSize  int `yaml:"max_datagram_size"`
	TickIntervalMS   int `yaml:"tick_interval_ms"`
	RetryThresholdMS int `yaml:"retry_threshold_ms"`
	MaxRetries       int `yaml:"max_retries"`
	QueueCapacity    int `yaml:"queue_capacity"`

	StoragePath    string `yaml:"storage_path"`
	MetricsAddress string `yaml:"metrics_address"`
	LogPath        string `yaml:"log_path"`
	ChatMaxLength  int    `yaml:"chat_max_length"`

	Peers []PeerConfig `yaml:"peers"`
}

// DefaultConfig returns a Config with every field set.
func DefaultConfig() *Config {
	return &Config{
		Host:             "0.0.0.0:33100",
		Name:             "host",
		PeerID:           PeerIDHost,
		IsHost:           true,
		MaxDatagramSize:  DefaultMaxDatagramSize,
		TickIntervalMS:   16,
		RetryThresholdMS: 100,
		MaxRetries:       10,
		QueueCapacity:    1024,
		StoragePath:      "storage/relnet.sqlite",
		LogPath:          "log/latest.txt",
		ChatMaxLength:    256,
	}
}

// LoadConfig reads the yaml file at path over the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// Validate reports the first impossible setting.
func (c *Config) Validate() error {
	switch {
	case c.MaxDatagramSize < FastOrderHeaderSize:
		return fmt.Errorf("max_datagram_size must be at least %d", FastOrderHeaderSize)
	case c.MaxDatagramSize > 65507:
		return errors.New("max_datagram_size exceeds the UDP maximum")
	case c.TickIntervalMS <= 0:
		return errors.New("tick_interval_ms must be positive")
	case c.RetryThresholdMS <= 0:
		return errors.New("retry_threshold_ms must be positive")
	case c.MaxRetries < 0:
		return errors.New("max_retries must not be negative")
	case c.QueueCapacity <= 0:
		return errors.New("queue_capacity must be positive")
	case c.ChatMaxLength < 0:
		return errors.New("chat_max_length must not be negative")
	case c.ChatMaxLength > c.chatLimit():
		return fmt.Errorf("chat_max_length must be at most %d", c.chatLimit())
	case c.PeerID == PeerIDBroadcast:
		return fmt.Errorf("peer_id %d is reserved", PeerIDBroadcast)
	case c.IsHost && c.PeerID != PeerIDHost:
		return fmt.Errorf("the host must use peer_id %d", PeerIDHost)
	}

	seen := make(map[PeerID]bool)
	for _, p := range c.Peers {
		if p.ID == PeerIDBroadcast || p.ID == c.PeerID || seen[p.ID] {
			return fmt.Errorf("peer %q: id %d is reserved or already in use", p.Name, p.ID)
		}
		seen[p.ID] = true
	}

	return nil
}

// Bytes a relayed chat line needs besides its text:
// send key, origin and string length.
const chatRelayOverhead = 4

func (c *Config) chatLimit() int {
	return c.MaxDatagramSize - ReliableHeaderSize - chatRelayOverhead
}

// MaxChatLength returns the longest chat text in bytes.
// It is ChatMaxLength if set, capped so a relayed line
// still fits into one datagram.
func (c *Config) MaxChatLength() int {
	if n := c.ChatMaxLength; n > 0 && n < c.chatLimit() {
		return n
	}
	return c.chatLimit()
}

// TickInterval returns TickIntervalMS as a Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// RetryThreshold returns RetryThresholdMS as a Duration.
func (c *Config) RetryThreshold() time.Duration {
	return time.Duration(c.RetryThresholdMS) * time.Millisecond
}
