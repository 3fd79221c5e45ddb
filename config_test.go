package relnet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "relnet.yml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0666))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
host: 127.0.0.1:5000
name: alice
peer_id: 3
is_host: false
retry_threshold_ms: 250
peers:
  - id: 0
    name: host
    address: 127.0.0.1:33100
  - id: 4
    name: bob
    address: 127.0.0.1:5001
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5000", cfg.Host)
	assert.Equal(t, PeerID(3), cfg.PeerID)
	assert.False(t, cfg.IsHost)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryThreshold())
	assert.Equal(t, 16*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, DefaultMaxDatagramSize, cfg.MaxDatagramSize)
	assert.Equal(t, []PeerConfig{
		{ID: 0, Name: "host", Address: "127.0.0.1:33100"},
		{ID: 4, Name: "bob", Address: "127.0.0.1:5001"},
	}, cfg.Peers)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "peers: {"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "tick_interval_ms: 0"))
	assert.ErrorContains(t, err, "tick_interval_ms")
}

func TestConfigValidate(t *testing.T) {
	for name, mod := range map[string]func(*Config){
		"tiny datagrams":  func(c *Config) { c.MaxDatagramSize = FastOrderHeaderSize - 1 },
		"huge datagrams":  func(c *Config) { c.MaxDatagramSize = 70000 },
		"no threshold":    func(c *Config) { c.RetryThresholdMS = 0 },
		"negative budget": func(c *Config) { c.MaxRetries = -1 },
		"no queue":        func(c *Config) { c.QueueCapacity = 0 },
		"negative chat":   func(c *Config) { c.ChatMaxLength = -1 },
		"chat too long":   func(c *Config) { c.ChatMaxLength = DefaultMaxDatagramSize },
		"broadcast id":    func(c *Config) { c.PeerID = PeerIDBroadcast; c.IsHost = false },
		"host not zero":   func(c *Config) { c.PeerID = 2 },
		"duplicate peer": func(c *Config) {
			c.Peers = []PeerConfig{{ID: 1}, {ID: 1}}
		},
		"peer uses local id": func(c *Config) {
			c.Peers = []PeerConfig{{ID: 0}}
		},
	} {
		cfg := DefaultConfig()
		mod(cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestMaxChatLength(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 256, cfg.MaxChatLength())

	limit := DefaultMaxDatagramSize - ReliableHeaderSize - 4
	cfg.ChatMaxLength = limit
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, limit, cfg.MaxChatLength())

	cfg.ChatMaxLength = limit + 1
	assert.Error(t, cfg.Validate())
	assert.Equal(t, limit, cfg.MaxChatLength())

	cfg.ChatMaxLength = 0
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, limit, cfg.MaxChatLength())
}
