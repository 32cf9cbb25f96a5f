package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 30*time.Second, cfg.HideChatTTL)
	assert.Equal(t, 48*time.Hour, cfg.HideGroupTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 10, cfg.Chat.DefaultPageLimit)
	assert.Equal(t, int64(64*1024), cfg.WS.MaxMessageSize)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: 9000
chat:
  hide_chat_ttl_seconds: 5
  hide_group_ttl_seconds: 60
kafka:
  brokers:
    - "broker-1:9092"
  event_topic: "events"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, 5*time.Second, cfg.HideChatTTL)
	assert.Equal(t, time.Minute, cfg.HideGroupTTL)
	assert.Equal(t, []string{"broker-1:9092"}, cfg.Kafka.Brokers)

	// untouched knobs still get defaults
	assert.Equal(t, 10, cfg.Chat.DefaultPageLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
