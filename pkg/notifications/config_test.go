package notifications_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifycore/pkg/config"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg notifications.Config
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles()))

	assert.Equal(t, notifications.DefaultBulkChunkSize, cfg.BulkChunkSize)
	assert.Equal(t, notifications.DurableChannelName, cfg.DefaultChannel)
	assert.Equal(t, notifications.DefaultMaxListSize, cfg.MaxListSize)
	assert.Equal(t, "@daily", cfg.Purge.Schedule)
	assert.Equal(t, 720*time.Hour, cfg.Purge.ReadOlderThan)
	assert.False(t, cfg.Purge.ArchiveEnabled)
	assert.Equal(t, "@every 1m", cfg.Timers.Schedule)
}

func TestConfig_Env(t *testing.T) {
	t.Setenv("NOTIFICATIONS_BULK_CHUNK_SIZE", "25")
	t.Setenv("NOTIFICATIONS_DEFAULT_CHANNEL", "email")
	t.Setenv("NOTIFICATIONS_TYPE_CHANNEL_MAP", "open-edx.lms.*=durable,alerts=push")
	t.Setenv("NOTIFICATIONS_LINK_TEMPLATES", "T2=/t/{thread_id}")
	t.Setenv("NOTIFICATIONS_PURGE_READ_OLDER_THAN", "48h")

	var cfg notifications.Config
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles()))

	assert.Equal(t, 25, cfg.BulkChunkSize)
	assert.Equal(t, "email", cfg.DefaultChannel)
	assert.Equal(t, map[string]string{"open-edx.lms.*": "durable", "alerts": "push"}, cfg.TypeChannelMap)
	assert.Equal(t, map[string]string{"T2": "/t/{thread_id}"}, cfg.LinkTemplates)
	assert.Equal(t, 48*time.Hour, cfg.Purge.ReadOlderThan)
}

func TestConfig_YAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bulk_chunk_size: 50
user_channel_overrides:
  - type: open-edx.lms.reply
    user_id: 7
    channel: email
purge:
  schedule: "@hourly"
  archive_enabled: true
timers:
  schedule: "@every 30s"
`), 0o600))

	var cfg notifications.Config
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(), config.WithYAMLFile(path)))

	assert.Equal(t, 50, cfg.BulkChunkSize)
	assert.Equal(t, []notifications.UserChannelOverride{{Type: "open-edx.lms.reply", UserID: 7, Channel: "email"}}, cfg.UserChannelOverrides)
	assert.Equal(t, "@hourly", cfg.Purge.Schedule)
	assert.True(t, cfg.Purge.ArchiveEnabled)
	assert.Equal(t, "@every 30s", cfg.Timers.Schedule)
	assert.Equal(t, notifications.DurableChannelName, cfg.DefaultChannel)
}

func TestConfig_Invalid(t *testing.T) {
	t.Setenv("NOTIFICATIONS_BULK_CHUNK_SIZE", "0")

	var cfg notifications.Config
	err := config.Load(&cfg, config.WithEnvFiles())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
