package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "counterline.db", cfg.DB.Path)
	assert.Equal(t, "counterline-device.db", cfg.DB.DevicePath)
	assert.Equal(t, 4, cfg.Remote.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Sync.DrainInterval)
	assert.Equal(t, 10, cfg.Sync.MaxAttempts)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/till.db")
	t.Setenv("OUTBOX_DRAIN_INTERVAL", "5s")
	t.Setenv("REMOTE_MAX_RETRIES", "2")
	t.Setenv("CATALOG_CACHE_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "/tmp/till.db", cfg.DB.Path)
	assert.Equal(t, 5*time.Second, cfg.Sync.DrainInterval)
	assert.Equal(t, 2, cfg.Remote.MaxRetries)
	// Unparseable values fall back to the default.
	assert.Equal(t, 5*time.Minute, cfg.Sync.CacheTTL)
}
