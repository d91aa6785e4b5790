package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TxTTL)
	assert.Equal(t, 10*time.Second, cfg.ExpiryInterval)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.False(t, cfg.AdminStatusOverride)
	assert.False(t, cfg.MockTraffic)
	assert.Equal(t, 4, cfg.CallbackWorkers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("APP_TIMEZONE", "Europe/Moscow")
	t.Setenv("ADMIN_STATUS_OVERRIDE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, "Europe/Moscow", cfg.Timezone.String())
	assert.True(t, cfg.AdminStatusOverride)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT: \"7000\"\nTX_TTL: 30m\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TX_TTL", "45m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.HTTPPort)
	assert.Equal(t, 45*time.Minute, cfg.TxTTL)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("APP_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("prod secret", func(t *testing.T) {
		t.Setenv("APP_ENV", "prod")
		_, err := Load()
		assert.Error(t, err)
	})
}
