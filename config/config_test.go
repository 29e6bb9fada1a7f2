package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/relaypost?sslmode=disable")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, "localhost", cfg.Relay.Host)
	assert.Equal(t, 587, cfg.Relay.Port)
	assert.True(t, cfg.Tracking.OpenEnabled)
	assert.True(t, cfg.Tracking.ClickEnabled)
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, 100, cfg.Worker.RatePerSec)
	assert.Equal(t, 3, cfg.Worker.MaxAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/mail")
	t.Setenv("API_PORT", "4000")
	t.Setenv("HARAKA_HOST", "relay.internal")
	t.Setenv("HARAKA_PORT", "2525")
	t.Setenv("TRACKING_BASE_URL", "https://t.example.com/")
	t.Setenv("ENABLE_OPEN_TRACKING", "false")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "relay.internal", cfg.Relay.Host)
	assert.Equal(t, 2525, cfg.Relay.Port)
	// Trailing slash is trimmed so tracking URLs join cleanly.
	assert.Equal(t, "https://t.example.com", cfg.Tracking.BaseURL)
	assert.False(t, cfg.Tracking.OpenEnabled)
	assert.True(t, cfg.Tracking.ClickEnabled)
	assert.True(t, cfg.IsDevelopment())
}
