package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8823", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionRetention)
	assert.Equal(t, 16, cfg.MaxClientsPerStream)
}

func TestLoad_InMemoryModeNeedsNoBackends(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_CustomPortAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_RedisRequiresDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL requires DATABASE_URL")
}

func TestLoad_RejectsNonPositiveIntervals(t *testing.T) {
	tests := []struct {
		name    string
		envVar  string
		value   string
		wantErr string
	}{
		{"zero sweep interval", "SWEEP_INTERVAL", "0s", "SWEEP_INTERVAL must be positive"},
		{"negative cleanup interval", "CLEANUP_INTERVAL", "-5m", "CLEANUP_INTERVAL must be positive"},
		{"zero retention", "SESSION_RETENTION", "0h", "SESSION_RETENTION must be positive"},
		{"zero stream clients", "MAX_CLIENTS_PER_STREAM", "0", "MAX_CLIENTS_PER_STREAM must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.envVar, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("SESSION_RETENTION", "72h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 72*time.Hour, cfg.SessionRetention)
}
