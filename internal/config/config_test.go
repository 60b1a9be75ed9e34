package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "ADMIN_PASSWORD", "DATA_DIR", "SESSION_SECRET", "SESSION_TTL", "LOG_LEVEL", "METRICS_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "change-me", cfg.AdminPassword)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsToken)
	assert.True(t, cfg.GeneratedSecret)
	assert.Len(t, cfg.SessionSecret, 64)
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("DATA_DIR", "/var/lib/displaybox")
	t.Setenv("SESSION_SECRET", "fixed")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("METRICS_TOKEN", "scrape")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "hunter2", cfg.AdminPassword)
	assert.Equal(t, "/var/lib/displaybox", cfg.DataDir)
	assert.Equal(t, "fixed", cfg.SessionSecret)
	assert.False(t, cfg.GeneratedSecret)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "scrape", cfg.MetricsToken)
}

func TestLoad_RandomSecretDiffersPerLoad(t *testing.T) {
	clearEnv(t)

	a, err := Load()
	require.NoError(t, err)
	b, err := Load()
	require.NoError(t, err)

	assert.NotEqual(t, a.SessionSecret, b.SessionSecret)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric port", "PORT", "http"},
		{"unparsable ttl", "SESSION_TTL", "soon"},
		{"negative ttl", "SESSION_TTL", "-1h"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
