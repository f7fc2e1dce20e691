package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.RegenerateEnabled)
	assert.Equal(t, time.Hour, cfg.RegenerateInterval)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 1, cfg.WeeksAhead)
	assert.False(t, cfg.ReplaceStaleSuggestions)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("REGENERATE_INTERVAL", "15m")
	t.Setenv("WEEKS_AHEAD", "3")
	t.Setenv("TIMEZONE", "America/Los_Angeles")
	t.Setenv("SIMULATED_CLOCK", "true")
	t.Setenv("REPLACE_STALE_SUGGESTIONS", "true")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, 15*time.Minute, cfg.RegenerateInterval)
	assert.Equal(t, 3, cfg.WeeksAhead)
	assert.True(t, cfg.SimulatedClock)
	assert.True(t, cfg.ReplaceStaleSuggestions)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Los_Angeles", loc.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad timezone", "TIMEZONE", "Mars/Olympus"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"negative weeks", "WEEKS_AHEAD", "-1"},
		{"zero interval", "REGENERATE_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
