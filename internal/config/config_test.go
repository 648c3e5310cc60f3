package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/pickleai/internal/security"
)

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t,
		"PORT", "FRONTEND_URL", "DB_PATH", "LOG_LEVEL", "RATE_LIMIT_PER_MINUTE",
		"RATE_LIMIT_PER_DAY", "VIOLATION_COOLDOWN", "ALLOWED_INTENTS", "RATE_LIMIT_BACKEND",
		"REDIS_URL", "LLM_MODEL", "LLM_TIMEOUT", "LLM_MAX_RETRIES", "SESSION_TTL",
		"OPENAI_API_KEY", "LLM_BASE_URL",
	)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data/pickleai.db", cfg.DBPath)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, security.DefaultPerMinute, cfg.RateLimit.PerMinute)
	assert.Equal(t, security.DefaultPerDay, cfg.RateLimit.PerDay)
	assert.Equal(t, security.DefaultCooldown, cfg.RateLimit.Cooldown)
	assert.Equal(t, security.AllIntents, cfg.RateLimit.AllowedIntents)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 60*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.LLM.Enabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("VIOLATION_COOLDOWN", "90")
	t.Setenv("LLM_TIMEOUT", "2s")
	t.Setenv("ALLOWED_INTENTS", "rulesExplanation, generalPickleball")
	t.Setenv("RATE_LIMIT_BACKEND", "REDIS")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FRONTEND_URL", "https://pickle.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5, cfg.RateLimit.PerMinute)
	assert.Equal(t, 90*time.Second, cfg.RateLimit.Cooldown)
	assert.Equal(t, 2*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, []security.Intent{security.IntentRulesExplanation, security.IntentGeneralPickleball}, cfg.RateLimit.AllowedIntents)
	assert.Equal(t, BackendRedis, cfg.RateLimit.Backend)
	assert.True(t, cfg.LLM.Enabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown intent", map[string]string{"ALLOWED_INTENTS": "gossip"}},
		{"redis without url", map[string]string{"RATE_LIMIT_BACKEND": "redis", "REDIS_URL": ""}},
		{"unknown backend", map[string]string{"RATE_LIMIT_BACKEND": "memcached"}},
		{"zero ceiling", map[string]string{"RATE_LIMIT_PER_MINUTE": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_DURATION", "nonsense")
	assert.Equal(t, time.Minute, getEnvDuration("X_DURATION", time.Minute))
	t.Setenv("X_BOOL", "yes")
	assert.True(t, getEnvBool("X_BOOL", false))
	t.Setenv("X_INT", "abc")
	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	t.Setenv("X_LEVEL", "loud")
	assert.Equal(t, slog.LevelWarn, getEnvLevel("X_LEVEL", slog.LevelWarn))
}
