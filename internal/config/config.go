// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/pickleai/internal/security"
)

// Rate limit backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port              string
	FrontendURL       string
	DBPath            string
	LogLevel          slog.Level
	SessionTTL        time.Duration
	KnowledgeBasePath string
	RateLimit         RateLimitConfig
	LLM               LLMConfig
	ConversationLog   ConversationLogConfig
}

// RateLimitConfig controls the security gate.
type RateLimitConfig struct {
	PerMinute      int
	PerDay         int
	Cooldown       time.Duration
	AllowedIntents []security.Intent
	Backend        string
	RedisURL       string
}

// LLMConfig controls the language model client.
type LLMConfig struct {
	BaseURL      string
	Model        string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	HistoryLimit int
}

// Enabled reports whether a model endpoint or key was configured.
func (c LLMConfig) Enabled() bool {
	return c.BaseURL != "" || c.APIKey != ""
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	intents, err := parseIntents(getEnv("ALLOWED_INTENTS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		FrontendURL:       getEnv("FRONTEND_URL", ""),
		DBPath:            getEnv("DB_PATH", "./data/pickleai.db"),
		LogLevel:          getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		SessionTTL:        getEnvDuration("SESSION_TTL", 60*time.Minute),
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", ""),
		RateLimit: RateLimitConfig{
			PerMinute:      getEnvInt("RATE_LIMIT_PER_MINUTE", security.DefaultPerMinute),
			PerDay:         getEnvInt("RATE_LIMIT_PER_DAY", security.DefaultPerDay),
			Cooldown:       getEnvDuration("VIOLATION_COOLDOWN", security.DefaultCooldown),
			AllowedIntents: intents,
			Backend:        strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
			RedisURL:       getEnv("REDIS_URL", ""),
		},
		LLM: LLMConfig{
			BaseURL:      getEnv("LLM_BASE_URL", ""),
			Model:        getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			Timeout:      getEnvDuration("LLM_TIMEOUT", 30*time.Second),
			MaxRetries:   getEnvInt("LLM_MAX_RETRIES", 1),
			HistoryLimit: getEnvInt("LLM_HISTORY_LIMIT", 20),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if c.RateLimit.PerDay <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_DAY must be > 0")
	}
	if c.RateLimit.Cooldown < 0 {
		return fmt.Errorf("VIOLATION_COOLDOWN cannot be negative")
	}
	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL cannot be empty")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// parseIntents reads a comma separated allow-list. Empty means all intents.
func parseIntents(raw string) ([]security.Intent, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]security.Intent(nil), security.AllIntents...), nil
	}
	var out []security.Intent
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		intent, err := security.ParseIntent(part)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_INTENTS: %w", err)
		}
		out = append(out, intent)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
