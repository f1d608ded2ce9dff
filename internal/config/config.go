// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	LogLevel    string

	Clerk     ClerkConfig
	Sentry    SentryConfig
	AI        AIConfig
	RateLimit RateLimitConfig
	Policy    PolicyConfig
}

// ClerkConfig carries identity provider secrets. Both may be empty at boot;
// requests that need them fail closed.
type ClerkConfig struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

// SentryConfig controls error tracking and tracing.
type SentryConfig struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	FlushTimeout     time.Duration
}

// AIConfig points at the external AI service.
type AIConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	Enabled        bool
}

// RateLimitConfig bounds per-user calls to /api/ai.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// PolicyConfig holds product policy constants.
type PolicyConfig struct {
	MaxFollowUps          int
	AssessmentProgressTTL time.Duration
	StateSweepInterval    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/readmaster.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Clerk: ClerkConfig{
			SecretKey:        getEnv("CLERK_SECRET_KEY", ""),
			WebhookSecret:    getEnv("CLERK_WEBHOOK_SECRET", ""),
			WebhookTolerance: getEnvDuration("WEBHOOK_TOLERANCE", 300*time.Second),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Environment:      getEnv("SENTRY_ENVIRONMENT", "development"),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 0.1),
			FlushTimeout:     getEnvDuration("SENTRY_FLUSH_TIMEOUT", 2*time.Second),
		},
		AI: AIConfig{
			BaseURL:        strings.TrimRight(getEnv("AI_SERVICE_URL", ""), "/"),
			APIKey:         getEnv("AI_SERVICE_KEY", ""),
			RequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
			Enabled:        getEnvBool("AI_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Policy: PolicyConfig{
			MaxFollowUps:          getEnvInt("MAX_FOLLOW_UPS", 5),
			AssessmentProgressTTL: getEnvDuration("ASSESSMENT_PROGRESS_TTL", 24*time.Hour),
			StateSweepInterval:    getEnvDuration("STATE_SWEEP_INTERVAL", 5*time.Minute),
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
	if c.AI.Enabled && c.AI.BaseURL == "" {
		return fmt.Errorf("AI_SERVICE_URL must be set when AI_ENABLED is true")
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("AI_REQUEST_TIMEOUT must be > 0")
	}
	if c.Clerk.WebhookTolerance <= 0 {
		return fmt.Errorf("WEBHOOK_TOLERANCE must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Policy.MaxFollowUps <= 0 {
		return fmt.Errorf("MAX_FOLLOW_UPS must be > 0")
	}
	if c.Policy.AssessmentProgressTTL <= 0 {
		return fmt.Errorf("ASSESSMENT_PROGRESS_TTL must be > 0")
	}
	if c.Policy.StateSweepInterval <= 0 {
		return fmt.Errorf("STATE_SWEEP_INTERVAL must be > 0")
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		return fmt.Errorf("SENTRY_TRACES_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the browser client.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
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

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("300").
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
