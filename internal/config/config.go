// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Storage
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"2s"`

	// Cache (Redis). Optional: enables swipe rate limiting and match events.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Credit ledger
	DailyCreditAllowance int           `env:"DAILY_CREDIT_ALLOWANCE" envDefault:"10"`
	CreditResetInterval  time.Duration `env:"CREDIT_RESET_INTERVAL" envDefault:"24h"`

	// Reputation
	ScoreInitial          float64 `env:"SCORE_INITIAL" envDefault:"100"`
	ScoreLikeIncrement    float64 `env:"SCORE_LIKE_INCREMENT" envDefault:"2"`
	ScoreDislikeDecrement float64 `env:"SCORE_DISLIKE_DECREMENT" envDefault:"1"`
	ScoreFloor            float64 `env:"SCORE_FLOOR" envDefault:"10"`

	// Swipe rate limiting (per swiper, requires Redis)
	RateLimitSwipeEnabled   bool `env:"RATE_LIMIT_SWIPE_ENABLED" envDefault:"true"`
	RateLimitSwipePerMinute int  `env:"RATE_LIMIT_SWIPE_PER_MINUTE" envDefault:"60"`
	RateLimitSwipeBurst     int  `env:"RATE_LIMIT_SWIPE_BURST" envDefault:"10"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Browser origins allowed to call the API; empty disables CORS.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Match event consumer group used by matchctl events tail.
	MatchEventsGroup string `env:"MATCH_EVENTS_GROUP" envDefault:"match_event_consumers"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RedisEnabled reports whether a Redis URL was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.StorageTimeout <= 0 {
		errs = append(errs, errors.New("STORAGE_TIMEOUT must be positive"))
	}
	if c.DailyCreditAllowance < 0 {
		errs = append(errs, errors.New("DAILY_CREDIT_ALLOWANCE must not be negative"))
	}
	if c.CreditResetInterval <= 0 {
		errs = append(errs, errors.New("CREDIT_RESET_INTERVAL must be positive"))
	}
	if c.ScoreInitial < c.ScoreFloor {
		errs = append(errs, errors.New("SCORE_INITIAL must not be below SCORE_FLOOR"))
	}
	if c.ScoreLikeIncrement < 0 || c.ScoreDislikeDecrement < 0 {
		errs = append(errs, errors.New("score increments must not be negative"))
	}
	if c.RateLimitSwipeEnabled && c.RateLimitSwipeBurst < 1 && c.RateLimitSwipePerMinute > 0 {
		errs = append(errs, errors.New("RATE_LIMIT_SWIPE_BURST must be at least 1"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
