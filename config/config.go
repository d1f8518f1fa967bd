// Package config provides centralized configuration for the row streaming
// pipeline. It loads settings from environment variables (optionally seeded
// from a .env file) with sensible defaults and validates everything on load to
// fail fast on misconfiguration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all settings recognized by the pipeline.
type Config struct {
	Database DatabaseConfig
	Stream   StreamConfig
	Retry    RetryConfig
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	// Host of the Postgres server (env DB_HOST, default: localhost)
	Host string

	// Port of the Postgres server (env DB_PORT, default: 5432)
	Port int

	// User for the connection (env DB_USER, default: postgres)
	User string

	// Password for the connection (env DB_PASSWORD, default: empty)
	Password string

	// Name of the database (env DB_NAME, default: prodev)
	Name string

	// SSLMode for the connection (env DB_SSLMODE, default: disable)
	SSLMode string
}

// StreamConfig holds the bounds of the lazy streams.
type StreamConfig struct {
	// PageSize is the LIMIT of one page fetch (env PAGE_SIZE, default: 100)
	PageSize uint

	// BatchSize is the chunk size of cursor streaming (env BATCH_SIZE, default: 50)
	BatchSize int
}

// RetryConfig holds the retry middleware policy.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget (env RETRY_MAX_ATTEMPTS, default: 3)
	MaxAttempts int

	// Delay is the fixed inter-attempt delay (env RETRY_DELAY, default: 100ms)
	Delay time.Duration
}

// Load reads configuration from environment variables, after loading a .env
// file when one is present. It applies defaults for unset values and validates
// the result.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env file is fine

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "prodev"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	var parseErr error

	cfg.Database.Port, parseErr = getEnvInt("DB_PORT", 5432)
	if parseErr != nil {
		return nil, parseErr
	}

	pageSize, parseErr := getEnvInt("PAGE_SIZE", 100)
	if parseErr != nil {
		return nil, parseErr
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", pageSize)
	}
	cfg.Stream.PageSize = uint(pageSize)

	cfg.Stream.BatchSize, parseErr = getEnvInt("BATCH_SIZE", 50)
	if parseErr != nil {
		return nil, parseErr
	}

	cfg.Retry.MaxAttempts, parseErr = getEnvInt("RETRY_MAX_ATTEMPTS", 3)
	if parseErr != nil {
		return nil, parseErr
	}

	cfg.Retry.Delay, parseErr = getEnvDuration("RETRY_DELAY", 100*time.Millisecond)
	if parseErr != nil {
		return nil, parseErr
	}

	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("config validation: %w", validationErr)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	return cfg
}

// Validate checks all settings for consistency.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("DB_HOST must not be empty")
	}

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be a valid port, got %d", c.Database.Port)
	}

	if c.Database.Name == "" {
		return errors.New("DB_NAME must not be empty")
	}

	if c.Stream.PageSize == 0 {
		return errors.New("PAGE_SIZE must be positive")
	}

	if c.Stream.BatchSize <= 0 {
		return errors.New("BATCH_SIZE must be positive")
	}

	if c.Retry.MaxAttempts <= 0 {
		return errors.New("RETRY_MAX_ATTEMPTS must be positive")
	}

	if c.Retry.Delay < 0 {
		return errors.New("RETRY_DELAY must not be negative")
	}

	return nil
}

// DSN renders the database settings as a Postgres connection string.
func (c DatabaseConfig) DSN() string {
	endpoint := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}

	return endpoint.String()
}

func getEnv(key string, fallback string) string {
	if value, set := os.LookupEnv(key); set {
		return value
	}

	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, set := os.LookupEnv(key)
	if !set {
		return fallback, nil
	}

	parsed, parseErr := strconv.Atoi(raw)
	if parseErr != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}

	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, set := os.LookupEnv(key)
	if !set {
		return fallback, nil
	}

	parsed, parseErr := time.ParseDuration(raw)
	if parseErr != nil {
		return 0, fmt.Errorf("%s must be a duration like 100ms, got %q", key, raw)
	}

	return parsed, nil
}
