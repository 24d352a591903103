// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration.
type Config struct {
	// Backend
	APIURL         string        // Meridian backend base URL, e.g. "https://api.meridian.trade"
	RequestTimeout time.Duration // Per-request HTTP timeout

	// Wallet
	PrivateKey string // Hex-encoded, with or without 0x prefix

	// Local state
	CredentialsPath string // Cached bearer credential (JSON, 0600)
	JournalPath     string // SQLite trade journal

	// Runtime
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"
}

const (
	DefaultAPIURL         = "https://api.meridian.trade"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultRequestTimeout = 30 * time.Second
)

// Load reads configuration from environment variables. A .env file is loaded
// first if present (local development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".meridian")

	cfg := &Config{
		APIURL:          getEnv("MERIDIAN_API_URL", DefaultAPIURL),
		RequestTimeout:  getEnvDuration("MERIDIAN_REQUEST_TIMEOUT", DefaultRequestTimeout),
		PrivateKey:      os.Getenv("MERIDIAN_PRIVATE_KEY"), // Required, no default
		CredentialsPath: getEnv("MERIDIAN_CREDENTIALS_PATH", filepath.Join(stateDir, "credentials.json")),
		JournalPath:     getEnv("MERIDIAN_JOURNAL_PATH", filepath.Join(stateDir, "journal.db")),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:       getEnv("LOG_FORMAT", DefaultLogFormat),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("MERIDIAN_PRIVATE_KEY is required")
	}

	// Allow both with and without 0x prefix
	key := c.PrivateKey
	if len(key) == 66 && key[:2] == "0x" {
		key = key[2:]
	}
	if len(key) != 64 {
		return fmt.Errorf("MERIDIAN_PRIVATE_KEY must be 64 hex characters (with or without 0x prefix)")
	}

	if c.APIURL == "" {
		return fmt.Errorf("MERIDIAN_API_URL is required")
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
