// Package config provides application configuration from environment
// variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultAIModel is used when AI_MODEL is not set.
const DefaultAIModel = "gpt-5-mini"

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Catalog CatalogConfig
	AI      AIConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string
}

// CatalogConfig holds remote catalog configuration.
type CatalogConfig struct {
	// URL is the base endpoint of the remote store, used for object
	// storage uploads and public asset URLs.
	URL string
	// ServiceKey authenticates object storage requests.
	ServiceKey string
	// DatabaseDSN is the Postgres connection string for catalog records.
	DatabaseDSN string
}

// AIConfig holds AI metadata backend configuration.
// APIKey may be empty, in which case metadata falls back to filename heuristics.
type AIConfig struct {
	APIKey string
	Model  string
}

// Load builds configuration from the environment. A .env file at envFile is
// loaded first if present (real environment variables take precedence).
// Values are not validated here; callers apply CLI overrides and then call
// Validate.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Silently ignore a missing .env file.
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: envOr("ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", ""),
		},
		Catalog: CatalogConfig{
			URL:         strings.TrimRight(os.Getenv("STORE_URL"), "/"),
			ServiceKey:  os.Getenv("STORE_SERVICE_KEY"),
			DatabaseDSN: os.Getenv("DATABASE_URL"),
		},
		AI: AIConfig{
			APIKey: os.Getenv("AI_API_KEY"),
			Model:  envOr("AI_MODEL", DefaultAIModel),
		},
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Catalog.URL == "" {
		return errors.New("STORE_URL is required")
	}
	if c.Catalog.ServiceKey == "" {
		return errors.New("STORE_SERVICE_KEY is required")
	}
	if c.Catalog.DatabaseDSN == "" {
		return errors.New("DATABASE_URL is required")
	}

	// AI_API_KEY is optional; without it metadata degrades to filename heuristics.

	return nil
}

// AIEnabled reports whether an AI metadata backend is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

// envOr returns the environment value for key, or defaultValue if unset.
func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
