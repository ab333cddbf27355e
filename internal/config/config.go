// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/aristath/fundrisk/internal/modules/risk"
)

// Config holds application configuration
type Config struct {
	Port               int
	LogLevel           string
	DevMode            bool
	DefaultHorizonDays int
	DefaultConfidence  risk.Confidence
	SessionTTL         time.Duration
	SessionSweep       string // cron spec for the expired-session sweep
	MetricsEnabled     bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvAsInt("RISK_PORT", 8080),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		DefaultHorizonDays: getEnvAsInt("RISK_DEFAULT_HORIZON", risk.RegulatoryHorizonDays),
		DefaultConfidence:  risk.Confidence(getEnv("RISK_DEFAULT_CONFIDENCE", string(risk.Confidence95))),
		SessionTTL:         getEnvAsDuration("RISK_SESSION_TTL", 2*time.Hour),
		SessionSweep:       getEnv("RISK_SESSION_SWEEP", "@every 10m"),
		MetricsEnabled:     getEnvAsBool("RISK_METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values and normalizes the confidence label
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid RISK_PORT %d", c.Port)
	}
	if c.DefaultHorizonDays <= 0 {
		return fmt.Errorf("invalid RISK_DEFAULT_HORIZON %d: must be positive", c.DefaultHorizonDays)
	}
	conf, err := risk.ParseConfidence(string(c.DefaultConfidence))
	if err != nil {
		return fmt.Errorf("invalid RISK_DEFAULT_CONFIDENCE: %w", err)
	}
	c.DefaultConfidence = conf
	if err := conf.CheckZ(); err != nil {
		return fmt.Errorf("invalid RISK_DEFAULT_CONFIDENCE: %w", err)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid RISK_SESSION_TTL %s: must be positive", c.SessionTTL)
	}
	if strings.TrimSpace(c.SessionSweep) == "" {
		return fmt.Errorf("RISK_SESSION_SWEEP is required")
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.SessionSweep); err != nil {
		return fmt.Errorf("invalid RISK_SESSION_SWEEP %q: %w", c.SessionSweep, err)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
