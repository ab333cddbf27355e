package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundrisk/internal/modules/risk"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RISK_PORT", "LOG_LEVEL", "DEV_MODE", "RISK_DEFAULT_HORIZON", "RISK_DEFAULT_CONFIDENCE",
		"RISK_SESSION_TTL", "RISK_SESSION_SWEEP", "RISK_METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 21, cfg.DefaultHorizonDays)
	assert.Equal(t, risk.Confidence95, cfg.DefaultConfidence)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "@every 10m", cfg.SessionSweep)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RISK_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("RISK_DEFAULT_HORIZON", "10")
	t.Setenv("RISK_DEFAULT_CONFIDENCE", "0.99")
	t.Setenv("RISK_SESSION_TTL", "30m")
	t.Setenv("RISK_SESSION_SWEEP", "0 */5 * * * *")
	t.Setenv("RISK_METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 10, cfg.DefaultHorizonDays)
	assert.Equal(t, risk.Confidence99, cfg.DefaultConfidence)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "0 */5 * * * *", cfg.SessionSweep)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RISK_PORT", "not-a-number")
	t.Setenv("RISK_SESSION_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:               8080,
			DefaultHorizonDays: 21,
			DefaultConfidence:  risk.Confidence95,
			SessionTTL:         time.Hour,
			SessionSweep:       "@every 10m",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"horizon zero", func(c *Config) { c.DefaultHorizonDays = 0 }, true},
		{"unknown confidence", func(c *Config) { c.DefaultConfidence = "90%" }, true},
		{"ttl zero", func(c *Config) { c.SessionTTL = 0 }, true},
		{"blank sweep", func(c *Config) { c.SessionSweep = " " }, true},
		{"bad sweep", func(c *Config) { c.SessionSweep = "every now and then" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_NormalizesConfidence(t *testing.T) {
	cfg := Config{
		Port:               8080,
		DefaultHorizonDays: 21,
		DefaultConfidence:  "99",
		SessionTTL:         time.Hour,
		SessionSweep:       "@hourly",
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, risk.Confidence99, cfg.DefaultConfidence)
}
