package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AWSConfig configures the AWS discovery collector.
type AWSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccountID string `yaml:"account_id"`
}

// RateLimitSettings configures the HTTP rate limiter.
type RateLimitSettings struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config holds the server configuration.
type Config struct {
	Addr            string            `yaml:"addr"`
	APIKey          string            `yaml:"api_key"`
	APIKeyScopes    []string          `yaml:"api_key_scopes"`
	SQLiteDSN       string            `yaml:"sqlite_dsn"`
	DatabaseURL     string            `yaml:"database_url"`
	SentryDSN       string            `yaml:"sentry_dsn"`
	SentryEnv       string            `yaml:"sentry_environment"`
	RateLimit       RateLimitSettings `yaml:"rate_limit"`
	AWS             AWSConfig         `yaml:"aws"`
	ShutdownTimeout time.Duration     `yaml:"shutdown_timeout"`
}

// LoadConfig loads configuration from a YAML file and environment variables.
// Environment variables override YAML values.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		// Defaults
		Addr:            ":8080",
		APIKeyScopes:    []string{"convert:run", "conversions:*", "discovery:sync"},
		RateLimit:       RateLimitSettings{RequestsPerSecond: 100, Burst: 200},
		ShutdownTimeout: 15 * time.Second,
	}

	// Load from YAML file if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if v := os.Getenv("IPRANGE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if p := os.Getenv("PORT"); p != "" { // Heroku-style
		cfg.Addr = ":" + p
	}
	if v := os.Getenv("IPRANGE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("IPRANGE_API_KEY_SCOPES"); v != "" {
		cfg.APIKeyScopes = splitAndTrim(v)
	}
	if v := os.Getenv("SQLITE_DSN"); v != "" {
		cfg.SQLiteDSN = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		cfg.SentryDSN = v
	}
	if v := os.Getenv("SENTRY_ENVIRONMENT"); v != "" {
		cfg.SentryEnv = v
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = parsed
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("IPRANGE_AWS_ENABLED"); v != "" {
		cfg.AWS.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("IPRANGE_AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("IPRANGE_AWS_ACCOUNT_ID"); v != "" {
		cfg.AWS.AccountID = v
	}
	if v := os.Getenv("IPRANGE_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required (set IPRANGE_ADDR or yaml)")
	}
	if c.APIKey != "" && len(c.APIKeyScopes) == 0 {
		return errors.New("api_key_scopes must not be empty when api_key is set")
	}
	if c.ShutdownTimeout < time.Second {
		return errors.New("shutdown_timeout must be at least 1 second")
	}
	return nil
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
