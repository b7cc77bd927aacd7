// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Billing   BillingConfig   `yaml:"billing"`
	Downloads DownloadsConfig `yaml:"downloads"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	OpenAPI   OpenAPIConfig   `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures caller authentication.
// Use "jwt" to verify tokens locally or "remote" to ask the auth service.
type AuthConfig struct {
	Mode      string       `yaml:"mode"`                 // "jwt" or "remote"
	JWTSecret string       `yaml:"jwt_secret,omitempty"` // Project JWT secret (HS256)
	Audience  string       `yaml:"audience,omitempty"`   // Expected aud claim, empty = not checked
	Remote    RemoteConfig `yaml:"remote,omitempty"`
}

// RemoteConfig configures a remote service endpoint.
type RemoteConfig struct {
	URL     string            `yaml:"url"`
	APIKey  string            `yaml:"api_key,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DatabaseConfig configures the entitlement and event stores.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres", or "memory"
	DSN    string `yaml:"dsn"`
}

// BillingConfig configures usage metering.
// Use "stripe", "dummy", or "none".
type BillingConfig struct {
	Mode               string `yaml:"mode"`
	StripeKey          string `yaml:"stripe_key,omitempty"`
	MeterEventName     string `yaml:"meter_event_name"`
	CustomerPayloadKey string `yaml:"customer_payload_key"`
}

// DownloadsConfig configures how downloads are counted and keyed.
type DownloadsConfig struct {
	CounterMode       string `yaml:"counter_mode"` // "atomic" or "legacy"
	Idempotency       string `yaml:"idempotency"`  // "derived" or "random"
	IdempotencySecret string `yaml:"idempotency_secret,omitempty"`
}

// HTTPConfig configures the usage-meter endpoint.
type HTTPConfig struct {
	LegacyErrors bool  `yaml:"legacy_errors"` // Report every failure as 500 {message}
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"` // Enable /swagger endpoints
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for container deployments where no config file is needed.
//
// Environment variables:
//
//	FRAMEVAULT_SERVER_HOST              - Server host (default: 0.0.0.0)
//	FRAMEVAULT_SERVER_PORT              - Server port (default: 8080)
//	FRAMEVAULT_AUTH_MODE                - jwt or remote (default: jwt)
//	FRAMEVAULT_AUTH_JWT_SECRET          - JWT secret (required for jwt)
//	FRAMEVAULT_AUTH_REMOTE_URL          - Auth service URL (required for remote)
//	FRAMEVAULT_AUTH_REMOTE_API_KEY      - Auth service API key
//	FRAMEVAULT_DATABASE_DRIVER          - sqlite, postgres, or memory (default: sqlite)
//	FRAMEVAULT_DATABASE_DSN             - Database DSN (default: framevault.db)
//	FRAMEVAULT_BILLING_MODE             - stripe, dummy, or none (default: none)
//	FRAMEVAULT_BILLING_STRIPE_KEY       - Stripe secret key
//	FRAMEVAULT_DOWNLOADS_COUNTER_MODE   - atomic or legacy (default: atomic)
//	FRAMEVAULT_DOWNLOADS_IDEMPOTENCY    - derived or random (default: derived)
//	FRAMEVAULT_DOWNLOADS_IDEMPOTENCY_SECRET - Secret for derived keys
//	FRAMEVAULT_HTTP_LEGACY_ERRORS       - Report all failures as 500
//	FRAMEVAULT_LOG_LEVEL                - debug, info, warn, error (default: info)
//	FRAMEVAULT_LOG_FORMAT               - json or console (default: json)
//	FRAMEVAULT_METRICS_ENABLED          - Enable /metrics endpoint
//	FRAMEVAULT_OPENAPI_ENABLED          - Enable Swagger UI
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set FRAMEVAULT_AUTH_JWT_SECRET or FRAMEVAULT_AUTH_REMOTE_URL")
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv("FRAMEVAULT_AUTH_JWT_SECRET") != "" || os.Getenv("FRAMEVAULT_AUTH_REMOTE_URL") != ""
}

// applyEnvOverrides applies FRAMEVAULT_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("FRAMEVAULT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FRAMEVAULT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FRAMEVAULT_SERVER_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}

	// Auth configuration
	if v := os.Getenv("FRAMEVAULT_AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("FRAMEVAULT_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("FRAMEVAULT_AUTH_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	if v := os.Getenv("FRAMEVAULT_AUTH_REMOTE_URL"); v != "" {
		cfg.Auth.Remote.URL = v
	}
	if v := os.Getenv("FRAMEVAULT_AUTH_REMOTE_API_KEY"); v != "" {
		cfg.Auth.Remote.APIKey = v
	}

	// Database configuration
	if v := os.Getenv("FRAMEVAULT_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FRAMEVAULT_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Billing configuration
	if v := os.Getenv("FRAMEVAULT_BILLING_MODE"); v != "" {
		cfg.Billing.Mode = v
	}
	if v := os.Getenv("FRAMEVAULT_BILLING_STRIPE_KEY"); v != "" {
		cfg.Billing.StripeKey = v
	}
	if v := os.Getenv("FRAMEVAULT_BILLING_METER_EVENT_NAME"); v != "" {
		cfg.Billing.MeterEventName = v
	}

	// Downloads configuration
	if v := os.Getenv("FRAMEVAULT_DOWNLOADS_COUNTER_MODE"); v != "" {
		cfg.Downloads.CounterMode = v
	}
	if v := os.Getenv("FRAMEVAULT_DOWNLOADS_IDEMPOTENCY"); v != "" {
		cfg.Downloads.Idempotency = v
	}
	if v := os.Getenv("FRAMEVAULT_DOWNLOADS_IDEMPOTENCY_SECRET"); v != "" {
		cfg.Downloads.IdempotencySecret = v
	}

	// HTTP configuration
	if v := os.Getenv("FRAMEVAULT_HTTP_LEGACY_ERRORS"); v != "" {
		cfg.HTTP.LegacyErrors = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("FRAMEVAULT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FRAMEVAULT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("FRAMEVAULT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("FRAMEVAULT_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// OpenAPI configuration
	if v := os.Getenv("FRAMEVAULT_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 20 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = "jwt"
	}
	if cfg.Auth.Remote.Timeout == 0 {
		cfg.Auth.Remote.Timeout = 5 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "framevault.db"
	}

	if cfg.Billing.Mode == "" {
		cfg.Billing.Mode = "none"
	}
	if cfg.Billing.MeterEventName == "" {
		cfg.Billing.MeterEventName = "photo_downloads_meter"
	}
	if cfg.Billing.CustomerPayloadKey == "" {
		cfg.Billing.CustomerPayloadKey = "stripe_customer_id"
	}

	if cfg.Downloads.CounterMode == "" {
		cfg.Downloads.CounterMode = "atomic"
	}
	if cfg.Downloads.Idempotency == "" {
		cfg.Downloads.Idempotency = "derived"
	}

	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Auth.Mode {
	case "jwt":
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required when auth.mode is 'jwt'")
		}
	case "remote":
		if cfg.Auth.Remote.URL == "" {
			return fmt.Errorf("auth.remote.url is required when auth.mode is 'remote'")
		}
	default:
		return fmt.Errorf("auth.mode must be 'jwt' or 'remote', got %q", cfg.Auth.Mode)
	}

	switch cfg.Database.Driver {
	case "sqlite", "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", cfg.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, memory")
	}

	validBillingModes := map[string]bool{"none": true, "stripe": true, "dummy": true, "test": true}
	if !validBillingModes[cfg.Billing.Mode] {
		return fmt.Errorf("billing.mode must be one of: none, stripe, dummy")
	}
	if cfg.Billing.Mode == "stripe" && cfg.Billing.StripeKey == "" {
		return fmt.Errorf("billing.stripe_key is required when billing.mode is 'stripe'")
	}

	if cfg.Downloads.CounterMode != "atomic" && cfg.Downloads.CounterMode != "legacy" {
		return fmt.Errorf("downloads.counter_mode must be 'atomic' or 'legacy', got %q", cfg.Downloads.CounterMode)
	}
	if cfg.Downloads.Idempotency != "derived" && cfg.Downloads.Idempotency != "random" {
		return fmt.Errorf("downloads.idempotency must be 'derived' or 'random', got %q", cfg.Downloads.Idempotency)
	}

	if cfg.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
