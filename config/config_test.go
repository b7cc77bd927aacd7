package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/AR-937/framevault-app/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  request_timeout: 5s

auth:
  mode: "remote"
  remote:
    url: "https://project.supabase.co"
    api_key: "anon"
    timeout: 3s

database:
  driver: "postgres"
  dsn: "postgres://localhost/framevault?sslmode=disable"

billing:
  mode: "stripe"
  stripe_key: "sk_test_123"

downloads:
  counter_mode: "legacy"
  idempotency: "random"

http:
  legacy_errors: true
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("Server = %s:%d, want 127.0.0.1:9090", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout)
	}
	if cfg.Auth.Remote.Timeout != 3*time.Second {
		t.Errorf("Auth.Remote.Timeout = %v, want 3s", cfg.Auth.Remote.Timeout)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %s, want postgres", cfg.Database.Driver)
	}
	if cfg.Billing.StripeKey != "sk_test_123" {
		t.Errorf("Billing.StripeKey = %s", cfg.Billing.StripeKey)
	}
	if cfg.Downloads.CounterMode != "legacy" || cfg.Downloads.Idempotency != "random" {
		t.Errorf("Downloads = %+v", cfg.Downloads)
	}
	if !cfg.HTTP.LegacyErrors {
		t.Error("HTTP.LegacyErrors should be true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, `
auth:
  jwt_secret: "s"
`)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"server.host", cfg.Server.Host, "0.0.0.0"},
		{"server.port", cfg.Server.Port, 8080},
		{"server.request_timeout", cfg.Server.RequestTimeout, 20 * time.Second},
		{"auth.mode", cfg.Auth.Mode, "jwt"},
		{"database.driver", cfg.Database.Driver, "sqlite"},
		{"database.dsn", cfg.Database.DSN, "framevault.db"},
		{"billing.mode", cfg.Billing.Mode, "none"},
		{"billing.meter_event_name", cfg.Billing.MeterEventName, "photo_downloads_meter"},
		{"billing.customer_payload_key", cfg.Billing.CustomerPayloadKey, "stripe_customer_id"},
		{"downloads.counter_mode", cfg.Downloads.CounterMode, "atomic"},
		{"downloads.idempotency", cfg.Downloads.Idempotency, "derived"},
		{"http.max_body_bytes", cfg.HTTP.MaxBodyBytes, int64(1 << 20)},
		{"http.legacy_errors", cfg.HTTP.LegacyErrors, false},
		{"logging.level", cfg.Logging.Level, "info"},
		{"logging.format", cfg.Logging.Format, "json"},
		{"metrics.path", cfg.Metrics.Path, "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")

	cfg := writeAndLoad(t, `
auth:
  jwt_secret: "${TEST_JWT_SECRET}"
database:
  driver: "memory"
`)

	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %s, want from-env", cfg.Auth.JWTSecret)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FRAMEVAULT_SERVER_PORT", "7070")
	t.Setenv("FRAMEVAULT_DATABASE_DRIVER", "memory")
	t.Setenv("FRAMEVAULT_DOWNLOADS_COUNTER_MODE", "legacy")
	t.Setenv("FRAMEVAULT_HTTP_LEGACY_ERRORS", "yes")
	t.Setenv("FRAMEVAULT_LOG_LEVEL", "debug")

	cfg := writeAndLoad(t, `
server:
  port: 9090
auth:
  jwt_secret: "s"
`)

	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("Driver = %s, want memory", cfg.Database.Driver)
	}
	if cfg.Downloads.CounterMode != "legacy" {
		t.Errorf("CounterMode = %s, want legacy", cfg.Downloads.CounterMode)
	}
	if !cfg.HTTP.LegacyErrors {
		t.Error("LegacyErrors should be true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"jwt without secret", `auth: {mode: jwt}`, "auth.jwt_secret"},
		{"remote without url", `auth: {mode: remote}`, "auth.remote.url"},
		{"unknown auth mode", `auth: {mode: oauth, jwt_secret: s}`, "auth.mode"},
		{"unknown driver", `{auth: {jwt_secret: s}, database: {driver: mysql}}`, "database.driver"},
		{"postgres without dsn", `{auth: {jwt_secret: s}, database: {driver: postgres}}`, "database.dsn"},
		{"unknown billing", `{auth: {jwt_secret: s}, billing: {mode: paddle}}`, "billing.mode"},
		{"stripe without key", `{auth: {jwt_secret: s}, billing: {mode: stripe}}`, "billing.stripe_key"},
		{"bad counter mode", `{auth: {jwt_secret: s}, downloads: {counter_mode: eventual}}`, "downloads.counter_mode"},
		{"bad idempotency", `{auth: {jwt_secret: s}, downloads: {idempotency: none}}`, "downloads.idempotency"},
		{"bad log level", `{auth: {jwt_secret: s}, logging: {level: trace}}`, "logging.level"},
		{"bad port", `{auth: {jwt_secret: s}, server: {port: 70000}}`, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FRAMEVAULT_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("FRAMEVAULT_DATABASE_DRIVER", "memory")
	t.Setenv("FRAMEVAULT_BILLING_MODE", "dummy")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret" || cfg.Billing.Mode != "dummy" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !config.HasEnvConfig() {
		t.Error("HasEnvConfig should be true")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Setenv("FRAMEVAULT_AUTH_JWT_SECRET", "")
	t.Setenv("FRAMEVAULT_AUTH_REMOTE_URL", "")

	if _, err := config.LoadWithFallback("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error without file or env")
	}

	path := writeConfig(t, validConfig())
	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback(file) error: %v", err)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("Driver = %s, want memory", cfg.Database.Driver)
	}

	t.Setenv("FRAMEVAULT_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("FRAMEVAULT_DATABASE_DRIVER", "memory")
	cfg, err = config.LoadWithFallback("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("LoadWithFallback(env) error: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %s, want env-secret", cfg.Auth.JWTSecret)
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}
