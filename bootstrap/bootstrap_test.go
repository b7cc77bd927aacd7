package bootstrap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AR-937/framevault-app/adapters/auth"
	"github.com/AR-937/framevault-app/adapters/memory"
	"github.com/AR-937/framevault-app/adapters/payment"
	"github.com/AR-937/framevault-app/adapters/sqlite"
	"github.com/AR-937/framevault-app/bootstrap"
	"github.com/AR-937/framevault-app/config"
	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("FRAMEVAULT_AUTH_JWT_SECRET", "bootstrap-secret")
	t.Setenv("FRAMEVAULT_DATABASE_DRIVER", "memory")
	t.Setenv("FRAMEVAULT_BILLING_MODE", "dummy")
	t.Setenv("FRAMEVAULT_METRICS_ENABLED", "true")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, opts bootstrap.Options) *bootstrap.App {
	t.Helper()
	if opts.LogOutput == nil {
		opts.LogOutput = &bytes.Buffer{}
	}
	a, err := bootstrap.New(cfg, opts)
	if err != nil {
		t.Fatalf("bootstrap.New: %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func TestBootstrap_Integration(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg, bootstrap.Options{Version: "test"})

	if a.HTTPServer == nil || a.Downloads == nil || a.Metrics == nil {
		t.Fatal("app not fully initialized")
	}

	customers, ok := a.Stores.Customers.(*memory.CustomerStore)
	if !ok {
		t.Fatalf("customers = %T, want *memory.CustomerStore", a.Stores.Customers)
	}
	customers.Put(customer.Customer{UserID: "user-1", ProviderCustomerID: "cus_1", SubscriptionID: "sub_1"})

	srv := httptest.NewServer(a.HTTPServer.Handler)
	defer srv.Close()

	tokens := auth.NewTokenService("bootstrap-secret", auth.DefaultAudience, time.Hour)
	tok, _, err := tokens.GenerateToken("user-1", "user-1@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/usage-meter", strings.NewReader(`{"image":"img_1"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		TotalDownloads int64 `json:"total_downloads"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.TotalDownloads != 1 {
		t.Errorf("total_downloads = %d, want 1", body.TotalDownloads)
	}

	dummy, ok := a.Metering.(*payment.DummyProvider)
	if !ok {
		t.Fatalf("metering = %T, want *payment.DummyProvider", a.Metering)
	}
	if n := len(dummy.Events()); n != 1 {
		t.Errorf("billing events = %d, want 1", n)
	}
	history, err := a.Stores.History.ListByUser(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(history) != 1 || string(history[0].Image) != `"img_1"` {
		t.Errorf("history = %+v, want one img_1 event", history)
	}
	if got := testutil.ToFloat64(a.Metrics.DownloadsRecorded); got != 1 {
		t.Errorf("downloads_recorded = %v, want 1", got)
	}

	mresp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	mresp.Body.Close()
	if mresp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", mresp.StatusCode)
	}
}

func TestBootstrap_SQLiteMigrated(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "bootstrap.db")

	a := newApp(t, cfg, bootstrap.Options{})

	if _, ok := a.Stores.Customers.(*sqlite.CustomerStore); !ok {
		t.Fatalf("customers = %T, want *sqlite.CustomerStore", a.Stores.Customers)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.Stores.Customers.GetByUserID(ctx, "nobody"); !errors.Is(err, customer.ErrNotFound) {
		t.Errorf("GetByUserID err = %v, want ErrNotFound", err)
	}

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health/ready status = %d, want 200", rec.Code)
	}
}

func TestBootstrap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *config.Config)
		want   string
	}{
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "oracle" }, "init database"},
		{"unknown auth", func(c *config.Config) { c.Auth.Mode = "saml" }, "init auth"},
		{"stripe without key", func(c *config.Config) { c.Billing.Mode = "stripe"; c.Billing.StripeKey = "" }, "init billing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)

			_, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: &bytes.Buffer{}})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestNewVerifier(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AuthConfig
		wantErr bool
	}{
		{"jwt", config.AuthConfig{Mode: "jwt", JWTSecret: "s"}, false},
		{"jwt without secret", config.AuthConfig{Mode: "jwt"}, true},
		{"remote", config.AuthConfig{Mode: "remote", Remote: config.RemoteConfig{URL: "http://auth.local"}}, false},
		{"remote without url", config.AuthConfig{Mode: "remote"}, true},
		{"unknown", config.AuthConfig{Mode: "ldap"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := bootstrap.NewVerifier(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v == nil {
				t.Error("verifier is nil")
			}
		})
	}
}

func TestBootstrap_HotReload(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	path := filepath.Join(t.TempDir(), "framevault.yaml")
	write := func(level string) {
		content := `
auth:
  mode: jwt
  jwt_secret: reload-secret
database:
  driver: memory
metrics:
  enabled: true
logging:
  level: ` + level + `
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("info")

	holder, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	a := newApp(t, holder.Get(), bootstrap.Options{Holder: holder})

	write("debug")
	if err := holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %s, want debug", zerolog.GlobalLevel())
	}
	if got := testutil.ToFloat64(a.Metrics.ConfigReloads); got != 1 {
		t.Errorf("config reloads = %v, want 1", got)
	}

	os.WriteFile(path, []byte("auth: [broken"), 0644)
	if err := holder.Reload(); err == nil {
		t.Fatal("Reload should fail for invalid YAML")
	}
	if got := testutil.ToFloat64(a.Metrics.ConfigReloadErrors); got != 1 {
		t.Errorf("config reload errors = %v, want 1", got)
	}
}

func TestLogOutput_SetFormat(t *testing.T) {
	var buf bytes.Buffer
	out := bootstrap.NewLogOutput(&buf, "json")
	logger := zerolog.New(out)

	logger.Info().Msg("first")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	out.SetFormat("console")
	logger.Info().Msg("second")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "second") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	bootstrap.SetLogLevel("warn")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("level = %s, want warn", zerolog.GlobalLevel())
	}

	bootstrap.SetLogLevel("nonsense")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %s, want info fallback", zerolog.GlobalLevel())
	}
}
