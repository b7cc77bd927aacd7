// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AR-937/framevault-app/adapters/clock"
	apihttp "github.com/AR-937/framevault-app/adapters/http"
	"github.com/AR-937/framevault-app/adapters/idgen"
	"github.com/AR-937/framevault-app/adapters/metrics"
	"github.com/AR-937/framevault-app/adapters/payment"
	"github.com/AR-937/framevault-app/adapters/random"
	"github.com/AR-937/framevault-app/app"
	"github.com/AR-937/framevault-app/config"
	"github.com/AR-937/framevault-app/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Stores     *Stores
	Downloads  *app.DownloadService
	Metering   ports.MeteringService

	logOutput *LogOutput
	holder    *config.Holder
}

// Options provides optional configuration for application initialization.
type Options struct {
	// Holder enables hot reload of logging settings.
	Holder *config.Holder
	// LogOutput defaults to os.Stdout.
	LogOutput io.Writer
	// Version is reported by /version.
	Version string
}

// New creates and initializes the application from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger, sink := NewLogger(cfg.Logging, opts.LogOutput)

	logger.Info().
		Str("database", cfg.Database.Driver).
		Str("auth", cfg.Auth.Mode).
		Str("billing", cfg.Billing.Mode).
		Msg("initializing framevault")

	a := &App{
		Logger:    logger,
		Config:    cfg,
		logOutput: sink,
		holder:    opts.Holder,
	}

	stores, err := OpenStores(context.Background(), cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.Stores = stores

	verifier, err := NewVerifier(cfg.Auth)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("init auth: %w", err)
	}

	a.Metering, err = payment.NewProvider(cfg.Billing)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("init billing: %w", err)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if cfg.Downloads.Idempotency == string(app.KeyDerived) && cfg.Downloads.IdempotencySecret == "" {
		logger.Warn().Msg("downloads.idempotency_secret is empty, derived idempotency keys are unkeyed")
	}
	if cfg.Downloads.CounterMode == string(app.CounterLegacy) {
		logger.Warn().Msg("legacy counter mode can lose increments under concurrent calls")
	}

	deps := app.DownloadDeps{
		Verifier:  verifier,
		Customers: stores.Customers,
		Downloads: stores.Downloads,
		Ledger:    stores.Ledger,
		Metering:  a.Metering,
		IDGen:     idgen.UUID{},
		Random:    random.Crypto{},
		Clock:     clock.Real{},
		Logger:    logger.With().Str("component", "usage_meter").Logger(),
	}
	if a.Metrics != nil {
		deps.Observer = a.Metrics
	}
	a.Downloads = app.NewDownloadService(deps, app.DownloadConfig{
		CounterMode:    app.CounterMode(cfg.Downloads.CounterMode),
		KeyMode:        app.KeyMode(cfg.Downloads.Idempotency),
		KeySecret:      cfg.Downloads.IdempotencySecret,
		MeterEventName: cfg.Billing.MeterEventName,
		CustomerKey:    cfg.Billing.CustomerPayloadKey,
		LegacyLookup:   cfg.HTTP.LegacyErrors,
	})

	usage := apihttp.NewUsageMeterHandler(a.Downloads, logger, apihttp.UsageMeterOptions{
		LegacyErrors: cfg.HTTP.LegacyErrors,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Metrics:      a.Metrics,
	})
	router := apihttp.NewRouter(usage, apihttp.NewHealthHandler(stores.Pinger), logger, apihttp.RouterConfig{
		Metrics:        a.Metrics,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
		EnableOpenAPI:  cfg.OpenAPI.Enabled,
		RequestTimeout: cfg.Server.RequestTimeout,
		Version:        opts.Version,
	})

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if opts.Holder != nil {
		opts.Holder.OnChange(a.applyConfig)
		opts.Holder.OnError(func(error) {
			if a.Metrics != nil {
				a.Metrics.ConfigReloadErrors.Inc()
			}
		})
	}

	return a, nil
}

// applyConfig applies the reloadable fields of a new configuration.
func (a *App) applyConfig(cfg *config.Config) {
	SetLogLevel(cfg.Logging.Level)
	a.logOutput.SetFormat(cfg.Logging.Format)

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}

	a.Logger.Info().
		Str("level", cfg.Logging.Level).
		Str("format", cfg.Logging.Format).
		Msg("logging settings applied")
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	timeout := a.Config.Server.ShutdownTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Close database
	if a.Stores != nil {
		if err := a.Stores.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}
