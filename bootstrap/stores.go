package bootstrap

import (
	"context"
	"fmt"

	"github.com/AR-937/framevault-app/adapters/auth"
	"github.com/AR-937/framevault-app/adapters/memory"
	"github.com/AR-937/framevault-app/adapters/postgres"
	"github.com/AR-937/framevault-app/adapters/remote"
	"github.com/AR-937/framevault-app/adapters/sqlite"
	"github.com/AR-937/framevault-app/config"
	"github.com/AR-937/framevault-app/ports"
)

// Stores bundles the store adapters selected by database.driver.
type Stores struct {
	Customers ports.CustomerStore
	Downloads ports.DownloadStore
	Ledger    ports.DownloadLedger
	History   ports.DownloadHistory
	Pinger    ports.Pinger // nil for the in-memory driver

	close func() error
}

// Close releases the underlying connection, if any.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores opens the configured database and builds its stores.
// SQLite databases are migrated on open. Postgres schemas are applied
// from adapters/postgres/migrations outside the process.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	switch cfg.Driver {
	case "sqlite", "":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		downloads := sqlite.NewDownloadStore(db)
		return &Stores{
			Customers: sqlite.NewCustomerStore(db),
			Downloads: downloads,
			Ledger:    sqlite.NewLedger(db),
			History:   downloads,
			Pinger:    db,
			close:     db.Close,
		}, nil

	case "postgres":
		db, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		downloads := postgres.NewDownloadStore(db)
		return &Stores{
			Customers: postgres.NewCustomerStore(db),
			Downloads: downloads,
			Ledger:    postgres.NewLedger(db),
			History:   downloads,
			Pinger:    db,
			close:     db.Close,
		}, nil

	case "memory":
		customers := memory.NewCustomerStore()
		downloads := memory.NewDownloadStore()
		return &Stores{
			Customers: customers,
			Downloads: downloads,
			Ledger:    memory.NewLedger(customers, downloads),
			History:   downloads,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

// NewVerifier builds the identity verifier selected by auth.mode.
func NewVerifier(cfg config.AuthConfig) (ports.IdentityVerifier, error) {
	switch cfg.Mode {
	case "jwt", "":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("auth.jwt_secret is required in jwt mode")
		}
		return auth.NewTokenService(cfg.JWTSecret, cfg.Audience, 0), nil

	case "remote":
		if cfg.Remote.URL == "" {
			return nil, fmt.Errorf("auth.remote.url is required in remote mode")
		}
		client := remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.Remote.URL,
			APIKey:  cfg.Remote.APIKey,
			Timeout: cfg.Remote.Timeout,
			Headers: cfg.Remote.Headers,
		})
		return remote.NewIdentityVerifier(client), nil

	default:
		return nil, fmt.Errorf("unknown auth mode: %s", cfg.Mode)
	}
}
