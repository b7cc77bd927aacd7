// Package postgres provides Postgres implementations of storage ports over
// the hosted Supabase tables (stripe_customers, downloads).
//
// The stores expect the columns in migrations/001_usage_meter.sql: a UUID
// download id, a JSONB image and a BIGINT counter. The service never applies
// that file itself.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a Postgres connection pool.
type DB struct {
	*sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{DB: db}, nil
}

// Wrap uses an existing *sql.DB.
func Wrap(db *sql.DB) *DB {
	return &DB{DB: db}
}
