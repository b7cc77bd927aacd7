package postgres

import (
	"context"
	"fmt"

	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/ports"
)

// Ledger implements ports.DownloadLedger with one transaction per download.
type Ledger struct {
	db *DB
}

// NewLedger creates a new Postgres download ledger.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// RecordDownload inserts the event and increments the counter, committing
// both or neither. The UPDATE takes a row lock, so concurrent calls for one
// user are serialized by Postgres.
func (l *Ledger) RecordDownload(ctx context.Context, e download.Event) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertDownloadSQL,
		e.ID, e.UserID, string(e.Image), e.CreatedAt.UTC(),
	); err != nil {
		return 0, fmt.Errorf("insert download: %w", err)
	}

	total, err := incrementDownloads(ctx, tx, e.UserID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// Ensure interface compliance.
var _ ports.DownloadLedger = (*Ledger)(nil)
