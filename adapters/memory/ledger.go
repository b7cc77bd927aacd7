package memory

import (
	"context"
	"sync"

	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/ports"
)

// Ledger records a download and bumps the counter as one step over the
// in-memory stores. Ledger calls are serialized.
type Ledger struct {
	mu        sync.Mutex
	customers *CustomerStore
	downloads *DownloadStore
}

// NewLedger creates a ledger over the given stores.
func NewLedger(customers *CustomerStore, downloads *DownloadStore) *Ledger {
	return &Ledger{customers: customers, downloads: downloads}
}

// RecordDownload inserts the event and increments the counter. If the
// increment fails the event is removed again.
func (l *Ledger) RecordDownload(ctx context.Context, e download.Event) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.downloads.Insert(ctx, e); err != nil {
		return 0, err
	}

	total, err := l.customers.IncrementDownloads(ctx, e.UserID)
	if err != nil {
		l.downloads.remove(e.ID)
		return 0, err
	}
	return total, nil
}

// Ensure interface compliance.
var _ ports.DownloadLedger = (*Ledger)(nil)
