package memory

import (
	"context"
	"sync"

	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/ports"
)

// DownloadStore is an in-memory implementation of ports.DownloadStore.
type DownloadStore struct {
	mu     sync.RWMutex
	events []download.Event
}

// NewDownloadStore creates a new in-memory download store.
func NewDownloadStore() *DownloadStore {
	return &DownloadStore{
		events: make([]download.Event, 0),
	}
}

// Insert appends a download event.
func (s *DownloadStore) Insert(ctx context.Context, e download.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
	return nil
}

// CountByUser returns the number of events recorded for a user.
func (s *DownloadStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.events {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ListByUser returns a user's most recent events, newest first.
func (s *DownloadStore) ListByUser(ctx context.Context, userID string, limit int) ([]download.Event, error) {
	if limit <= 0 {
		limit = download.DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []download.Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].UserID == userID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// remove deletes an event by ID; used only to undo a failed ledger entry.
func (s *DownloadStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.events {
		if e.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return
		}
	}
}

// Ensure interface compliance.
var (
	_ ports.DownloadStore   = (*DownloadStore)(nil)
	_ ports.DownloadHistory = (*DownloadStore)(nil)
)
