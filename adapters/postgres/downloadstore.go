package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/ports"
)

// DownloadStore implements ports.DownloadStore using Postgres.
type DownloadStore struct {
	db *DB
}

// NewDownloadStore creates a new Postgres download store.
func NewDownloadStore(db *DB) *DownloadStore {
	return &DownloadStore{db: db}
}

const insertDownloadSQL = `
	INSERT INTO downloads (id, user_id, image, created_at)
	VALUES ($1, $2, $3::jsonb, $4)`

// Insert appends a download event.
func (s *DownloadStore) Insert(ctx context.Context, e download.Event) error {
	if _, err := s.db.ExecContext(ctx, insertDownloadSQL,
		e.ID, e.UserID, string(e.Image), e.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert download: %w", err)
	}
	return nil
}

// CountByUser returns the number of events recorded for a user.
func (s *DownloadStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE user_id = $1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count downloads: %w", err)
	}
	return n, nil
}

const listDownloadsSQL = `
	SELECT id, user_id, image::text, created_at
	FROM downloads WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2`

// ListByUser returns a user's most recent events, newest first.
func (s *DownloadStore) ListByUser(ctx context.Context, userID string, limit int) ([]download.Event, error) {
	if limit <= 0 {
		limit = download.DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, listDownloadsSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var events []download.Event
	for rows.Next() {
		var e download.Event
		var image string
		if err := rows.Scan(&e.ID, &e.UserID, &image, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		e.Image = json.RawMessage(image)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Ensure interface compliance.
var (
	_ ports.DownloadStore   = (*DownloadStore)(nil)
	_ ports.DownloadHistory = (*DownloadStore)(nil)
)
