package sqlite

import (
	"context"
	"encoding/json"

	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/ports"
)

// DownloadStore implements ports.DownloadStore using SQLite.
type DownloadStore struct {
	db *DB
}

// NewDownloadStore creates a new SQLite download store.
func NewDownloadStore(db *DB) *DownloadStore {
	return &DownloadStore{db: db}
}

// Insert appends a download event. The image is stored as JSON text.
func (s *DownloadStore) Insert(ctx context.Context, e download.Event) error {
	_, err := s.db.ExecContext(ctx, insertDownloadSQL,
		e.ID, e.UserID, string(e.Image), e.CreatedAt.UTC(),
	)
	return err
}

// CountByUser returns the number of events recorded for a user.
func (s *DownloadStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM downloads WHERE user_id = ?`, userID,
	).Scan(&n)
	return n, err
}

// ListByUser returns a user's most recent events, newest first.
func (s *DownloadStore) ListByUser(ctx context.Context, userID string, limit int) ([]download.Event, error) {
	if limit <= 0 {
		limit = download.DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, image, created_at
		FROM downloads WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []download.Event
	for rows.Next() {
		var e download.Event
		var image string
		if err := rows.Scan(&e.ID, &e.UserID, &image, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Image = json.RawMessage(image)
		events = append(events, e)
	}
	return events, rows.Err()
}

const insertDownloadSQL = `
	INSERT INTO downloads (id, user_id, image, created_at) VALUES (?, ?, ?, ?)
`

// Ensure interface compliance.
var (
	_ ports.DownloadStore   = (*DownloadStore)(nil)
	_ ports.DownloadHistory = (*DownloadStore)(nil)
)
