package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/AR-937/framevault-app/ports"
)

// CustomerStore implements ports.CustomerStore using SQLite.
type CustomerStore struct {
	db *DB
}

// NewCustomerStore creates a new SQLite customer store.
func NewCustomerStore(db *DB) *CustomerStore {
	return &CustomerStore{db: db}
}

// GetByUserID retrieves the record for a user.
func (s *CustomerStore) GetByUserID(ctx context.Context, userID string) (customer.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, stripe_customer_id, COALESCE(subscription_id, ''),
		       total_downloads, created_at, updated_at
		FROM stripe_customers WHERE user_id = ?
	`, userID)
	return scanCustomer(row)
}

// Save creates or replaces a customer record. The download counter is kept
// as given.
func (s *CustomerStore) Save(ctx context.Context, c customer.Customer) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stripe_customers (
			user_id, stripe_customer_id, subscription_id, total_downloads, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			stripe_customer_id = excluded.stripe_customer_id,
			subscription_id = excluded.subscription_id,
			total_downloads = excluded.total_downloads,
			updated_at = excluded.updated_at
	`, c.UserID, c.ProviderCustomerID, nullString(c.SubscriptionID), c.TotalDownloads, c.CreatedAt.UTC(), now)
	return err
}

// SetTotalDownloads overwrites the download counter.
func (s *CustomerStore) SetTotalDownloads(ctx context.Context, userID string, total int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE stripe_customers SET total_downloads = ?, updated_at = ? WHERE user_id = ?
	`, total, time.Now().UTC(), userID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// IncrementDownloads adds one to the counter in a single statement.
func (s *CustomerStore) IncrementDownloads(ctx context.Context, userID string) (int64, error) {
	return incrementDownloads(ctx, s.db, userID)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func incrementDownloads(ctx context.Context, q queryer, userID string) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx, `
		UPDATE stripe_customers
		SET total_downloads = total_downloads + 1, updated_at = ?
		WHERE user_id = ?
		RETURNING total_downloads
	`, time.Now().UTC(), userID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, customer.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return total, nil
}

func scanCustomer(row *sql.Row) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.UserID, &c.ProviderCustomerID, &c.SubscriptionID,
		&c.TotalDownloads, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return customer.Customer{}, customer.ErrNotFound
	}
	if err != nil {
		return customer.Customer{}, err
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure interface compliance.
var _ ports.CustomerStore = (*CustomerStore)(nil)
