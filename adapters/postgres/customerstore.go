package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/AR-937/framevault-app/ports"
)

// CustomerStore implements ports.CustomerStore using Postgres.
type CustomerStore struct {
	db *DB
}

// NewCustomerStore creates a new Postgres customer store.
func NewCustomerStore(db *DB) *CustomerStore {
	return &CustomerStore{db: db}
}

const selectCustomerSQL = `
	SELECT user_id, stripe_customer_id, COALESCE(subscription_id, ''),
	       total_downloads, created_at, updated_at
	FROM stripe_customers
	WHERE user_id = $1`

// GetByUserID retrieves the record for a user.
func (s *CustomerStore) GetByUserID(ctx context.Context, userID string) (customer.Customer, error) {
	var c customer.Customer
	err := s.db.QueryRowContext(ctx, selectCustomerSQL, userID).Scan(
		&c.UserID, &c.ProviderCustomerID, &c.SubscriptionID,
		&c.TotalDownloads, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return customer.Customer{}, customer.ErrNotFound
	}
	if err != nil {
		return customer.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

// SetTotalDownloads overwrites the download counter.
func (s *CustomerStore) SetTotalDownloads(ctx context.Context, userID string, total int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE stripe_customers SET total_downloads = $1, updated_at = now()
		WHERE user_id = $2`, total, userID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
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

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const incrementSQL = `
	UPDATE stripe_customers
	SET total_downloads = total_downloads + 1, updated_at = now()
	WHERE user_id = $1
	RETURNING total_downloads`

func incrementDownloads(ctx context.Context, q queryer, userID string) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx, incrementSQL, userID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, customer.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment downloads: %w", err)
	}
	return total, nil
}

// Ensure interface compliance.
var _ ports.CustomerStore = (*CustomerStore)(nil)
