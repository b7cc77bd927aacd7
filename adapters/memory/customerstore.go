// Package memory provides in-memory implementations of storage ports.
// Intended for development (database.driver: memory) and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/AR-937/framevault-app/ports"
)

// CustomerStore is an in-memory implementation of ports.CustomerStore.
type CustomerStore struct {
	mu        sync.RWMutex
	customers map[string]customer.Customer // by user ID
}

// NewCustomerStore creates a new in-memory customer store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		customers: make(map[string]customer.Customer),
	}
}

// Put creates or replaces a customer record.
func (s *CustomerStore) Put(c customer.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.customers[c.UserID] = c
}

// GetByUserID retrieves the record for a user.
func (s *CustomerStore) GetByUserID(ctx context.Context, userID string) (customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[userID]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, nil
}

// SetTotalDownloads overwrites the download counter.
func (s *CustomerStore) SetTotalDownloads(ctx context.Context, userID string, total int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[userID]
	if !ok {
		return customer.ErrNotFound
	}
	c.TotalDownloads = total
	c.UpdatedAt = time.Now().UTC()
	s.customers[userID] = c
	return nil
}

// IncrementDownloads adds one to the counter under the store lock.
func (s *CustomerStore) IncrementDownloads(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[userID]
	if !ok {
		return 0, customer.ErrNotFound
	}
	c.TotalDownloads++
	c.UpdatedAt = time.Now().UTC()
	s.customers[userID] = c
	return c.TotalDownloads, nil
}

// Ensure interface compliance.
var _ ports.CustomerStore = (*CustomerStore)(nil)
