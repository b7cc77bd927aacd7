// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/domain/identity"
	"github.com/AR-937/framevault-app/domain/metering"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Random abstracts randomness for testability.
type Random interface {
	// Bytes generates n random bytes.
	Bytes(n int) ([]byte, error)
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Identity Ports
// -----------------------------------------------------------------------------

// IdentityVerifier exchanges a bearer token for a user identity.
type IdentityVerifier interface {
	// Verify returns the user the token belongs to, or an error if the
	// token is invalid, expired, or cannot be checked.
	Verify(ctx context.Context, token string) (identity.User, error)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// CustomerStore persists per-user billing records (the entitlement store).
type CustomerStore interface {
	// GetByUserID retrieves the record for a user.
	// Returns the adapter's ErrNotFound when no record exists.
	GetByUserID(ctx context.Context, userID string) (customer.Customer, error)

	// SetTotalDownloads overwrites the download counter.
	SetTotalDownloads(ctx context.Context, userID string, total int64) error

	// IncrementDownloads atomically adds one to the counter and returns the
	// new value.
	IncrementDownloads(ctx context.Context, userID string) (int64, error)
}

// DownloadStore persists download events (append-only).
type DownloadStore interface {
	// Insert appends a download event.
	Insert(ctx context.Context, e download.Event) error

	// CountByUser returns the number of events recorded for a user.
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// DownloadLedger records a download event and bumps the user's counter as one
// unit. Implementations backed by a transactional store commit both or
// neither.
type DownloadLedger interface {
	// RecordDownload inserts the event, increments the counter, and returns
	// the new counter value.
	RecordDownload(ctx context.Context, e download.Event) (int64, error)
}

// DownloadHistory lists recorded download events for operators.
type DownloadHistory interface {
	// ListByUser returns up to limit events, newest first.
	// A limit of zero or less uses the adapter default.
	ListByUser(ctx context.Context, userID string, limit int) ([]download.Event, error)
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// MeteringService interfaces with the usage-based billing provider.
type MeteringService interface {
	// Name returns the provider name (e.g., "stripe", "dummy").
	Name() string

	// GetSubscription retrieves a subscription with its line items.
	GetSubscription(ctx context.Context, subscriptionID string) (metering.Subscription, error)

	// EmitUsageEvent submits one usage event. The provider deduplicates by
	// the event's idempotency key.
	EmitUsageEvent(ctx context.Context, e metering.UsageEvent) error
}

// UsageObserver receives recorder outcomes (metrics).
type UsageObserver interface {
	// DownloadRecorded is called once a download event is persisted.
	DownloadRecorded()

	// MeteringEvent is called after each usage event submission attempt.
	MeteringEvent(err error)
}

// -----------------------------------------------------------------------------
// Health Ports
// -----------------------------------------------------------------------------

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}
