// Package customer provides the billing customer record and entitlement rules.
// All functions are pure - no side effects.
package customer

import (
	"errors"
	"time"
)

// Customer is the per-user billing record (value type).
// One record exists per user; SubscriptionID is empty when the user has
// no subscription.
type Customer struct {
	UserID             string
	ProviderCustomerID string // Stripe customer ID (cus_...)
	SubscriptionID     string // Stripe subscription ID (sub_...), empty = not subscribed
	TotalDownloads     int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsEntitled reports whether the customer may record a download.
// A record without a subscription grants nothing.
func (c Customer) IsEntitled() bool {
	return c.SubscriptionID != ""
}

// NextTotal returns the counter value after one more download,
// computed from this (possibly stale) snapshot.
func (c Customer) NextTotal() int64 {
	return c.TotalDownloads + 1
}

// ErrNotFound is returned by stores when a user has no customer record.
var ErrNotFound = errors.New("customer not found")
