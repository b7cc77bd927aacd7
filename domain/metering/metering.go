// Package metering provides metered-billing value types and idempotency key
// derivation. All functions are pure - no side effects.
package metering

import (
	"encoding/hex"
	"errors"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// DefaultEventName is the meter the download usage is reported against.
const DefaultEventName = "photo_downloads_meter"

// DefaultCustomerKey is the payload key the provider maps to a customer.
const DefaultCustomerKey = "stripe_customer_id"

// KeyBytes is the idempotency key size before hex encoding.
const KeyBytes = 16

// ErrNoItems is returned when a subscription has no billable line items.
var ErrNoItems = errors.New("subscription has no billable items")

// Item is a billable line item of a subscription.
type Item struct {
	ID      string
	PriceID string
}

// Subscription is the provider-side subscription (value type).
type Subscription struct {
	ID         string
	CustomerID string
	Status     string
	Items      []Item
}

// FirstItem returns the first billable line item.
func (s Subscription) FirstItem() (Item, error) {
	if len(s.Items) == 0 {
		return Item{}, ErrNoItems
	}
	return s.Items[0], nil
}

// UsageEvent is one unit of consumption reported to the metering provider.
type UsageEvent struct {
	EventName          string
	CustomerKey        string // payload key for the customer ID
	CustomerID         string
	Value              int64
	SubscriptionItemID string
	IdempotencyKey     string
}

// Payload returns the provider payload: {<customer key>: id, "value": "<n>"}.
func (e UsageEvent) Payload() map[string]string {
	key := e.CustomerKey
	if key == "" {
		key = DefaultCustomerKey
	}
	return map[string]string{
		key:     e.CustomerID,
		"value": strconv.FormatInt(e.Value, 10),
	}
}

// NewDownloadEvent builds the usage event for a single download.
func NewDownloadEvent(eventName, customerKey, customerID string, item Item, idempotencyKey string) UsageEvent {
	if eventName == "" {
		eventName = DefaultEventName
	}
	return UsageEvent{
		EventName:          eventName,
		CustomerKey:        customerKey,
		CustomerID:         customerID,
		Value:              1,
		SubscriptionItemID: item.ID,
		IdempotencyKey:     idempotencyKey,
	}
}

// DeriveKey computes a deterministic idempotency key from the stable
// attributes of a logical request. Equal inputs always give the same key, so
// a replayed request is deduplicated by the provider.
//
// The key is BLAKE2b-128 keyed with the hashed secret, over length-prefixed
// fields, hex encoded.
func DeriveKey(secret, userID string, image []byte, requestID string) string {
	mac := blake2b.Sum256([]byte(secret))
	h, err := blake2b.New(KeyBytes, mac[:])
	if err != nil {
		// Only possible for invalid sizes, which are constants here.
		panic(err)
	}
	for _, field := range [][]byte{[]byte(userID), image, []byte(requestID)} {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RandomKey hex encodes KeyBytes of caller-provided random bytes.
func RandomKey(b []byte) string {
	return hex.EncodeToString(b)
}
