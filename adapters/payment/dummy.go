package payment

import (
	"context"
	"sync"

	"github.com/AR-937/framevault-app/domain/metering"
	"github.com/AR-937/framevault-app/ports"
)

// DummyProvider is a development metering provider. Every subscription has
// one line item and emitted events are kept in memory, deduplicated by
// idempotency key the way Stripe does.
type DummyProvider struct {
	mu     sync.Mutex
	events []metering.UsageEvent
	seen   map[string]bool

	// Optional failure injection.
	SubscriptionErr error
	EmitErr         error
	NoItems         bool
}

// NewDummyProvider creates a new dummy metering provider.
func NewDummyProvider() *DummyProvider {
	return &DummyProvider{seen: make(map[string]bool)}
}

// Name returns the provider name.
func (p *DummyProvider) Name() string {
	return "dummy"
}

// GetSubscription returns an active subscription with a single item.
func (p *DummyProvider) GetSubscription(ctx context.Context, subscriptionID string) (metering.Subscription, error) {
	if p.SubscriptionErr != nil {
		return metering.Subscription{}, p.SubscriptionErr
	}
	sub := metering.Subscription{
		ID:     subscriptionID,
		Status: "active",
	}
	if !p.NoItems {
		sub.Items = []metering.Item{{ID: "si_dummy_" + subscriptionID, PriceID: "price_dummy"}}
	}
	return sub, nil
}

// EmitUsageEvent records the event unless its key was already seen.
func (p *DummyProvider) EmitUsageEvent(ctx context.Context, e metering.UsageEvent) error {
	if p.EmitErr != nil {
		return p.EmitErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if e.IdempotencyKey != "" {
		if p.seen[e.IdempotencyKey] {
			return nil
		}
		p.seen[e.IdempotencyKey] = true
	}
	p.events = append(p.events, e)
	return nil
}

// Events returns a copy of the accepted events.
func (p *DummyProvider) Events() []metering.UsageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]metering.UsageEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Ensure interface compliance.
var _ ports.MeteringService = (*DummyProvider)(nil)
