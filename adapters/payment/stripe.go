// Package payment provides metering provider adapters.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/AR-937/framevault-app/domain/metering"
	"github.com/AR-937/framevault-app/ports"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/billing/meterevent"
	"github.com/stripe/stripe-go/v81/subscription"
)

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey string
	// Backend overrides the API backend; nil uses the default Stripe API.
	Backend stripe.Backend
}

// StripeProvider implements ports.MeteringService using Stripe Billing
// meter events.
type StripeProvider struct {
	subscriptions *subscription.Client
	meterEvents   *meterevent.Client
}

// NewStripeProvider creates a new Stripe metering provider.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if config.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}

	backend := config.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}

	return &StripeProvider{
		subscriptions: &subscription.Client{B: backend, Key: config.SecretKey},
		meterEvents:   &meterevent.Client{B: backend, Key: config.SecretKey},
	}, nil
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// GetSubscription retrieves a subscription with its line items.
func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (metering.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := p.subscriptions.Get(subscriptionID, params)
	if err != nil {
		return metering.Subscription{}, fmt.Errorf("stripe: get subscription %s: %w", subscriptionID, err)
	}
	return mapSubscription(s), nil
}

// EmitUsageEvent creates a billing meter event. The event's idempotency key
// is sent both as the request idempotency key and as the meter event
// identifier, so Stripe drops replays at either layer.
func (p *StripeProvider) EmitUsageEvent(ctx context.Context, e metering.UsageEvent) error {
	params := &stripe.BillingMeterEventParams{
		EventName: stripe.String(e.EventName),
		Payload:   e.Payload(),
	}
	params.Context = ctx
	if e.IdempotencyKey != "" {
		params.Identifier = stripe.String(e.IdempotencyKey)
		params.SetIdempotencyKey(e.IdempotencyKey)
	}

	if _, err := p.meterEvents.New(params); err != nil {
		return fmt.Errorf("stripe: create meter event: %w", err)
	}
	return nil
}

func mapSubscription(s *stripe.Subscription) metering.Subscription {
	sub := metering.Subscription{
		ID:     s.ID,
		Status: string(s.Status),
	}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	if s.Items == nil {
		return sub
	}
	for _, item := range s.Items.Data {
		if item == nil {
			continue
		}
		mapped := metering.Item{ID: item.ID}
		if item.Price != nil {
			mapped.PriceID = item.Price.ID
		}
		sub.Items = append(sub.Items, mapped)
	}
	return sub
}

// Ensure interface compliance.
var _ ports.MeteringService = (*StripeProvider)(nil)
