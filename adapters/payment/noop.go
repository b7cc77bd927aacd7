package payment

import (
	"context"
	"errors"

	"github.com/AR-937/framevault-app/domain/metering"
	"github.com/AR-937/framevault-app/ports"
)

var (
	// ErrMeteringDisabled is returned when billing is not configured.
	ErrMeteringDisabled = errors.New("metering is not configured")
)

// NoopProvider is a metering provider for when billing is disabled.
// Every call fails, so downloads are stored but reported as upstream
// failures.
type NoopProvider struct{}

// NewNoopProvider creates a new no-op metering provider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Name returns the provider name.
func (p *NoopProvider) Name() string {
	return "none"
}

// GetSubscription returns an error as billing is disabled.
func (p *NoopProvider) GetSubscription(ctx context.Context, subscriptionID string) (metering.Subscription, error) {
	return metering.Subscription{}, ErrMeteringDisabled
}

// EmitUsageEvent returns an error as billing is disabled.
func (p *NoopProvider) EmitUsageEvent(ctx context.Context, e metering.UsageEvent) error {
	return ErrMeteringDisabled
}

// Ensure interface compliance.
var _ ports.MeteringService = (*NoopProvider)(nil)
