package payment

import (
	"fmt"

	"github.com/AR-937/framevault-app/config"
	"github.com/AR-937/framevault-app/ports"
)

// NewProvider creates a metering provider based on billing config.
func NewProvider(cfg config.BillingConfig) (ports.MeteringService, error) {
	switch cfg.Mode {
	case "stripe":
		if cfg.StripeKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		p, err := NewStripeProvider(StripeConfig{SecretKey: cfg.StripeKey})
		if err != nil {
			return nil, err
		}
		return p, nil

	case "dummy", "test":
		// Dummy provider for development - accepts every event
		return NewDummyProvider(), nil

	case "none", "":
		return NewNoopProvider(), nil

	default:
		return nil, fmt.Errorf("unknown billing mode: %s", cfg.Mode)
	}
}
