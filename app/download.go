// Package app contains the DownloadService, which records billable download
// usage for authenticated users.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/AR-937/framevault-app/domain/customer"
	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/domain/identity"
	"github.com/AR-937/framevault-app/domain/metering"
	"github.com/AR-937/framevault-app/ports"
	"github.com/rs/zerolog"
)

// CounterMode selects how the download counter is updated.
type CounterMode string

const (
	// CounterAtomic records the event and increments the counter in a single
	// store operation.
	CounterAtomic CounterMode = "atomic"
	// CounterLegacy inserts the event, then writes the previously read
	// counter plus one. Concurrent calls for one user can lose increments.
	CounterLegacy CounterMode = "legacy"
)

// KeyMode selects how billing idempotency keys are produced.
type KeyMode string

const (
	// KeyDerived hashes user, image, and request ID so replays share a key.
	KeyDerived KeyMode = "derived"
	// KeyRandom draws a fresh random key per call.
	KeyRandom KeyMode = "random"
)

// SuccessMessage is returned with every recorded download.
const SuccessMessage = "Usage record created successfully!"

// DownloadConfig configures the DownloadService.
type DownloadConfig struct {
	CounterMode    CounterMode
	KeyMode        KeyMode
	KeySecret      string
	MeterEventName string
	CustomerKey    string
	// LegacyLookup reports store lookup failures as NotEntitled instead of
	// UpstreamFailure.
	LegacyLookup bool
}

// DownloadDeps contains all dependencies for the DownloadService.
type DownloadDeps struct {
	Verifier  ports.IdentityVerifier
	Customers ports.CustomerStore
	Downloads ports.DownloadStore
	Ledger    ports.DownloadLedger
	Metering  ports.MeteringService
	IDGen     ports.IDGenerator
	Random    ports.Random
	Observer  ports.UsageObserver // Optional
	Clock     ports.Clock         // Optional
	Logger    zerolog.Logger
}

// RecordRequest is one call to the usage meter.
type RecordRequest struct {
	AuthHeader string
	Body       []byte
	RequestID  string // Stable per logical request; feeds derived keys
}

// RecordResult describes a recorded download.
type RecordResult struct {
	UserID         string
	DownloadID     string
	TotalDownloads int64
	IdempotencyKey string
}

// DownloadService records download usage.
// Steps run strictly in order; a failure ends the call and earlier writes
// stay in place.
type DownloadService struct {
	verifier  ports.IdentityVerifier
	customers ports.CustomerStore
	downloads ports.DownloadStore
	ledger    ports.DownloadLedger
	metering  ports.MeteringService
	idGen     ports.IDGenerator
	random    ports.Random
	observer  ports.UsageObserver
	logger    zerolog.Logger
	clock     ports.Clock
	cfg       DownloadConfig
}

// NewDownloadService creates a new download service.
func NewDownloadService(deps DownloadDeps, cfg DownloadConfig) *DownloadService {
	if cfg.CounterMode == "" {
		cfg.CounterMode = CounterAtomic
	}
	if cfg.KeyMode == "" {
		cfg.KeyMode = KeyDerived
	}
	if cfg.MeterEventName == "" {
		cfg.MeterEventName = metering.DefaultEventName
	}
	if cfg.CustomerKey == "" {
		cfg.CustomerKey = metering.DefaultCustomerKey
	}
	clk := deps.Clock
	if clk == nil {
		clk = clockFunc(time.Now)
	}
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &DownloadService{
		verifier:  deps.Verifier,
		customers: deps.Customers,
		downloads: deps.Downloads,
		ledger:    deps.Ledger,
		metering:  deps.Metering,
		idGen:     deps.IDGen,
		random:    deps.Random,
		observer:  observer,
		logger:    deps.Logger,
		clock:     clk,
		cfg:       cfg,
	}
}

// Record runs the usage-recording workflow for one request.
// Errors are always *download.Error.
func (s *DownloadService) Record(ctx context.Context, req RecordRequest) (RecordResult, error) {
	token, ok := identity.ParseBearer(req.AuthHeader)
	if !ok {
		return s.fail("", download.Unauthenticated(download.MsgMissingToken, nil))
	}

	user, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return s.fail("", download.Unauthenticated(download.MsgAuthFailed, err))
	}
	if user.ID == "" {
		return s.fail("", download.Unauthenticated(download.MsgAuthFailed, errors.New("no user for token")))
	}

	cust, err := s.customers.GetByUserID(ctx, user.ID)
	if errors.Is(err, customer.ErrNotFound) {
		return s.fail(user.ID, download.NotEntitled(err))
	}
	if err != nil {
		if s.cfg.LegacyLookup {
			return s.fail(user.ID, download.NotEntitled(err))
		}
		return s.fail(user.ID, download.Upstream("lookup customer", err))
	}
	if !cust.IsEntitled() {
		return s.fail(user.ID, download.NotEntitled(nil))
	}

	body, err := download.ParseRequest(req.Body)
	if err != nil {
		return s.fail(user.ID, download.InvalidRequest(err))
	}

	event := download.Event{
		ID:        s.idGen.New(),
		UserID:    user.ID,
		Image:     body.Image,
		CreatedAt: s.clock.Now().UTC(),
	}

	total, perr := s.persist(ctx, cust, event)
	if perr != nil {
		return s.fail(user.ID, perr)
	}
	s.observer.DownloadRecorded()

	key, err := s.idempotencyKey(user.ID, body.Image, req.RequestID)
	if err != nil {
		return s.fail(user.ID, download.Upstream("generate idempotency key", err))
	}

	uerr := s.emitUsage(ctx, cust, key)
	if uerr != nil {
		s.observer.MeteringEvent(uerr)
		return s.fail(user.ID, uerr)
	}
	s.observer.MeteringEvent(nil)

	s.logger.Info().
		Str("user_id", user.ID).
		Str("download_id", event.ID).
		Int64("total_downloads", total).
		Str("idempotency_key", key).
		Msg("download usage recorded")

	return RecordResult{
		UserID:         user.ID,
		DownloadID:     event.ID,
		TotalDownloads: total,
		IdempotencyKey: key,
	}, nil
}

// persist stores the event and advances the counter according to the
// configured counter mode.
func (s *DownloadService) persist(ctx context.Context, cust customer.Customer, event download.Event) (int64, *download.Error) {
	if s.cfg.CounterMode == CounterAtomic {
		total, err := s.ledger.RecordDownload(ctx, event)
		if err != nil {
			return 0, download.Upstream("record download", err)
		}
		return total, nil
	}

	if err := s.downloads.Insert(ctx, event); err != nil {
		return 0, download.Upstream("insert download", err)
	}

	// Written from the snapshot read during the entitlement check.
	total := cust.NextTotal()
	if err := s.customers.SetTotalDownloads(ctx, cust.UserID, total); err != nil {
		return 0, download.Upstream("update download counter", err)
	}
	return total, nil
}

func (s *DownloadService) idempotencyKey(userID string, image []byte, requestID string) (string, error) {
	if s.cfg.KeyMode == KeyDerived && requestID != "" {
		return metering.DeriveKey(s.cfg.KeySecret, userID, image, requestID), nil
	}

	b, err := s.random.Bytes(metering.KeyBytes)
	if err != nil {
		return "", err
	}
	return metering.RandomKey(b), nil
}

func (s *DownloadService) emitUsage(ctx context.Context, cust customer.Customer, key string) *download.Error {
	sub, err := s.metering.GetSubscription(ctx, cust.SubscriptionID)
	if err != nil {
		return download.Upstream("retrieve subscription", err)
	}

	item, err := sub.FirstItem()
	if err != nil {
		return download.Upstream("select subscription item", err)
	}

	event := metering.NewDownloadEvent(s.cfg.MeterEventName, s.cfg.CustomerKey, cust.ProviderCustomerID, item, key)
	if err := s.metering.EmitUsageEvent(ctx, event); err != nil {
		return download.Upstream("emit usage event", err)
	}

	s.logger.Info().
		Str("provider", s.metering.Name()).
		Str("event_name", event.EventName).
		Str("customer_id", event.CustomerID).
		Str("subscription_item_id", event.SubscriptionItemID).
		Str("idempotency_key", key).
		Msg("meter event created")
	return nil
}

func (s *DownloadService) fail(userID string, err *download.Error) (RecordResult, error) {
	event := s.logger.Warn()
	if err.Kind == download.KindUpstream {
		event = s.logger.Error()
	}
	event.Err(err).
		Str("user_id", userID).
		Str("kind", string(err.Kind)).
		Msg("download usage not recorded")
	return RecordResult{}, err
}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

type nopObserver struct{}

func (nopObserver) DownloadRecorded()   {}
func (nopObserver) MeteringEvent(error) {}
