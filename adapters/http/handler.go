// Package http provides HTTP handlers for the usage meter.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AR-937/framevault-app/adapters/metrics"
	"github.com/AR-937/framevault-app/app"
	_ "github.com/AR-937/framevault-app/docs/swagger" // swagger docs
	"github.com/AR-937/framevault-app/domain/download"
	"github.com/AR-937/framevault-app/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// IdempotencyKeyHeader lets a client name a logical request so retries
// derive the same billing key.
const IdempotencyKeyHeader = "Idempotency-Key"

// UsageResponse is the success body of the usage meter.
type UsageResponse struct {
	Message        string `json:"message" example:"Usage record created successfully!"`
	TotalDownloads int64  `json:"total_downloads" example:"42"`
}

// ErrorResponseBody represents an error response body.
// Code is omitted in legacy error mode.
type ErrorResponseBody struct {
	Message string `json:"message" example:"Please subscribe to a plan to download the image."`
	Code    string `json:"code,omitempty" example:"not_entitled"`
}

// UsageRequestBody documents the usage meter request body.
type UsageRequestBody struct {
	Image any `json:"image" swaggertype:"object"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
	Service string `json:"service" example:"framevault"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Recorder records one download. Implemented by *app.DownloadService.
type Recorder interface {
	Record(ctx context.Context, req app.RecordRequest) (app.RecordResult, error)
}

// UsageMeterOptions configures the usage meter handler.
type UsageMeterOptions struct {
	LegacyErrors bool  // Report every failure as 500 {message}
	MaxBodyBytes int64 // Default 1 MiB
	Metrics      *metrics.Collector
}

// UsageMeterHandler serves POST /api/usage-meter.
type UsageMeterHandler struct {
	recorder Recorder
	logger   zerolog.Logger
	opts     UsageMeterOptions
}

// NewUsageMeterHandler creates a new usage meter handler.
func NewUsageMeterHandler(recorder Recorder, logger zerolog.Logger, opts UsageMeterOptions) *UsageMeterHandler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return &UsageMeterHandler{
		recorder: recorder,
		logger:   logger,
		opts:     opts,
	}
}

// ServeHTTP records a download for the authenticated caller.
//
//	@Summary		Record a download
//	@Description	Verifies the caller, checks for a subscription, stores the download, bumps the download counter, and reports one unit of usage to billing
//	@Tags			Usage
//	@Accept			json
//	@Produce		json
//	@Param			Authorization	header		string				true	"Bearer access token"
//	@Param			Idempotency-Key	header		string				false	"Stable ID for retries of one logical request"
//	@Param			body			body		UsageRequestBody	true	"Downloaded image"
//	@Success		200				{object}	UsageResponse
//	@Failure		400				{object}	ErrorResponseBody	"Invalid request body"
//	@Failure		401				{object}	ErrorResponseBody	"Missing or invalid token"
//	@Failure		403				{object}	ErrorResponseBody	"No subscription"
//	@Failure		502				{object}	ErrorResponseBody	"Store or billing failure"
//	@Security		BearerAuth
//	@Router			/api/usage-meter [post]
func (h *UsageMeterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// An unreadable body is passed on empty so the recorder reports it in
	// order, after authentication and entitlement.
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
		if err != nil {
			h.logger.Debug().Err(err).Msg("failed to read request body")
			body = nil
		}
	}

	requestID := r.Header.Get(IdempotencyKeyHeader)
	if requestID == "" {
		requestID = middleware.GetReqID(ctx)
	}

	result, err := h.recorder.Record(ctx, app.RecordRequest{
		AuthHeader: r.Header.Get("Authorization"),
		Body:       body,
		RequestID:  requestID,
	})
	if err != nil {
		h.observeFailure(err)
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UsageResponse{
		Message:        app.SuccessMessage,
		TotalDownloads: result.TotalDownloads,
	})
}

func (h *UsageMeterHandler) observeFailure(err error) {
	if h.opts.Metrics == nil {
		return
	}
	var derr *download.Error
	if !errors.As(err, &derr) {
		return
	}
	switch derr.Kind {
	case download.KindUnauthenticated:
		reason := "invalid_token"
		if derr.Message == download.MsgMissingToken {
			reason = "missing_token"
		}
		h.opts.Metrics.AuthFailures.WithLabelValues(reason).Inc()
	case download.KindNotEntitled:
		h.opts.Metrics.EntitlementDenials.Inc()
	}
}

func (h *UsageMeterHandler) writeError(w http.ResponseWriter, err error) {
	if h.opts.LegacyErrors {
		// Every failure is a 500 with only a message.
		writeJSON(w, http.StatusInternalServerError, ErrorResponseBody{Message: legacyMessage(err)})
		return
	}

	var derr *download.Error
	if !errors.As(err, &derr) {
		derr = &download.Error{Message: "internal error", Err: err}
	}

	status, code := StatusFor(derr.Kind)
	writeJSON(w, status, ErrorResponseBody{Message: derr.Message, Code: code})
}

// legacyMessage returns the bare message for guard failures and the full
// error chain for everything else.
func legacyMessage(err error) string {
	var derr *download.Error
	if !errors.As(err, &derr) {
		return err.Error()
	}
	switch derr.Kind {
	case download.KindUnauthenticated:
		if derr.Message == download.MsgAuthFailed {
			return download.MsgLegacyAuthFailed
		}
		return derr.Message
	case download.KindNotEntitled:
		return derr.Message
	default:
		return err.Error()
	}
}

// StatusFor maps an error kind to its HTTP status and error code.
func StatusFor(kind download.ErrorKind) (int, string) {
	switch kind {
	case download.KindUnauthenticated:
		return http.StatusUnauthorized, string(kind)
	case download.KindNotEntitled:
		return http.StatusForbidden, string(kind)
	case download.KindInvalidRequest:
		return http.StatusBadRequest, string(kind)
	case download.KindUpstream:
		return http.StatusBadGateway, string(kind)
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db ports.Pinger
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(db ports.Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Liveness returns a simple liveness check.
//
//	@Summary		Liveness check
//	@Description	Returns OK if the service is running
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
//	@Router			/health/live [get]
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness checks that the database answers.
//
//	@Summary		Readiness check
//	@Description	Checks that the entitlement and event store is reachable
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	map[string]interface{}	"status: unhealthy, error: message"
//	@Router			/health/ready [get]
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Version returns a handler reporting the service version.
//
//	@Summary		Get service version
//	@Description	Returns the version information for the FrameVault service
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	VersionResponse	"Version information"
//	@Router			/version [get]
func Version(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{
			Version: version,
			Service: "framevault",
		})
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // Default promhttp.Handler()
	MetricsPath    string       // Default /metrics
	EnableOpenAPI  bool
	RequestTimeout time.Duration // Default 60s
	Version        string
}

// NewRouter creates the chi router with all endpoints.
func NewRouter(usage *UsageMeterHandler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, metricsPath))
	}

	// Health endpoints (no auth required)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle(metricsPath, cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle(metricsPath, promhttp.Handler())
	}

	if cfg.EnableOpenAPI {
		r.Get("/.well-known/openapi.json", func(w http.ResponseWriter, r *http.Request) {
			doc, err := swag.ReadDoc()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			io.WriteString(w, doc)
		})

		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/.well-known/openapi.json"),
		))
	}

	r.Get("/version", Version(cfg.Version))

	r.Post("/api/usage-meter", usage.ServeHTTP)

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == metricsPath ||
				strings.HasPrefix(r.URL.Path, "/swagger") || strings.HasPrefix(r.URL.Path, "/.well-known") {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := statusLabel(ww.Status())
			path := routePattern(r)

			m.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the matched chi pattern so unknown paths do not
// create unbounded label values.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
