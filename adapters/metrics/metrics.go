// Package metrics provides Prometheus metrics collection for FrameVault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "framevault"

// Collector holds all Prometheus metrics for FrameVault.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Recorder outcomes
	AuthFailures       *prometheus.CounterVec
	EntitlementDenials prometheus.Counter
	DownloadsRecorded  prometheus.Counter
	MeteringEvents     *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// NewWithRegistry creates a new metrics collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
			[]string{"reason"},
		),
		EntitlementDenials: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entitlement_denials_total",
				Help:      "Total number of downloads refused for lack of a subscription",
			},
		),
		DownloadsRecorded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_recorded_total",
				Help:      "Total number of download events persisted",
			},
		),
		MeteringEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metering_events_total",
				Help:      "Total number of usage events sent to the billing provider",
			},
			[]string{"result"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// DownloadRecorded counts a persisted download event.
func (c *Collector) DownloadRecorded() {
	c.DownloadsRecorded.Inc()
}

// MeteringEvent counts a usage event submission by result.
func (c *Collector) MeteringEvent(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.MeteringEvents.WithLabelValues(result).Inc()
}
