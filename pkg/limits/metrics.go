package limits

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the engine.
type Metrics struct {
	acquires        *prometheus.CounterVec
	denials         *prometheus.CounterVec
	reconciles      *prometheus.CounterVec
	acquireDuration *prometheus.HistogramVec
	usage           *prometheus.GaugeVec
	limit           *prometheus.GaugeVec
}

// NewMetrics creates collectors registered on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use their own registry
// so instances stay isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		acquires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rategate_acquire_total",
				Help: "Total admission checks by outcome",
			},
			[]string{"venue", "category", "result"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rategate_denials_total",
				Help: "Total denials by the binding window",
			},
			[]string{"venue", "category", "dimension", "window"},
		),

		reconciles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rategate_reconcile_total",
				Help: "Total header reconciliations applied or skipped",
			},
			[]string{"venue", "category", "result"},
		),

		acquireDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rategate_acquire_duration_seconds",
				Help:    "Time spent in Acquire including waiting",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 15), // 1µs to ~4m
			},
			[]string{"venue", "category"},
		),

		usage: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rategate_window_usage",
				Help: "Current unexpired usage per window",
			},
			[]string{"venue", "category", "dimension", "window"},
		),

		limit: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rategate_window_limit",
				Help: "Window capacity at the current tier",
			},
			[]string{"venue", "category", "dimension", "window"},
		),
	}
}

// RecordAcquire counts one admission check outcome.
func (m *Metrics) RecordAcquire(venue, category, result string) {
	m.acquires.WithLabelValues(venue, category, result).Inc()
}

// RecordDenial counts a denial against its binding window.
func (m *Metrics) RecordDenial(venue, category, dimension, window string) {
	m.denials.WithLabelValues(venue, category, dimension, window).Inc()
}

// RecordReconcile counts one header reconciliation.
func (m *Metrics) RecordReconcile(venue, category, result string) {
	m.reconciles.WithLabelValues(venue, category, result).Inc()
}

// ObserveAcquireDuration records time spent in Acquire.
func (m *Metrics) ObserveAcquireDuration(venue, category string, d time.Duration) {
	m.acquireDuration.WithLabelValues(venue, category).Observe(d.Seconds())
}

// SetUsage updates the usage and limit gauges for one window.
func (m *Metrics) SetUsage(venue, category, dimension, window string, used, limit int64) {
	m.usage.WithLabelValues(venue, category, dimension, window).Set(float64(used))
	m.limit.WithLabelValues(venue, category, dimension, window).Set(float64(limit))
}
