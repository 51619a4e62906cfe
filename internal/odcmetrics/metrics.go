// Package odcmetrics provides Prometheus metrics for the orchestration core.
package odcmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the core publishes.
type Metrics struct {
	SessionsTotal       prometheus.Gauge
	SlotsTotal          prometheus.Gauge
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	TransitionsTotal    *prometheus.CounterVec
	RecoveryAttempts    *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
}

// New creates a Metrics instance registered against the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer.
// A nil registerer skips registration, useful in tests that construct
// multiple Metrics instances in the same process.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "odc_sessions_total",
			Help: "Current number of partitions with a live Session.",
		}),
		SlotsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "odc_slots_total",
			Help: "Sum of totalSlots across every live Session.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odc_requests_total",
			Help: "Total number of completed request verbs, by verb and status.",
		}, []string{"verb", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odc_request_duration_seconds",
			Help:    "Request verb duration in seconds.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"verb"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odc_transitions_total",
			Help: "Total number of device state transitions, by transition and result.",
		}, []string{"transition", "result"}),
		RecoveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odc_recovery_attempts_total",
			Help: "Total number of nMin recovery attempts, by outcome.",
		}, []string{"outcome"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odc_errors_total",
			Help: "Total number of errors, by error code.",
		}, []string{"code"}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.SessionsTotal,
			m.SlotsTotal,
			m.RequestsTotal,
			m.RequestDuration,
			m.TransitionsTotal,
			m.RecoveryAttempts,
			m.ErrorsTotal,
		)
	}

	return m
}

// RecordRequest records a completed request verb.
func (m *Metrics) RecordRequest(verb, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(verb, status).Inc()
	m.RequestDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

// RecordTransition records a device state transition outcome.
func (m *Metrics) RecordTransition(transition, result string) {
	m.TransitionsTotal.WithLabelValues(transition, result).Inc()
}

// RecordRecovery records an nMin recovery attempt outcome ("recovered" or "failed").
func (m *Metrics) RecordRecovery(outcome string) {
	m.RecoveryAttempts.WithLabelValues(outcome).Inc()
}

// RecordError records an error by its stable code.
func (m *Metrics) RecordError(code string) {
	m.ErrorsTotal.WithLabelValues(code).Inc()
}

// SetSessionGauges updates the session/slot gauges from a live snapshot.
func (m *Metrics) SetSessionGauges(sessionCount int, totalSlots int64) {
	m.SessionsTotal.Set(float64(sessionCount))
	m.SlotsTotal.Set(float64(totalSlots))
}
