// Package metrics exposes Prometheus counters for the quiz flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the quiz metrics.
type Manager struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer

	existenceChecks *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
	saves           *prometheus.CounterVec
	results         *prometheus.CounterVec
	sessionsStarted prometheus.Counter
	sessionsBlocked prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry served on /metrics

var globalManager = NewManager(WithPrometheusRegistry(customRegistry)) //nolint:gochecknoglobals // singleton recorder

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "beerquiz",
		subsystem: "flow",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.existenceChecks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "existence_checks_total",
		Help:      "Fuzzy duplicate checks by outcome (match, clear, malformed, fail_closed, fail_open)",
	}, []string{"outcome"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Record store errors by operation",
	}, []string{"op"})

	m.saves = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "saves_total",
		Help:      "Save attempts by outcome (saved, duplicate, failed)",
	}, []string{"outcome"})

	m.results = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_total",
		Help:      "Completed quizzes by result label",
	}, []string{"label"})

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Quiz sessions created",
	})

	m.sessionsBlocked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_blocked_total",
		Help:      "Sessions moved to the blocked step after a duplicate was detected",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})
}

func (m *Manager) RecordExistenceCheck(outcome string) { m.existenceChecks.WithLabelValues(outcome).Inc() }
func (m *Manager) RecordStoreError(op string)          { m.storeErrors.WithLabelValues(op).Inc() }
func (m *Manager) RecordSave(outcome string)           { m.saves.WithLabelValues(outcome).Inc() }
func (m *Manager) RecordResult(label string)           { m.results.WithLabelValues(label).Inc() }
func (m *Manager) RecordSessionStarted()               { m.sessionsStarted.Inc() }
func (m *Manager) RecordSessionBlocked()               { m.sessionsBlocked.Inc() }

func (m *Manager) RecordHTTPRequest(route, method, statusCode string) {
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
}

// RecordExistenceCheck counts a duplicate check outcome on the global manager.
func RecordExistenceCheck(outcome string) { globalManager.RecordExistenceCheck(outcome) }

// RecordStoreError counts a record store failure for op.
func RecordStoreError(op string) { globalManager.RecordStoreError(op) }

// RecordSave counts a save outcome.
func RecordSave(outcome string) { globalManager.RecordSave(outcome) }

// RecordResult counts a completed quiz by label.
func RecordResult(label string) { globalManager.RecordResult(label) }

// RecordSessionStarted counts a new session.
func RecordSessionStarted() { globalManager.RecordSessionStarted() }

// RecordSessionBlocked counts a session entering the blocked step.
func RecordSessionBlocked() { globalManager.RecordSessionBlocked() }

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(route, method, statusCode string) {
	globalManager.RecordHTTPRequest(route, method, statusCode)
}

// Handler serves the global registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
