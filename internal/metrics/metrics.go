// Package metrics holds the Prometheus collectors for kiln.
//
// A nil *Metrics is valid and records nothing, so ops and tests that do not
// care about metrics can leave it unset.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kiln"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics is the set of kiln collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	commitsTotal      *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	validationsFailed *prometheus.CounterVec
	generatorCalls    *prometheus.CounterVec
	generatorLatency  *prometheus.HistogramVec
	docsTotal         *prometheus.CounterVec
	syncEntries       *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates collectors on a fresh registry, including the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		commitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Version commits by operation and outcome",
		}, []string{"op", "outcome"}),

		conflictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_conflicts_total",
			Help:      "Commits that lost the current_version compare-and-swap",
		}, []string{"op"}),

		validationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Generated or submitted code rejected by a validator rule",
		}, []string{"rule"}),

		generatorCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "calls_total",
			Help:      "Generator attempts by provider and outcome",
		}, []string{"provider", "outcome"}),

		generatorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "call_duration_seconds",
			Help:      "Generator attempt latency",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"provider"}),

		docsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documentation_runs_total",
			Help:      "Documentation pipeline runs by outcome",
		}, []string{"outcome"}),

		syncEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_sync_entries_total",
			Help:      "Registry rows touched by sync, by result",
		}, []string{"result"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry the collectors live on. Nil for a nil Metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCommit records one edit/restore/create commit attempt.
func (m *Metrics) ObserveCommit(op, outcome string) {
	if m == nil {
		return
	}
	m.commitsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveConflict records a lost compare-and-swap.
func (m *Metrics) ObserveConflict(op string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(op).Inc()
}

// ObserveValidationFailure records a validator rejection.
func (m *Metrics) ObserveValidationFailure(rule string) {
	if m == nil {
		return
	}
	m.validationsFailed.WithLabelValues(rule).Inc()
}

// ObserveGenerator records one generator attempt.
func (m *Metrics) ObserveGenerator(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generatorCalls.WithLabelValues(provider, outcome).Inc()
	m.generatorLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveDocs records one documentation pipeline run.
func (m *Metrics) ObserveDocs(outcome string) {
	if m == nil {
		return
	}
	m.docsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSync records the counts of one registry sync.
func (m *Metrics) ObserveSync(created, updated, failed int) {
	if m == nil {
		return
	}
	m.syncEntries.WithLabelValues("created").Add(float64(created))
	m.syncEntries.WithLabelValues("updated").Add(float64(updated))
	m.syncEntries.WithLabelValues("error").Add(float64(failed))
}

// ObserveHTTP records one HTTP request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
