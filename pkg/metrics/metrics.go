// Package metrics provides Prometheus metrics for the verification service
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Verifier paths
const (
	PathCache      = "cache"
	PathRegistry   = "registry"
	PathUnverified = "unverified"
	PathPersistErr = "persist_failed"
)

// AI gateway outcomes
const (
	AIOutcomeOK              = "ok"
	AIOutcomeRateLimited     = "rate_limited"
	AIOutcomePaymentRequired = "payment_required"
	AIOutcomeError           = "error"
)

// VerificationMetrics contains Prometheus metrics for verification operations
type VerificationMetrics struct {
	registry *prometheus.Registry

	registryLookupsTotal   *prometheus.CounterVec
	registryLookupDuration *prometheus.HistogramVec
	verificationsTotal     *prometheus.CounterVec
	aiRequestsTotal        *prometheus.CounterVec
	aiRequestDuration      prometheus.Histogram
	scansTotal             *prometheus.CounterVec
}

// NewVerificationMetrics creates and registers new verification metrics
func NewVerificationMetrics(registry *prometheus.Registry) (*VerificationMetrics, error) {
	m := &VerificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewRegistry returns a registry with the Go runtime and process collectors attached
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func (m *VerificationMetrics) initMetrics() {
	m.registryLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguard_registry_lookups_total",
			Help: "Total number of drug registry lookups",
		},
		[]string{"source", "outcome"}, // outcome: hit, miss, error
	)

	m.registryLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medguard_registry_lookup_duration_seconds",
			Help:    "Time taken by a single drug registry lookup",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"source"},
	)

	m.verificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguard_batch_verifications_total",
			Help: "Total number of batch verifications by resolution path",
		},
		[]string{"path"},
	)

	m.aiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguard_ai_requests_total",
			Help: "Total number of AI gateway requests by outcome",
		},
		[]string{"outcome"}, // outcome: ok, rate_limited, payment_required, error
	)

	m.aiRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medguard_ai_request_duration_seconds",
			Help:    "Time taken by AI gateway requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		},
	)

	m.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medguard_scans_total",
			Help: "Total number of completed scans",
		},
		[]string{"method", "status"},
	)
}

// Describe implements the Collector interface
func (m *VerificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.registryLookupsTotal.Describe(ch)
	m.registryLookupDuration.Describe(ch)
	m.verificationsTotal.Describe(ch)
	m.aiRequestsTotal.Describe(ch)
	m.aiRequestDuration.Describe(ch)
	m.scansTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *VerificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.registryLookupsTotal.Collect(ch)
	m.registryLookupDuration.Collect(ch)
	m.verificationsTotal.Collect(ch)
	m.aiRequestsTotal.Collect(ch)
	m.aiRequestDuration.Collect(ch)
	m.scansTotal.Collect(ch)
}

// RecordRegistryLookup records one registry call. Safe on a nil receiver.
func (m *VerificationMetrics) RecordRegistryLookup(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.registryLookupsTotal.WithLabelValues(source, outcome).Inc()
	m.registryLookupDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordVerification records which path resolved a batch verification
func (m *VerificationMetrics) RecordVerification(path string) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(path).Inc()
}

// RecordAIRequest records an AI gateway call
func (m *VerificationMetrics) RecordAIRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.aiRequestsTotal.WithLabelValues(outcome).Inc()
	m.aiRequestDuration.Observe(d.Seconds())
}

// RecordScan records a completed scan
func (m *VerificationMetrics) RecordScan(method, status string) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues(method, status).Inc()
}

// Handler serves the registry in the Prometheus text format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
