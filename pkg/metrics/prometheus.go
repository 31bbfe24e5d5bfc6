// Package metrics provides Prometheus metrics for the stacker run-submission service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsIssued   prometheus.Counter
	sessionsReplayed prometheus.Counter

	// Submission pipeline
	submissions        *prometheus.CounterVec
	chainSubmitLatency prometheus.Histogram
	chainSubmitErrors  prometheus.Counter

	// Run ledger
	ledgerAppends        prometheus.Counter
	ledgerAppendFailures prometheus.Counter
	trackedWallets       prometheus.Gauge

	// Username resolution pipeline
	resolverHits      prometheus.Counter
	resolverMisses    prometheus.Counter
	resolverErrors    prometheus.Counter
	resolveQueueSize  prometheus.Gauge
	resolveQueueCap   prometheus.Gauge
	resolveWorkers    prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stacker",
		subsystem:        "submission",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sessionsIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_issued_total",
		Help:      "Total number of play sessions issued",
	})

	m.sessionsReplayed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_replayed_total",
		Help:      "Total number of submissions rejected because the session token was already consumed",
	})

	m.submissions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "submissions_total",
			Help:      "Total number of run submissions by outcome",
		},
		[]string{"outcome"},
	)

	m.chainSubmitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chain_submit_latency_milliseconds",
		Help:      "Latency of the on-chain write including receipt confirmation",
		Buckets:   m.histogramBuckets,
	})

	m.chainSubmitErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chain_submit_errors_total",
		Help:      "Total number of failed on-chain writes",
	})

	m.ledgerAppends = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_appends_total",
		Help:      "Total number of run records appended to the ledger",
	})

	m.ledgerAppendFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_append_failures_total",
		Help:      "Total number of ledger appends that failed after the chain write succeeded",
	})

	m.trackedWallets = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_wallets",
		Help:      "Number of wallets with at least one run record",
	})

	m.resolverHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolver_cache_hits_total",
		Help:      "Total number of username lookups served from cache",
	})

	m.resolverMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolver_cache_misses_total",
		Help:      "Total number of username lookups that missed the cache",
	})

	m.resolverErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolver_errors_total",
		Help:      "Total number of failed username resolutions (degraded to no name)",
	})

	m.resolveQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolve_queue_size",
		Help:      "Current size of the username resolve queue",
	})

	m.resolveQueueCap = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolve_queue_capacity",
		Help:      "Maximum capacity of the username resolve queue",
	})

	m.resolveWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolve_workers",
		Help:      "Number of username resolve workers",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Submission outcome labels.
const (
	OutcomeAccepted      = "accepted"
	OutcomeClientFault   = "client_fault"
	OutcomeUpstreamFault = "upstream_fault"
	OutcomeReplay        = "replay"
)

// Global helpers operating on the singleton manager.

func RecordSessionIssued() {
	globalManager.sessionsIssued.Inc()
}

func RecordSessionReplay() {
	globalManager.sessionsReplayed.Inc()
}

func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

func RecordChainSubmitLatency(latencyMs float64) {
	globalManager.chainSubmitLatency.Observe(latencyMs)
}

func RecordChainSubmitError() {
	globalManager.chainSubmitErrors.Inc()
}

func RecordLedgerAppend() {
	globalManager.ledgerAppends.Inc()
}

func RecordLedgerAppendFailure() {
	globalManager.ledgerAppendFailures.Inc()
}

func UpdateTrackedWallets(count int) {
	globalManager.trackedWallets.Set(float64(count))
}

func RecordResolverHit() {
	globalManager.resolverHits.Inc()
}

func RecordResolverMiss() {
	globalManager.resolverMisses.Inc()
}

func RecordResolverError() {
	globalManager.resolverErrors.Inc()
}

func UpdateResolveQueueSize(size int) {
	globalManager.resolveQueueSize.Set(float64(size))
}

func UpdateResolveQueueCapacity(capacity int) {
	globalManager.resolveQueueCap.Set(float64(capacity))
}

func UpdateResolveWorkers(count int) {
	globalManager.resolveWorkers.Set(float64(count))
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry backing the singleton manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
