// Package metrics provides Prometheus metrics for the renshu practice service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Identity
	identityResolutions *prometheus.CounterVec
	tokensMinted        *prometheus.CounterVec
	tokensRevoked       prometheus.Counter
	tokensExpired       prometheus.Counter
	tokensLive          prometheus.Gauge

	// History
	historyWrites     *prometheus.CounterVec
	historyFallbacks  *prometheus.CounterVec
	historyReads      *prometheus.CounterVec
	backendLatency    *prometheus.HistogramVec
	backendAvailable  prometheus.Gauge
	bufferRecords     prometheus.Gauge
	taxonomyMisses    prometheus.Counter
	duplicateRejected prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager on a fresh registry with opts.
// Handlers built from GetRegistry before the call keep the old registry, so
// call it before serving.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "renshu",
		subsystem:        "practice",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.identityResolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("identity_resolutions_total"),
		Help: "Sessions resolved, by winning method",
	}, []string{"method"})

	m.tokensMinted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("tokens_minted_total"),
		Help: "Tokens minted, by kind",
	}, []string{"kind"})

	m.tokensRevoked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("tokens_revoked_total"),
		Help: "Tokens removed by revoke or logout",
	})

	m.tokensExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("tokens_expired_total"),
		Help: "Tokens removed by the lazy expiry sweep",
	})

	m.tokensLive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("tokens_live"),
		Help: "Tokens currently held in the token store",
	})

	m.historyWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("history_writes_total"),
		Help: "Practice record writes, by outcome (durable, buffered, duplicate)",
	}, []string{"outcome"})

	m.historyFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("history_fallbacks_total"),
		Help: "Writes routed to the local buffer, by reason",
	}, []string{"reason"})

	m.historyReads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("history_reads_total"),
		Help: "History reads, by source (durable, buffer, merged)",
	}, []string{"source"})

	m.backendLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("backend_latency_milliseconds"),
		Help:    "Backing store call latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"op"})

	m.backendAvailable = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("backend_available"),
		Help: "1 when the last backing store probe succeeded",
	})

	m.bufferRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("fallback_buffer_records"),
		Help: "Records held in the local fallback buffer",
	})

	m.taxonomyMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("taxonomy_misses_total"),
		Help: "Practice type labels classified as unknown",
	})

	m.duplicateRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("duplicate_submissions_total"),
		Help: "Submissions skipped because an identical one was already recorded",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_endpoint_total"),
		Help: "Total number of errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_usage_bytes"),
		Help: "Heap memory in use in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutine_count"),
		Help: "Number of goroutines",
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordResolution counts a resolved session by method.
func RecordResolution(method string) {
	if globalManager.enabled {
		globalManager.identityResolutions.WithLabelValues(method).Inc()
	}
}

// RecordTokenMinted counts a minted token by kind.
func RecordTokenMinted(kind string) {
	if globalManager.enabled {
		globalManager.tokensMinted.WithLabelValues(kind).Inc()
	}
}

// RecordTokensRevoked counts revoked tokens.
func RecordTokensRevoked(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.tokensRevoked.Add(float64(n))
	}
}

// RecordTokensExpired counts swept tokens.
func RecordTokensExpired(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.tokensExpired.Add(float64(n))
	}
}

// UpdateTokensLive sets the live token gauge.
func UpdateTokensLive(n int) {
	globalManager.tokensLive.Set(float64(n))
}

// RecordHistoryWrite counts a write by outcome.
func RecordHistoryWrite(outcome string) {
	if globalManager.enabled {
		globalManager.historyWrites.WithLabelValues(outcome).Inc()
	}
}

// RecordHistoryFallback counts a buffered write by reason.
func RecordHistoryFallback(reason string) {
	if globalManager.enabled {
		globalManager.historyFallbacks.WithLabelValues(reason).Inc()
	}
}

// RecordHistoryRead counts a read by source.
func RecordHistoryRead(source string) {
	if globalManager.enabled {
		globalManager.historyReads.WithLabelValues(source).Inc()
	}
}

// RecordBackendLatency observes one backing store call.
func RecordBackendLatency(op string, d time.Duration) {
	if globalManager.enabled {
		globalManager.backendLatency.WithLabelValues(op).Observe(float64(d) / float64(time.Millisecond))
	}
}

// UpdateBackendAvailable sets the availability gauge.
func UpdateBackendAvailable(ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	globalManager.backendAvailable.Set(v)
}

// UpdateBufferRecords sets the fallback buffer gauge.
func UpdateBufferRecords(n int) {
	globalManager.bufferRecords.Set(float64(n))
}

// RecordTaxonomyMiss counts an unknown practice type label.
func RecordTaxonomyMiss() {
	if globalManager.enabled {
		globalManager.taxonomyMisses.Inc()
	}
}

// RecordDuplicateSubmission counts a skipped duplicate.
func RecordDuplicateSubmission() {
	if globalManager.enabled {
		globalManager.duplicateRejected.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
