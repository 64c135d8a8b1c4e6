// Package metrics provides Prometheus metrics for the thehub recommendation service.
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

	// Engine metrics
	recommendationsGenerated prometheus.Counter
	recommendationLatency    prometheus.Histogram
	rulesEvaluated           prometheus.Counter
	rulesApplied             prometheus.Counter
	rulesSkipped             *prometheus.CounterVec
	productsRecommended      prometheus.Counter

	// Configuration store metrics
	storeLoadLatency *prometheus.HistogramVec
	storeErrors      *prometheus.CounterVec

	// Catalog enrichment metrics
	catalogLookups       *prometheus.CounterVec
	catalogLookupLatency prometheus.Histogram
	catalogCacheHits     prometheus.Counter
	catalogCacheMisses   prometheus.Counter
	catalogCacheEvicts   prometheus.Counter
	catalogCacheSize     prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerInlineFallbacks   prometheus.Counter

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "thehub",
		subsystem:        "engine",
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
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.recommendationsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommendations_total",
		Help:      "Total number of recommendation blocks produced",
	})

	m.recommendationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recommendation_latency_milliseconds",
		Help:      "End-to-end latency of a recommendation computation in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.rulesEvaluated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rules_evaluated_total",
		Help:      "Total number of rules evaluated",
	})

	m.rulesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rules_applied_total",
		Help:      "Total number of rules that produced a total amount",
	})

	m.rulesSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rules_skipped_total",
			Help:      "Total number of rules skipped, by reason",
		},
		[]string{"reason"},
	)

	m.productsRecommended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "products_recommended_total",
		Help:      "Total number of product lines emitted",
	})

	m.storeLoadLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_load_latency_milliseconds",
			Help:      "Configuration store read latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"collection"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_errors_total",
			Help:      "Total number of configuration store read failures",
		},
		[]string{"collection"},
	)

	m.catalogLookups = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "catalog_lookups_total",
			Help:      "Catalog enrichment lookups by outcome",
		},
		[]string{"outcome"},
	)

	m.catalogLookupLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_lookup_latency_milliseconds",
		Help:      "Catalog enrichment lookup latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.catalogCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_cache_hits_total",
		Help:      "Catalog cache hits",
	})

	m.catalogCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_cache_misses_total",
		Help:      "Catalog cache misses",
	})

	m.catalogCacheEvicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_cache_evictions_total",
		Help:      "Catalog cache evictions",
	})

	m.catalogCacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_cache_entries",
		Help:      "Current number of cached catalog entries",
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

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_queue_size",
		Help:      "Current number of pending enrichment jobs",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_queue_capacity",
		Help:      "Maximum enrichment queue capacity",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_queue_enqueue_total",
		Help:      "Total number of enrichment jobs enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_queue_dequeue_total",
		Help:      "Total number of enrichment jobs dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "enrichment_queue_enqueue_errors_total",
			Help:      "Enrichment jobs rejected by the queue, by reason",
		},
		[]string{"reason"},
	)

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_worker_count",
		Help:      "Number of enrichment workers",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_worker_latency_milliseconds",
		Help:      "Time a worker spends on one enrichment job in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerInlineFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_inline_fallbacks_total",
		Help:      "Lookups run inline because the queue rejected the job",
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Engine Metrics Functions.

// RecordRecommendations adds n produced recommendation blocks.
func RecordRecommendations(n int) {
	globalManager.recommendationsGenerated.Add(float64(n))
}

// RecordRecommendationLatency records the latency of a full computation.
func RecordRecommendationLatency(latencyMs float64) {
	globalManager.recommendationLatency.Observe(latencyMs)
}

// RecordRuleEvaluated increments the evaluated rules counter.
func RecordRuleEvaluated() {
	globalManager.rulesEvaluated.Inc()
}

// RecordRuleApplied increments the applied rules counter.
func RecordRuleApplied() {
	globalManager.rulesApplied.Inc()
}

// RecordRuleSkipped increments the skipped rules counter for reason.
func RecordRuleSkipped(reason string) {
	globalManager.rulesSkipped.WithLabelValues(reason).Inc()
}

// RecordProductsRecommended adds n emitted product lines.
func RecordProductsRecommended(n int) {
	globalManager.productsRecommended.Add(float64(n))
}

// Store Metrics Functions.

// RecordStoreLoadLatency records how long reading a collection took.
func RecordStoreLoadLatency(collection string, latencyMs float64) {
	globalManager.storeLoadLatency.WithLabelValues(collection).Observe(latencyMs)
}

// RecordStoreError increments the store failure counter for collection.
func RecordStoreError(collection string) {
	globalManager.storeErrors.WithLabelValues(collection).Inc()
}

// Catalog Metrics Functions.

// RecordCatalogLookup records a lookup outcome: "ok", "not_found" or "error".
func RecordCatalogLookup(outcome string, latencyMs float64) {
	globalManager.catalogLookups.WithLabelValues(outcome).Inc()
	globalManager.catalogLookupLatency.Observe(latencyMs)
}

// RecordCatalogCacheHit increments the cache hit counter.
func RecordCatalogCacheHit() {
	globalManager.catalogCacheHits.Inc()
}

// RecordCatalogCacheMiss increments the cache miss counter.
func RecordCatalogCacheMiss() {
	globalManager.catalogCacheMisses.Inc()
}

// RecordCatalogCacheEviction increments the cache eviction counter.
func RecordCatalogCacheEviction() {
	globalManager.catalogCacheEvicts.Inc()
}

// UpdateCatalogCacheSize sets the number of cached entries.
func UpdateCatalogCacheSize(n int64) {
	globalManager.catalogCacheSize.Set(float64(n))
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter for reason.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordInlineFallback increments the inline fallback counter.
func RecordInlineFallback() {
	globalManager.workerInlineFallbacks.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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
