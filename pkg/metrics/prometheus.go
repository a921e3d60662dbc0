// Package metrics provides Prometheus metrics for the epochtal ledger service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ledger
	ledgerAppends    prometheus.Counter
	ledgerTombstones prometheus.Counter
	ledgerRemovals   prometheus.Counter
	ledgerErrors     *prometheus.CounterVec
	ledgerFrames     prometheus.Gauge

	// Reconstruction and compaction
	reconstructLatency prometheus.Histogram
	compactionLatency  prometheus.Histogram
	compactionErrors   *prometheus.CounterVec

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Compaction queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      *prometheus.CounterVec
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "epochtal",
		subsystem:        "ledger",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.ledgerAppends = m.counter("appends_total", "Run records appended to the weekly ledger")
	m.ledgerTombstones = m.counter("tombstones_total", "Tombstone records appended to the weekly ledger")
	m.ledgerRemovals = m.counter("removals_total", "Frames excised from the weekly ledger by timestamp")
	m.ledgerErrors = m.counterVec("errors_total", "Ledger operation failures by error kind", "kind")
	m.ledgerFrames = m.gauge("frames", "Frames in the active weekly ledger at the last read")

	m.reconstructLatency = m.histogram("reconstruct_latency_milliseconds", "Leaderboard reconstruction latency in milliseconds")
	m.compactionLatency = m.histogram("compaction_latency_milliseconds", "Profile compaction latency in milliseconds")
	m.compactionErrors = m.counterVec("compaction_errors_total", "Profile compaction failures by error kind", "kind")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Ledger file mutation latency in milliseconds")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Ledger file read latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Compaction jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum compaction jobs the queue accepts")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Compaction jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Compaction jobs handed to workers")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected compaction jobs by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Compaction workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Compaction job latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Compaction jobs that failed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("http_errors_total", "HTTP errors by endpoint and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds")
}

// RecordLedgerAppend increments the appended runs counter.
func RecordLedgerAppend() { globalManager.ledgerAppends.Inc() }

// RecordLedgerTombstone increments the appended tombstones counter.
func RecordLedgerTombstone() { globalManager.ledgerTombstones.Inc() }

// RecordLedgerRemoval increments the removals counter.
func RecordLedgerRemoval() { globalManager.ledgerRemovals.Inc() }

// RecordLedgerError counts a ledger failure of the given kind.
func RecordLedgerError(kind string) {
	globalManager.ledgerErrors.WithLabelValues(orUnknown(kind)).Inc()
}

// UpdateLedgerFrames sets the frame count of the last ledger read.
func UpdateLedgerFrames(count int) { globalManager.ledgerFrames.Set(float64(count)) }

// RecordReconstructLatency records leaderboard reconstruction latency in milliseconds.
func RecordReconstructLatency(latencyMs float64) { globalManager.reconstructLatency.Observe(latencyMs) }

// RecordCompactionLatency records profile compaction latency in milliseconds.
func RecordCompactionLatency(latencyMs float64) { globalManager.compactionLatency.Observe(latencyMs) }

// RecordCompactionError counts a compaction failure of the given kind.
func RecordCompactionError(kind string) {
	globalManager.compactionErrors.WithLabelValues(orUnknown(kind)).Inc()
}

// RecordRepositoryUpdateLatency records ledger mutation latency in milliseconds.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records ledger read latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueued jobs counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeued jobs counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(orUnknown(reason)).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the failed jobs counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry the global manager reports to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func orUnknown(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
