// Package metrics provides Prometheus metrics for the rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Rating updates
	updatesApplied   *prometheus.CounterVec
	updatesRejected  *prometheus.CounterVec
	updatesDuplicate prometheus.Counter
	policyLatency    prometheus.Histogram
	resets           prometheus.Counter
	loadFallbacks    *prometheus.CounterVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Gauge
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
		namespace:        "rapport",
		subsystem:        "rating",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.updatesApplied = auto.NewCounterVec(
		m.counter("updates_applied_total", "Rating updates folded into a snapshot and saved"),
		[]string{"policy"},
	)
	m.updatesRejected = auto.NewCounterVec(
		m.counter("updates_rejected_total", "Rating updates rejected before or during save"),
		[]string{"reason"},
	)
	m.updatesDuplicate = auto.NewCounter(
		m.counter("updates_duplicate_total", "Score records skipped because their conversation was already applied"),
	)
	m.policyLatency = auto.NewHistogram(
		m.histogram("policy_apply_latency_milliseconds", "Time spent applying the update policy"),
	)
	m.resets = auto.NewCounter(
		m.counter("resets_total", "Snapshots reset to defaults"),
	)
	m.loadFallbacks = auto.NewCounterVec(
		m.counter("load_fallbacks_total", "Snapshot loads that fell back to the zero default"),
		[]string{"reason"},
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogram("store_operation_latency_milliseconds", "Latency of snapshot store operations"),
		[]string{"backend", "op"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counter("store_errors_total", "Failed snapshot store operations"),
		[]string{"backend", "op"},
	)

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Current number of queued update jobs"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Maximum capacity of the update queue"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Update queue utilization ratio (0-1)"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total", "Update jobs accepted by the queue"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total", "Update jobs taken from the queue"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Update jobs refused because the queue was full"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogram("queue_wait_latency_milliseconds", "Time update jobs spend waiting in the queue"),
	)

	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Configured number of update workers"))
	m.workerActiveCount = auto.NewGauge(m.gauge("worker_active_count", "Workers currently applying an update"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one update job"),
	)
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total", "Update jobs that finished with an error"))

	m.httpRequests = auto.NewCounterVec(
		m.counter("http_requests_total", "Total number of HTTP requests"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counter("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "memory_bytes",
		Help: "Heap bytes allocated", ConstLabels: m.constLabels,
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "goroutines",
		Help: "Number of goroutines", ConstLabels: m.constLabels,
	})
	m.systemGCPauseTime = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "gc_pause_avg_milliseconds",
		Help: "Average GC pause time", ConstLabels: m.constLabels,
	})
}

// RecordUpdateApplied counts a saved update under policy.
func RecordUpdateApplied(policy string) {
	globalManager.updatesApplied.WithLabelValues(policy).Inc()
}

// RecordUpdateRejected counts an update that did not advance the snapshot.
func RecordUpdateRejected(reason string) {
	globalManager.updatesRejected.WithLabelValues(reason).Inc()
}

// RecordUpdateDuplicate counts a skipped duplicate score record.
func RecordUpdateDuplicate() {
	globalManager.updatesDuplicate.Inc()
}

// RecordPolicyLatency records policy apply latency in milliseconds.
func RecordPolicyLatency(latencyMs float64) {
	globalManager.policyLatency.Observe(latencyMs)
}

// RecordReset counts a snapshot reset.
func RecordReset() {
	globalManager.resets.Inc()
}

// RecordLoadFallback counts a load that fell back to the zero default.
func RecordLoadFallback(reason string) {
	globalManager.loadFallbacks.WithLabelValues(reason).Inc()
}

// RecordStoreOperation records the latency of a store operation.
func RecordStoreOperation(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long a job waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime sets the average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Set(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
