// Package metrics provides Prometheus metrics for the clutch coaching service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Telemetry
	snapshotsTotal      prometheus.Counter
	snapshotsOutOfOrder prometheus.Counter
	snapshotBytes       prometheus.Histogram
	eventsDetected      *prometheus.CounterVec
	detectorPanics      *prometheus.CounterVec

	// Admission
	decisions          *prometheus.CounterVec
	identityConfidence prometheus.Gauge

	// Orchestrator
	queueDepth       prometheus.Gauge
	queueDropped     *prometheus.CounterVec
	requestsEnqueued prometheus.Counter
	dispatches       *prometheus.CounterVec
	throttleActive   prometheus.Gauge

	// Inference
	inferenceLatency prometheus.Histogram
	inferenceErrors  *prometheus.CounterVec

	// Compression
	compressionRatio prometheus.Histogram
	compressedBytes  prometheus.Histogram

	// Memory
	memoryRecords     prometheus.Gauge
	memoryLookups     prometheus.Counter
	memoryHits        prometheus.Counter
	memoryOutcomes    *prometheus.CounterVec
	memoryEvictions   *prometheus.CounterVec
	memoryCheckpoints *prometheus.CounterVec

	// Presentation
	notifications *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clutch",
		subsystem:        "coach",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.snapshotsTotal = m.counter("snapshots_total", "Telemetry snapshots accepted")
	m.snapshotsOutOfOrder = m.counter("snapshots_out_of_order_total", "Snapshots discarded for arriving before the previous one")
	m.snapshotBytes = m.histogram("snapshot_bytes", "Raw size of telemetry documents",
		[]float64{256, 512, 1024, 2048, 4096, 8192, 16384, 32768})
	m.eventsDetected = m.counterVec("events_detected_total", "Events emitted by the differencer", "kind")
	m.detectorPanics = m.counterVec("detector_panics_total", "Recovered detector panics", "detector")

	m.decisions = m.counterVec("decisions_total", "Classifier decisions", "outcome", "reason")
	m.identityConfidence = m.gauge("identity_confidence", "Confidence in the coached player identity (0-100)")

	m.queueDepth = m.gauge("queue_depth", "Pending analysis requests")
	m.queueDropped = m.counterVec("queue_dropped_total", "Analysis requests dropped before dispatch", "reason")
	m.requestsEnqueued = m.counter("requests_enqueued_total", "Analysis requests accepted by the orchestrator")
	m.dispatches = m.counterVec("dispatches_total", "Dispatch attempts by outcome", "outcome")
	m.throttleActive = m.gauge("throttle_active", "1 while the drain loop is in a provider throttle cooldown")

	m.inferenceLatency = m.histogram("inference_latency_milliseconds", "Latency of inference calls",
		[]float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000})
	m.inferenceErrors = m.counterVec("inference_errors_total", "Inference failures by kind", "kind")

	m.compressionRatio = m.histogram("compression_ratio", "Compressed payload size over raw snapshot size",
		[]float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 1})
	m.compressedBytes = m.histogram("compressed_bytes", "Size of compressed payloads",
		[]float64{32, 64, 128, 256, 512, 1024, 2048})

	m.memoryRecords = m.gauge("memory_records", "Records held by response memory")
	m.memoryLookups = m.counter("memory_lookups_total", "Response memory lookups")
	m.memoryHits = m.counter("memory_hits_total", "Response memory lookups returning at least one record")
	m.memoryOutcomes = m.counterVec("memory_outcomes_total", "Effectiveness feedback received", "effectiveness")
	m.memoryEvictions = m.counterVec("memory_evictions_total", "Records evicted", "reason")
	m.memoryCheckpoints = m.counterVec("memory_checkpoints_total", "Memory checkpoint attempts", "result")

	m.notifications = m.counterVec("notifications_total", "Presentation notifications", "result")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests", ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "request_duration_milliseconds",
		Help: "HTTP request duration", Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "errors_total",
		Help: "HTTP errors by endpoint", ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// RecordSnapshot counts an accepted snapshot and its raw size.
func RecordSnapshot(rawBytes int) {
	globalManager.snapshotsTotal.Inc()
	if rawBytes > 0 {
		globalManager.snapshotBytes.Observe(float64(rawBytes))
	}
}

// RecordSnapshotOutOfOrder counts a discarded late snapshot.
func RecordSnapshotOutOfOrder() {
	globalManager.snapshotsOutOfOrder.Inc()
}

// RecordEventDetected counts an emitted event by kind.
func RecordEventDetected(kind string) {
	globalManager.eventsDetected.WithLabelValues(kind).Inc()
}

// RecordDetectorPanic counts a recovered detector panic.
func RecordDetectorPanic(detector string) {
	globalManager.detectorPanics.WithLabelValues(detector).Inc()
}

// RecordDecision counts a classifier decision.
func RecordDecision(admitted bool, reason string) {
	outcome := "rejected"
	if admitted {
		outcome = "admitted"
	}
	globalManager.decisions.WithLabelValues(outcome, reason).Inc()
}

// UpdateIdentityConfidence sets the identity confidence gauge.
func UpdateIdentityConfidence(confidence int) {
	globalManager.identityConfidence.Set(float64(confidence))
}

// UpdateQueueDepth sets the pending request count.
func UpdateQueueDepth(depth int) {
	globalManager.queueDepth.Set(float64(depth))
}

// RecordQueueDropped counts a dropped request.
func RecordQueueDropped(reason string) {
	globalManager.queueDropped.WithLabelValues(reason).Inc()
}

// RecordRequestEnqueued counts an accepted request.
func RecordRequestEnqueued() {
	globalManager.requestsEnqueued.Inc()
}

// RecordDispatch counts a dispatch attempt by outcome.
func RecordDispatch(outcome string) {
	globalManager.dispatches.WithLabelValues(outcome).Inc()
}

// UpdateThrottleActive flags the throttle cooldown.
func UpdateThrottleActive(active bool) {
	v := 0.0
	if active {
		v = 1
	}
	globalManager.throttleActive.Set(v)
}

// RecordInferenceLatency records an inference call latency in milliseconds.
func RecordInferenceLatency(latencyMs float64) {
	globalManager.inferenceLatency.Observe(latencyMs)
}

// RecordInferenceError counts a failed inference call.
func RecordInferenceError(kind string) {
	globalManager.inferenceErrors.WithLabelValues(kind).Inc()
}

// RecordCompression records the achieved ratio and output size.
func RecordCompression(ratio float64, outBytes int) {
	globalManager.compressionRatio.Observe(ratio)
	globalManager.compressedBytes.Observe(float64(outBytes))
}

// UpdateMemoryRecords sets the response memory size.
func UpdateMemoryRecords(n int) {
	globalManager.memoryRecords.Set(float64(n))
}

// RecordMemoryLookup counts a lookup and whether it hit.
func RecordMemoryLookup(hit bool) {
	globalManager.memoryLookups.Inc()
	if hit {
		globalManager.memoryHits.Inc()
	}
}

// RecordMemoryOutcome counts effectiveness feedback.
func RecordMemoryOutcome(effectiveness string) {
	globalManager.memoryOutcomes.WithLabelValues(effectiveness).Inc()
}

// RecordMemoryEviction counts evicted records by reason (ttl, cap).
func RecordMemoryEviction(reason string, n int) {
	if n > 0 {
		globalManager.memoryEvictions.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordMemoryCheckpoint counts a checkpoint attempt.
func RecordMemoryCheckpoint(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	globalManager.memoryCheckpoints.WithLabelValues(result).Inc()
}

// RecordNotification counts a presentation notification by result.
func RecordNotification(result string) {
	globalManager.notifications.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
