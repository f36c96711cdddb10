// Package metrics provides Prometheus metrics for the speakercam service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// frameBuckets covers per-frame processing in milliseconds; a frame should
// finish well inside one 30fps tick.
var frameBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50} //nolint:gochecknoglobals // constant bucket layout

// Manager manages all Prometheus metrics for the speakercam service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Pipeline Metrics - what the camera is doing
	framesProcessed       prometheus.Counter
	frameLatency          prometheus.Histogram
	facesObserved         prometheus.Counter
	malformedObservations prometheus.Counter
	speakingTransitions   *prometheus.CounterVec
	activeSpeakerSwitches prometheus.Counter

	// Session Metrics
	sessionsActive  prometheus.Gauge
	sessionsCreated prometheus.Counter
	sessionsReaped  prometheus.Counter
	streamsActive   prometheus.Gauge

	// Queue Metrics - per-stream frame queues
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueEnqueued  prometheus.Counter
	queueDequeued  prometheus.Counter
	queueDropped   prometheus.Counter
	queueWaitDelay prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "speakercam",
		subsystem:        "camera",
		histogramBuckets: frameBuckets,
		customLabels:     make(map[string]string),
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
	labels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: labels,
		})
	}

	m.framesProcessed = counter("frames_processed_total", "Total number of frames processed")
	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "frame_latency_milliseconds",
		Help:        "Per-frame processing latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})
	m.facesObserved = counter("faces_observed_total", "Total number of face observations across all frames")
	m.malformedObservations = counter("malformed_observations_total", "Face observations missing a required landmark group")
	m.speakingTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "speaking_transitions_total",
			Help:        "Debounced speaking state changes by new state",
			ConstLabels: labels,
		},
		[]string{"state"},
	)
	m.activeSpeakerSwitches = counter("active_speaker_switches_total", "Number of times the framed speaker changed")

	m.sessionsActive = gauge("sessions_active", "Current number of open sessions")
	m.sessionsCreated = counter("sessions_created_total", "Total number of sessions created")
	m.sessionsReaped = counter("sessions_reaped_total", "Sessions closed for being idle")
	m.streamsActive = gauge("streams_active", "Current number of open frame streams")

	m.queueSize = gauge("queue_size", "Frames waiting across all stream queues")
	m.queueCapacity = gauge("queue_capacity", "Capacity of a single stream queue")
	m.queueEnqueued = counter("queue_enqueue_total", "Total number of frames enqueued")
	m.queueDequeued = counter("queue_dequeue_total", "Total number of frames dequeued")
	m.queueDropped = counter("queue_dropped_total", "Frames dropped because a stream queue was full")
	m.queueWaitDelay = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_wait_milliseconds",
		Help:        "Time a frame spent queued before processing",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordFrameProcessed counts one processed frame with its latency and face count.
func RecordFrameProcessed(latencyMs float64, faces int) {
	globalManager.framesProcessed.Inc()
	globalManager.frameLatency.Observe(latencyMs)
	globalManager.facesObserved.Add(float64(faces))
}

// RecordMalformedObservation increments the malformed observation counter.
func RecordMalformedObservation() {
	globalManager.malformedObservations.Inc()
}

// RecordSpeakingTransition counts a debounced speaking state change.
func RecordSpeakingTransition(speaking bool) {
	state := "silent"
	if speaking {
		state = "speaking"
	}
	globalManager.speakingTransitions.WithLabelValues(state).Inc()
}

// RecordActiveSpeakerSwitch increments the active speaker switch counter.
func RecordActiveSpeakerSwitch() {
	globalManager.activeSpeakerSwitches.Inc()
}

// Session Metrics Functions.

// UpdateSessionsActive sets the number of open sessions.
func UpdateSessionsActive(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionCreated increments the session creation counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionReaped increments the idle session counter.
func RecordSessionReaped() {
	globalManager.sessionsReaped.Inc()
}

// AddStreamsActive adjusts the open stream gauge by delta.
func AddStreamsActive(delta int) {
	globalManager.streamsActive.Add(float64(delta))
}

// Queue Metrics Functions.

// AddQueueSize adjusts the queued frame gauge by delta.
func AddQueueSize(delta int) {
	globalManager.queueSize.Add(float64(delta))
}

// UpdateQueueCapacity sets the per-stream queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter and records how long the
// frame waited.
func RecordQueueDequeue(waitMs float64) {
	globalManager.queueDequeued.Inc()
	globalManager.queueWaitDelay.Observe(waitMs)
}

// RecordQueueDrop increments the dropped frame counter.
func RecordQueueDrop() {
	globalManager.queueDropped.Inc()
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

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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
