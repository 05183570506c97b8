// Package metrics provides Prometheus metrics for the pitchlens enrichment pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Tracking stream
	framesRead       prometheus.Counter
	rowsFlattened    prometheus.Counter
	malformedLines   prometheus.Counter
	duplicateFrames  prometheus.Counter
	outOfOrderFrames prometheus.Counter

	// Join
	rowsEnriched prometheus.Counter
	rowsDropped  prometheus.Counter
	rosterSize   prometheus.Gauge

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Knowledge bank
	fieldsScanned *prometheus.CounterVec
	configGaps    *prometheus.CounterVec

	// Runs
	stageDuration        *prometheus.HistogramVec
	runsTotal            *prometheus.CounterVec
	errorRateByComponent *prometheus.CounterVec

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
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
		namespace:        "pitchlens",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.framesRead = m.counter("frames_read_total", "Total number of tracking frames decoded")
	m.rowsFlattened = m.counter("rows_flattened_total", "Total number of per-player rows produced by the flattener")
	m.malformedLines = m.counter("malformed_lines_total", "Total number of tracking lines rejected as malformed")
	m.duplicateFrames = m.counter("duplicate_frames_total", "Total number of frames dropped because their id was already seen")
	m.outOfOrderFrames = m.counter("out_of_order_frames_total", "Total number of frames whose id went backwards")

	m.rowsEnriched = m.counter("rows_enriched_total", "Total number of enriched tracking rows written")
	m.rowsDropped = m.counter("rows_dropped_total", "Total number of tracking rows without a roster match")
	m.rosterSize = m.gauge("roster_size", "Number of roster entries in the current run")

	m.queueSize = m.gauge("queue_size", "Current number of frame batches waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of batches enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of batches dequeued")

	m.workerCount = m.gauge("worker_count", "Current number of join workers")
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_processing_latency_milliseconds"),
		Help:        "Join worker latency per batch in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.fieldsScanned = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fields_scanned_total"),
		Help:        "Total number of fields described by the knowledge bank, by dataset",
		ConstLabels: m.customLabels,
	}, []string{"dataset"})

	m.configGaps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("configuration_gaps_total"),
		Help:        "Total number of fields missing from the catalog configuration, by dataset",
		ConstLabels: m.customLabels,
	}, []string{"dataset"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stage_duration_milliseconds"),
		Help:        "Pipeline stage duration in milliseconds",
		Buckets:     []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000, 300000},
		ConstLabels: m.customLabels,
	}, []string{"stage"})

	m.runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("runs_total"),
		Help:        "Total number of pipeline runs by outcome",
		ConstLabels: m.customLabels,
	}, []string{"outcome"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Total number of errors by component",
		ConstLabels: m.customLabels,
	}, []string{"component", "error_type"})

	m.httpRequestsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.name("requests_total"),
		Help:        "Total number of HTTP requests by endpoint, method and status",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        m.name("request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Tracking stream.

// RecordFrameRead increments the decoded frames counter.
func RecordFrameRead() { globalManager.framesRead.Inc() }

// RecordRowsFlattened adds n per-player rows.
func RecordRowsFlattened(n int) { globalManager.rowsFlattened.Add(float64(n)) }

// RecordMalformedLine increments the malformed line counter.
func RecordMalformedLine() { globalManager.malformedLines.Inc() }

// RecordDuplicateFrame increments the duplicate frame counter.
func RecordDuplicateFrame() { globalManager.duplicateFrames.Inc() }

// RecordOutOfOrderFrame increments the out-of-order frame counter.
func RecordOutOfOrderFrame() { globalManager.outOfOrderFrames.Inc() }

// Join.

// RecordRowsEnriched adds n enriched rows.
func RecordRowsEnriched(n int) { globalManager.rowsEnriched.Add(float64(n)) }

// RecordRowsDropped adds n rows without a roster match.
func RecordRowsDropped(n int) { globalManager.rowsDropped.Add(float64(n)) }

// UpdateRosterSize sets the roster size gauge.
func UpdateRosterSize(n int) { globalManager.rosterSize.Set(float64(n)) }

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// Workers.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records the time a worker spent on one batch.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// Knowledge bank.

// RecordFieldsScanned adds n described fields for a dataset.
func RecordFieldsScanned(dataset string, n int) {
	globalManager.fieldsScanned.WithLabelValues(dataset).Add(float64(n))
}

// RecordConfigurationGap increments the gap counter for a dataset.
func RecordConfigurationGap(dataset string) {
	globalManager.configGaps.WithLabelValues(dataset).Inc()
}

// Runs.

// RecordStageDuration records how long a pipeline stage took.
func RecordStageDuration(stage string, d time.Duration) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

// RecordRun increments the run counter for an outcome (ok, input_error, internal_error).
func RecordRun(outcome string) { globalManager.runsTotal.WithLabelValues(outcome).Inc() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// HTTP.

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequestsTotal.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the current registry in the text exposition format,
// for node_exporter's textfile collector after a batch run.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %v", ErrObserveFailed, err)
	}
	return nil
}
