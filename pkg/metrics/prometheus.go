package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the Prometheus collectors of the IRR service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Report metrics
	reportsBuilt        *prometheus.CounterVec
	reportBuildDuration prometheus.Histogram
	reportErrors        prometheus.Counter
	droppedRecords      *prometheus.CounterVec
	lastReportScores    prometheus.Gauge
	lastReportArticles  prometheus.Gauge
	lastReportReviewers prometheus.Gauge

	// Repository metrics
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec

	// Ingestion metrics
	ingestQueueSize     prometheus.GaugeFunc
	ingestQueueCapacity prometheus.Gauge
	queueDepth          atomic.Pointer[func() int]
	ingestEnqueued      prometheus.Counter
	ingestRejected      *prometheus.CounterVec
	ingestWritten       prometheus.Counter
	ingestWriteErrors   prometheus.Counter
	ingestWriteDuration prometheus.Histogram
	ingestWorkers       prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "irr",
		subsystem:        "reports",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		customLabels:     make(map[string]string),
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.reportsBuilt = auto.NewCounterVec(
		m.counter("built_total", "Total number of reports built by rubric version filter and comparison basis"),
		[]string{"version", "basis"},
	)
	m.reportBuildDuration = auto.NewHistogram(
		m.histogram("build_duration_milliseconds", "Report computation time in milliseconds, excluding the repository fetch"),
	)
	m.reportErrors = auto.NewCounter(
		m.counter("errors_total", "Total number of report requests that failed"),
	)
	m.droppedRecords = auto.NewCounterVec(
		m.counter("dropped_records_total", "Score records set aside during normalization by reason"),
		[]string{"reason"},
	)
	m.lastReportScores = auto.NewGauge(m.gauge("last_scores", "Normalized scores in the most recent report"))
	m.lastReportArticles = auto.NewGauge(m.gauge("last_articles", "Scored articles in the most recent report"))
	m.lastReportReviewers = auto.NewGauge(m.gauge("last_reviewers", "Distinct raters in the most recent report"))

	m.fetchDuration = auto.NewHistogramVec(
		m.histogram("repository_fetch_duration_milliseconds", "Repository fetch time in milliseconds by collection"),
		[]string{"collection"},
	)
	m.fetchErrors = auto.NewCounterVec(
		m.counter("repository_fetch_errors_total", "Repository fetch failures by collection"),
		[]string{"collection"},
	)

	m.ingestQueueSize = auto.NewGaugeFunc(m.gauge("ingest_queue_size", "Score records waiting to be written"), m.queueLen)
	m.ingestQueueCapacity = auto.NewGauge(m.gauge("ingest_queue_capacity", "Capacity of the ingestion queue"))
	m.ingestEnqueued = auto.NewCounter(m.counter("ingest_enqueued_total", "Score records accepted into the ingestion queue"))
	m.ingestRejected = auto.NewCounterVec(
		m.counter("ingest_rejected_total", "Score records not enqueued by reason"),
		[]string{"reason"},
	)
	m.ingestWritten = auto.NewCounter(m.counter("ingest_written_total", "Score records written to the repository"))
	m.ingestWriteErrors = auto.NewCounter(m.counter("ingest_write_errors_total", "Failed repository writes of score batches"))
	m.ingestWriteDuration = auto.NewHistogram(
		m.histogram("ingest_write_duration_milliseconds", "Repository write time of one score batch in milliseconds"),
	)
	m.ingestWorkers = auto.NewGauge(m.gauge("ingest_workers", "Running ingestion workers"))

	m.httpRequests = auto.NewCounterVec(
		m.counter("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counter("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
}

// RecordReportBuilt counts a successful report and its computation time.
func RecordReportBuilt(version, basis string, durationMs float64) {
	if version == "" {
		version = "all"
	}
	globalManager.reportsBuilt.WithLabelValues(version, basis).Inc()
	globalManager.reportBuildDuration.Observe(durationMs)
}

// RecordReportError counts a failed report request.
func RecordReportError() {
	globalManager.reportErrors.Inc()
}

// RecordDroppedRecords adds n records dropped for reason. Zero is ignored.
func RecordDroppedRecords(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.droppedRecords.WithLabelValues(reason).Add(float64(n))
}

// UpdateLastReport sets the size gauges of the most recent report.
func UpdateLastReport(scores, articles, reviewers int) {
	globalManager.lastReportScores.Set(float64(scores))
	globalManager.lastReportArticles.Set(float64(articles))
	globalManager.lastReportReviewers.Set(float64(reviewers))
}

// RecordFetchDuration records how long fetching collection took.
func RecordFetchDuration(collection string, durationMs float64) {
	globalManager.fetchDuration.WithLabelValues(collection).Observe(durationMs)
}

// RecordFetchError counts a failed fetch of collection.
func RecordFetchError(collection string) {
	globalManager.fetchErrors.WithLabelValues(collection).Inc()
}

func (m *Manager) queueLen() float64 {
	if depth := m.queueDepth.Load(); depth != nil {
		return float64((*depth)())
	}
	return 0
}

// TrackIngestQueue makes the queue size gauge read depth at every scrape and
// sets the capacity gauge. depth must be safe to call from any goroutine.
func TrackIngestQueue(depth func() int, capacity int) {
	globalManager.queueDepth.Store(&depth)
	globalManager.ingestQueueCapacity.Set(float64(capacity))
}

// RecordIngestEnqueued counts a record accepted into the ingestion queue.
func RecordIngestEnqueued() {
	globalManager.ingestEnqueued.Inc()
}

// RecordIngestRejected counts a record that was not enqueued.
func RecordIngestRejected(reason string) {
	globalManager.ingestRejected.WithLabelValues(reason).Inc()
}

// RecordIngestWrite records a successful write of n records.
func RecordIngestWrite(n int, durationMs float64) {
	globalManager.ingestWritten.Add(float64(n))
	globalManager.ingestWriteDuration.Observe(durationMs)
}

// RecordIngestWriteError counts a failed batch write.
func RecordIngestWriteError() {
	globalManager.ingestWriteErrors.Inc()
}

// UpdateIngestWorkers sets the number of running ingestion workers.
func UpdateIngestWorkers(n int) {
	globalManager.ingestWorkers.Set(float64(n))
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

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry the package-level recorders write to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
