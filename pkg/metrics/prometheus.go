// Package metrics provides Prometheus metrics for the fantasy cricket service.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every series the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ledger
	ledgerOperations *prometheus.CounterVec
	ledgerRetries    prometheus.Counter
	idempotentHits   prometheus.Counter

	// Valuation and ranking
	valuations         *prometheus.CounterVec
	leaderboardBuildMs prometheus.Histogram
	completeTeams      prometheus.Gauge

	// Catalogue
	players prometheus.Gauge
	users   prometheus.Gauge

	// Notifications
	notifications    *prometheus.CounterVec
	websocketClients prometheus.Gauge

	// Import pipeline
	importRecords      *prometheus.CounterVec
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerProcessingMs prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out unless asked

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its series on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fantasy",
		subsystem:        "cricket",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every series
	auto := promauto.With(m.registry)

	m.ledgerOperations = auto.NewCounterVec(m.counter("ledger_operations_total",
		"Roster mutations by operation and outcome"), []string{"operation", "outcome"})
	m.ledgerRetries = auto.NewCounter(m.counter("ledger_retries_total",
		"Roster mutations retried after a concurrent write"))
	m.idempotentHits = auto.NewCounter(m.counter("idempotent_replays_total",
		"Roster mutations skipped because their Idempotency-Key was already used"))

	m.valuations = auto.NewCounterVec(m.counter("valuations_total",
		"Player valuations by the rule that produced the value"), []string{"source"})
	m.leaderboardBuildMs = auto.NewHistogram(m.histogram("leaderboard_build_milliseconds",
		"Time to rank every user"))
	m.completeTeams = auto.NewGauge(m.gauge("complete_teams",
		"Users with a full roster at the last ranking"))

	m.players = auto.NewGauge(m.gauge("players", "Players in the catalogue"))
	m.users = auto.NewGauge(m.gauge("users", "Registered users"))

	m.notifications = auto.NewCounterVec(m.counter("notifications_total",
		"Team update notifications by outcome"), []string{"outcome"})
	m.websocketClients = auto.NewGauge(m.gauge("websocket_clients",
		"Connected websocket clients"))

	m.importRecords = auto.NewCounterVec(m.counter("import_records_total",
		"Imported player records by outcome"), []string{"outcome"})
	m.queueSize = auto.NewGauge(m.gauge("import_queue_size", "Records waiting in the import queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("import_queue_capacity", "Import queue capacity"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("import_queue_enqueue_errors_total",
		"Records refused by the import queue"))
	m.workerCount = auto.NewGauge(m.gauge("import_workers", "Running import workers"))
	m.workerProcessingMs = auto.NewHistogram(m.histogram("import_processing_milliseconds",
		"Time to derive, value and store one record"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_total",
		"Errors by component and type"), []string{"component", "error_type"})
}

// RecordLedgerOperation counts a roster mutation.
func RecordLedgerOperation(operation, outcome string) {
	globalManager.ledgerOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordLedgerRetry counts a retry after a version conflict.
func RecordLedgerRetry() {
	globalManager.ledgerRetries.Inc()
}

// RecordIdempotentReplay counts a skipped duplicate mutation.
func RecordIdempotentReplay() {
	globalManager.idempotentHits.Inc()
}

// RecordValuation counts a valuation by source.
func RecordValuation(source string) {
	globalManager.valuations.WithLabelValues(source).Inc()
}

// RecordLeaderboardBuild observes ranking latency in milliseconds.
func RecordLeaderboardBuild(latencyMs float64) {
	globalManager.leaderboardBuildMs.Observe(latencyMs)
}

// UpdateCompleteTeams sets the number of complete rosters.
func UpdateCompleteTeams(count int) {
	globalManager.completeTeams.Set(float64(count))
}

// UpdatePlayers sets the catalogue size.
func UpdatePlayers(count int) {
	globalManager.players.Set(float64(count))
}

// UpdateUsers sets the number of users.
func UpdateUsers(count int) {
	globalManager.users.Set(float64(count))
}

// RecordNotification counts a notification attempt.
func RecordNotification(outcome string) {
	globalManager.notifications.WithLabelValues(outcome).Inc()
}

// UpdateWebsocketClients sets the connected client count.
func UpdateWebsocketClients(count int) {
	globalManager.websocketClients.Set(float64(count))
}

// RecordImport counts an imported record.
func RecordImport(outcome string) {
	globalManager.importRecords.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the import queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the import queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the running worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency observes per-record processing time in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingMs.Observe(latencyMs)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RegisterRuntimeCollectors adds Go runtime and process collectors to the
// custom registry. Safe to call once.
func RegisterRuntimeCollectors() error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := customRegistry.Register(c); err != nil {
			return fmt.Errorf("%w: %w", ErrRegisterFailed, err)
		}
	}
	return nil
}

// GetRegistry returns the custom registry holding the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
