// Package metrics provides Prometheus metrics for the rescore batch job.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the job.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Run metrics
	runsTotal   prometheus.Counter
	runDuration prometheus.Histogram
	totalRows   prometheus.Gauge

	// Batch metrics
	batchesCompleted prometheus.Counter
	batchesFailed    prometheus.Counter
	batchDuration    prometheus.Histogram
	openTransactions prometheus.Gauge

	// Row metrics
	rowsProcessed    prometheus.Counter
	fetchLatency     prometheus.Histogram
	transformLatency prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rescore",
		subsystem:        "job",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Total number of update runs started",
	})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_seconds",
		Help:      "Histogram of end-to-end run duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.totalRows = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_rows",
		Help:      "Row count observed at the start of the last run",
	})

	m.batchesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_completed_total",
		Help:      "Total number of batches written successfully",
	})

	m.batchesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_failed_total",
		Help:      "Total number of batches whose transaction rolled back",
	})

	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_duration_seconds",
		Help:      "Histogram of per-batch fetch+transform+write duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.openTransactions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "open_transactions",
		Help:      "Number of batch transactions currently in flight",
	})

	m.rowsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rows_processed_total",
		Help:      "Total number of rows transformed and written",
	})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_latency_milliseconds",
		Help:      "Histogram of page fetch latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.transformLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transform_latency_milliseconds",
		Help:      "Histogram of per-row transform latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Handler returns an HTTP handler serving the job's metric registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level recording functions operating on the global manager.

// RecordRunStarted increments the run counter.
func RecordRunStarted() { globalManager.runsTotal.Inc() }

// ObserveRunDuration records an end-to-end run duration.
func ObserveRunDuration(seconds float64) { globalManager.runDuration.Observe(seconds) }

// UpdateTotalRows sets the row count seen at run start.
func UpdateTotalRows(n int64) { globalManager.totalRows.Set(float64(n)) }

// RecordBatchCompleted increments the completed batch counter.
func RecordBatchCompleted() { globalManager.batchesCompleted.Inc() }

// RecordBatchFailed increments the failed batch counter.
func RecordBatchFailed() { globalManager.batchesFailed.Inc() }

// ObserveBatchDuration records one batch's duration.
func ObserveBatchDuration(seconds float64) { globalManager.batchDuration.Observe(seconds) }

// IncOpenTransactions marks one more batch transaction in flight.
func IncOpenTransactions() { globalManager.openTransactions.Inc() }

// DecOpenTransactions marks one batch transaction finished.
func DecOpenTransactions() { globalManager.openTransactions.Dec() }

// RecordRowsProcessed adds n to the processed row counter.
func RecordRowsProcessed(n int) { globalManager.rowsProcessed.Add(float64(n)) }

// ObserveFetchLatency records a page fetch latency.
func ObserveFetchLatency(ms float64) { globalManager.fetchLatency.Observe(ms) }

// ObserveTransformLatency records a per-row transform latency.
func ObserveTransformLatency(ms float64) { globalManager.transformLatency.Observe(ms) }
