// Package metrics provides Prometheus metrics for the guestrank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Cache
	cacheLookups  *prometheus.CounterVec
	inflightShare prometheus.Counter

	// Scorer
	scorerCalls   prometheus.Counter
	scorerErrors  *prometheus.CounterVec
	scorerLatency prometheus.Histogram

	// Store
	storeErrors  *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec

	// Batch
	batchGuests   *prometheus.CounterVec
	batchSize     prometheus.Histogram
	batchDuration prometheus.Histogram

	// Refresh queue and workers
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejected   prometheus.Counter
	workerCount     prometheus.Gauge
	workerProcessed *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "guestrank",
		subsystem:        "importance",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_lookups_total",
		Help:      "Score cache decisions by reason (hit, missing, changed, expired, forced)",
	}, []string{"reason"})

	m.inflightShare = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inflight_shared_total",
		Help:      "Analyses that joined an in-flight computation for the same guest",
	})

	m.scorerCalls = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorer_calls_total",
		Help:      "Total calls made to the external scorer",
	})

	m.scorerErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorer_errors_total",
		Help:      "Scorer failures by kind",
	}, []string{"kind"})

	m.scorerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorer_latency_milliseconds",
		Help:      "Latency of scorer calls in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Metadata and guest store failures by operation",
	}, []string{"op"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Store round-trip latency in milliseconds by operation",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.batchGuests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_guests_total",
		Help:      "Guests processed by batch analyses by outcome",
	}, []string{"outcome"})

	m.batchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_size",
		Help:      "Number of guests per batch request",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	m.batchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_duration_milliseconds",
		Help:      "Wall time of batch analyses in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_size",
		Help:      "Current number of queued refresh jobs",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_capacity",
		Help:      "Capacity of the refresh queue",
	})

	m.queueRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_queue_rejected_total",
		Help:      "Refresh jobs rejected because the queue was full or closed",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_worker_count",
		Help:      "Number of refresh workers",
	})

	m.workerProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_jobs_total",
		Help:      "Refresh jobs handled by workers by outcome",
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordCacheLookup counts a cache decision.
func (m *Manager) RecordCacheLookup(reason string) {
	if m.enabled {
		m.cacheLookups.WithLabelValues(reason).Inc()
	}
}

// RecordInflightShared counts an analysis that reused an in-flight result.
func (m *Manager) RecordInflightShared() {
	if m.enabled {
		m.inflightShare.Inc()
	}
}

// RecordScorerCall records one scorer invocation and its latency.
func (m *Manager) RecordScorerCall(latencyMs float64) {
	if m.enabled {
		m.scorerCalls.Inc()
		m.scorerLatency.Observe(latencyMs)
	}
}

// RecordScorerError counts a scorer failure.
func (m *Manager) RecordScorerError(kind string) {
	if m.enabled {
		m.scorerErrors.WithLabelValues(kind).Inc()
	}
}

// RecordStoreLatency observes a store round trip.
func (m *Manager) RecordStoreLatency(op string, latencyMs float64) {
	if m.enabled {
		m.storeLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

// RecordStoreError counts a store failure.
func (m *Manager) RecordStoreError(op string) {
	if m.enabled {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

// RecordBatch records the size, outcome split and duration of one batch.
func (m *Manager) RecordBatch(total, processed, failed int, durationMs float64) {
	if !m.enabled {
		return
	}
	m.batchSize.Observe(float64(total))
	m.batchGuests.WithLabelValues("success").Add(float64(processed))
	m.batchGuests.WithLabelValues("failure").Add(float64(failed))
	m.batchDuration.Observe(durationMs)
}

// UpdateQueue sets the refresh queue gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	if m.enabled {
		m.queueSize.Set(float64(size))
		m.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueRejected counts a rejected refresh job.
func (m *Manager) RecordQueueRejected() {
	if m.enabled {
		m.queueRejected.Inc()
	}
}

// UpdateWorkerCount sets the refresh worker gauge.
func (m *Manager) UpdateWorkerCount(count int) {
	if m.enabled {
		m.workerCount.Set(float64(count))
	}
}

// RecordWorkerJob counts a processed refresh job.
func (m *Manager) RecordWorkerJob(outcome string) {
	if m.enabled {
		m.workerProcessed.WithLabelValues(outcome).Inc()
	}
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Global helpers delegate to the process-wide manager.

func RecordCacheLookup(reason string)          { globalManager.RecordCacheLookup(reason) }
func RecordInflightShared()                    { globalManager.RecordInflightShared() }
func RecordScorerCall(latencyMs float64)       { globalManager.RecordScorerCall(latencyMs) }
func RecordScorerError(kind string)            { globalManager.RecordScorerError(kind) }
func RecordStoreLatency(op string, ms float64) { globalManager.RecordStoreLatency(op, ms) }
func RecordStoreError(op string)               { globalManager.RecordStoreError(op) }
func RecordQueueRejected()                     { globalManager.RecordQueueRejected() }
func UpdateQueue(size, capacity int)           { globalManager.UpdateQueue(size, capacity) }
func UpdateWorkerCount(count int)              { globalManager.UpdateWorkerCount(count) }
func RecordWorkerJob(outcome string)           { globalManager.RecordWorkerJob(outcome) }

// RecordBatch records a finished batch on the global manager.
func RecordBatch(total, processed, failed int, durationMs float64) {
	globalManager.RecordBatch(total, processed, failed, durationMs)
}

// RecordHTTPRequest records a served request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
