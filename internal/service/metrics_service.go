package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/timetable-api/internal/models"
)

// MetricsService owns a private Prometheus registry for HTTP, cache, catalog,
// generation and optimizer instrumentation.
type MetricsService struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	cacheLatency         prometheus.Observer
	cacheWrite           prometheus.Observer
	cacheHitRatio        prometheus.Gauge
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	catalogQueryDuration *prometheus.HistogramVec
	generationDuration   *prometheus.HistogramVec
	generationTotal      *prometheus.CounterVec
	generationFallbacks  prometheus.Counter
	unscheduledSessions  prometheus.Counter
	optimizerMoves       prometheus.Counter
	optimizerRuns        *prometheus.CounterVec
	notifications        *prometheus.CounterVec

	cacheHitCount           uint64
	cacheMissCount          uint64
	requestCount            uint64
	requestDurationTotal    uint64
	catalogQueryCount       uint64
	generationCount         uint64
	generationDurationTotal uint64
	fallbackCount           uint64
}

// NewMetricsService registers collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	catalogQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_query_duration_seconds",
		Help:    "Duration of catalog reads against the backing store",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"strategy"})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generations_total",
		Help: "Generation runs by strategy and outcome",
	}, []string{"strategy", "outcome"})

	generationFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_generation_fallbacks_total",
		Help: "Runs where the requested strategy fell back to deterministic placement",
	})

	unscheduledSessions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_unscheduled_sessions_total",
		Help: "Required sessions that could not be placed",
	})

	optimizerMoves := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_optimizer_moves_total",
		Help: "Accepted optimizer relocations",
	})

	optimizerRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_optimizer_runs_total",
		Help: "Optimizer runs by outcome",
	}, []string{"outcome"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notifications by type and delivery result",
	}, []string{"type", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		catalogQueryDuration,
		generationDuration, generationTotal, generationFallbacks, unscheduledSessions,
		optimizerMoves, optimizerRuns,
		notifications,
		goroutines,
	)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		cacheLatency:         cacheLatency,
		cacheWrite:           cacheWrite,
		cacheHitRatio:        cacheHitRatio,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
		catalogQueryDuration: catalogQueryDuration,
		generationDuration:   generationDuration,
		generationTotal:      generationTotal,
		generationFallbacks:  generationFallbacks,
		unscheduledSessions:  unscheduledSessions,
		optimizerMoves:       optimizerMoves,
		optimizerRuns:        optimizerRuns,
		notifications:        notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveCatalogQuery records a catalog read against the backing store.
func (m *MetricsService) ObserveCatalogQuery(collection string, duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogQueryDuration.WithLabelValues(collection).Observe(duration.Seconds())
	atomic.AddUint64(&m.catalogQueryCount, 1)
}

// ObserveGeneration records one generation run.
func (m *MetricsService) ObserveGeneration(strategy, outcome string, fallback bool, unscheduled int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.generationTotal.WithLabelValues(strategy, outcome).Inc()
	if fallback {
		m.generationFallbacks.Inc()
		atomic.AddUint64(&m.fallbackCount, 1)
	}
	if unscheduled > 0 {
		m.unscheduledSessions.Add(float64(unscheduled))
	}
	atomic.AddUint64(&m.generationCount, 1)
	atomic.AddUint64(&m.generationDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveOptimization records one optimizer run.
func (m *MetricsService) ObserveOptimization(moves int) {
	if m == nil {
		return
	}
	outcome := "improved"
	if moves == 0 {
		outcome = "noop"
	}
	m.optimizerRuns.WithLabelValues(outcome).Inc()
	m.optimizerMoves.Add(float64(moves))
}

// ObserveNotification records the delivery result of a notification.
func (m *MetricsService) ObserveNotification(kind models.NotificationType, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(kind), result).Inc()
}

// Snapshot returns aggregated metrics for the summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	generations := atomic.LoadUint64(&m.generationCount)
	genDuration := atomic.LoadUint64(&m.generationDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgGenerationMs float64
	if generations > 0 {
		avgGenerationMs = float64(genDuration) / float64(generations) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:             cacheRatio,
		CacheHits:                 hits,
		CacheMisses:               misses,
		RequestsTotal:             requests,
		AverageRequestDurationMs:  avgRequestMs,
		CatalogQueryCount:         atomic.LoadUint64(&m.catalogQueryCount),
		GenerationsTotal:          generations,
		GenerationFallbacks:       atomic.LoadUint64(&m.fallbackCount),
		AverageGenerationDuration: avgGenerationMs,
		Goroutines:                runtime.NumGoroutine(),
		GeneratedAt:               time.Now().UTC(),
	}
}
