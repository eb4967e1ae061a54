// Package metrics holds the Prometheus collectors for the summary pipeline
// and traversal. Every method is safe to call on a nil *Metrics so that
// packages can be used without metrics in tests and scripts.
package metrics

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "driveview"

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

type Metrics struct {
	registry *prometheus.Registry

	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter

	summarizerCalls    *prometheus.CounterVec
	summarizerDuration prometheus.Histogram

	skippedFolders prometheus.Counter
}

// New creates the collectors on a private registry, along with the standard
// process and Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary_cache",
			Name:      "hits_total",
			Help:      "Summary lookups served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary_cache",
			Name:      "misses_total",
			Help:      "Summary lookups that had to be computed.",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary_cache",
			Name:      "evictions_total",
			Help:      "Summaries evicted because the cache was full or the entry expired.",
		}),
		summarizerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summarizer",
			Name:      "calls_total",
			Help:      "Content summarizations by result.",
		}, []string{"result"}),
		summarizerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summarizer",
			Name:      "duration_seconds",
			Help:      "Time spent summarizing a single file's content.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		skippedFolders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "traversal",
			Name:      "skipped_folders_total",
			Help:      "Subfolders skipped during a recursive traversal because they couldn't be listed.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cacheHits,
		m.cacheMisses,
		m.cacheEvictions,
		m.summarizerCalls,
		m.summarizerDuration,
		m.skippedFolders,
	)

	return m
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) CacheEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

// ObserveSummarization records one content summarization attempt.
func (m *Metrics) ObserveSummarization(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.summarizerCalls.WithLabelValues(result).Inc()
	m.summarizerDuration.Observe(d.Seconds())
}

func (m *Metrics) SkippedFolders(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedFolders.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterRoutes exposes GET /metrics.
func RegisterRoutes(e *echo.Echo, m *Metrics) {
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}
