// Package metrics exposes Prometheus instrumentation for the evidence engine.
//
// Each Collector owns a private registry so tests and multiple engines never
// collide on registration. All methods are safe on a nil *Collector.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is the default metric namespace.
const Namespace = "evidence"

// Collector holds all Prometheus metrics for the engine
type Collector struct {
	registry *prometheus.Registry

	// Transport metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Retries         *prometheus.CounterVec

	// Pipeline metrics
	Rejections *prometheus.CounterVec
	Candidates prometheus.Counter
	Runs       *prometheus.CounterVec
	RunItems   prometheus.Histogram
	RunLatency prometheus.Histogram

	// Embedding and cache metrics
	EmbeddingCalls *prometheus.CounterVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheErrors    *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = Namespace
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Remote API requests by endpoint and HTTP status",
		}, []string{"endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Remote API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_retries_total",
			Help:      "Retried remote API requests",
		}, []string{"endpoint"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Candidates and replies dropped by stage and reason",
		}, []string{"stage", "reason"}),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Raw candidates received from the transport",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed fetch runs by strategy",
		}, []string{"strategy", "degraded"}),
		RunItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_items",
			Help:      "Items emitted per run",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		RunLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end fetch run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		EmbeddingCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_calls_total",
			Help:      "Embedding provider calls by outcome",
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Similarity cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Similarity cache misses",
		}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Similarity cache storage failures by operation",
		}, []string{"op"}),
	}

	c.registry.MustRegister(
		c.Requests,
		c.RequestDuration,
		c.Retries,
		c.Rejections,
		c.Candidates,
		c.Runs,
		c.RunItems,
		c.RunLatency,
		c.EmbeddingCalls,
		c.CacheHits,
		c.CacheMisses,
		c.CacheErrors,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one remote request. status is 0 for network errors.
func (c *Collector) ObserveRequest(endpoint string, status int, d time.Duration) {
	if c == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	c.Requests.WithLabelValues(endpoint, code).Inc()
	c.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRetry records a retried request.
func (c *Collector) ObserveRetry(endpoint string) {
	if c == nil {
		return
	}
	c.Retries.WithLabelValues(endpoint).Inc()
}

// ObserveRejection records a dropped post or reply.
func (c *Collector) ObserveRejection(stage, reason string) {
	if c == nil {
		return
	}
	c.Rejections.WithLabelValues(stage, reason).Inc()
}

// ObserveCandidates adds n raw candidates.
func (c *Collector) ObserveCandidates(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Candidates.Add(float64(n))
}

// ObserveRun records a finished run.
func (c *Collector) ObserveRun(strategy string, degraded bool, items int, d time.Duration) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(strategy, strconv.FormatBool(degraded)).Inc()
	c.RunItems.Observe(float64(items))
	c.RunLatency.Observe(d.Seconds())
}

// ObserveEmbedding records an embedding provider call outcome
// ("ok", "error" or "rejected" when the circuit is open).
func (c *Collector) ObserveEmbedding(outcome string) {
	if c == nil {
		return
	}
	c.EmbeddingCalls.WithLabelValues(outcome).Inc()
}

// ObserveCacheHit records a similarity cache hit.
func (c *Collector) ObserveCacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// ObserveCacheMiss records a similarity cache miss.
func (c *Collector) ObserveCacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

// ObserveCacheError records a storage failure for op ("get" or "put").
func (c *Collector) ObserveCacheError(op string) {
	if c == nil {
		return
	}
	c.CacheErrors.WithLabelValues(op).Inc()
}

// Snapshot sums every counter family in the registry by metric name. It backs
// the engine_status tool.
func (c *Collector) Snapshot() (map[string]float64, error) {
	out := make(map[string]float64)
	if c == nil {
		return out, nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if ctr := m.GetCounter(); ctr != nil {
				out[mf.GetName()] += ctr.GetValue()
			}
		}
	}
	return out, nil
}
