package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Weibull fits by method and outcome (success, degenerate, error). Watch for: degenerate ratio.
	WeibullFitsTotal *prometheus.CounterVec

	// Weibull fit latency. Watch for: MLE iterations dominating request time.
	WeibullFitDuration *prometheus.HistogramVec

	// Completed analyses by outcome (fitted, flagged, failed).
	AnalysesTotal *prometheus.CounterVec

	// Analysis cache hits. Misses = analysesTotal requested through the service minus hits.
	CacheHitsTotal *prometheus.CounterVec

	// Cache errors by operation. Watch for: memcached outages.
	CacheErrorsTotal *prometheus.CounterVec

	// Cache circuit breaker state (0 closed, 1 open, 2 half-open) and transitions. Watch for: flapping.
	CacheCircuitBreakerState       prometheus.Gauge
	CacheCircuitBreakerTransitions *prometheus.CounterVec

	// Analysis requests that joined an in-progress computation for the same key.
	RequestCoalescingHitsTotal prometheus.Counter

	// Cache warming runs, failures and duration. Watch for: warming errors at startup.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Artifact files written by kind (json, density_csv, histogram_csv).
	ArtifactsWrittenTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeibullFitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weibullFitsTotal",
			Help: "Total number of Weibull parameter estimations",
		},
		[]string{"method", "outcome"},
	)
	WeibullFitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weibullFitDurationSeconds",
			Help:    "Weibull estimation latency in seconds",
			Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
		},
		[]string{"method"},
	)
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysesTotal",
			Help: "Total number of (city, variable) analyses by outcome",
		},
		[]string{"outcome"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of analysis cache hits",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Total number of cache errors by operation",
		},
		[]string{"operation"},
	)
	CacheCircuitBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cacheCircuitBreakerState",
			Help: "Cache circuit breaker state: 0 closed, 1 open, 2 half-open",
		},
	)
	CacheCircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheCircuitBreakerTransitionsTotal",
			Help: "Total number of cache circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)
	RequestCoalescingHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "requestCoalescingHitsTotal",
			Help: "Total number of analysis requests served by a shared in-flight computation",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Total number of cache warming runs with at least one failed analysis",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	ArtifactsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifactsWrittenTotal",
			Help: "Total number of artifact files written",
		},
		[]string{"kind"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeibullFitsTotal, WeibullFitDuration,
		AnalysesTotal,
		CacheHitsTotal, CacheErrorsTotal, RequestCoalescingHitsTotal,
		CacheCircuitBreakerState, CacheCircuitBreakerTransitions,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		ArtifactsWrittenTotal,
		RateLimitDeniedTotal,
	)
}

// RecordFit records one Weibull estimation for the metrics registry.
func RecordFit(method, outcome string, seconds float64) {
	WeibullFitsTotal.WithLabelValues(method, outcome).Inc()
	WeibullFitDuration.WithLabelValues(method).Observe(seconds)
}

// RecordBreakerTransition records a cache circuit breaker state change.
// state is the numeric value of the new state.
func RecordBreakerTransition(from, to string, state int) {
	CacheCircuitBreakerTransitions.WithLabelValues(from, to).Inc()
	CacheCircuitBreakerState.Set(float64(state))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
