// Package metrics exposes Prometheus collectors for the proxy service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache event labels recorded by ObserveCacheEvent.
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheStore      = "store"
	CacheStoreError = "store_error"
	CacheDrop       = "drop"
)

// Rate limit verdict labels recorded by ObserveRateLimit.
const (
	RateLimitAllowed  = "allowed"
	RateLimitRejected = "rejected"
	RateLimitFailOpen = "fail_open"
)

var (
	proxyRequestsTotal            *prometheus.CounterVec
	proxyRequestDurationSeconds   *prometheus.HistogramVec
	proxyCacheEventsTotal         *prometheus.CounterVec
	proxyRateLimitTotal           *prometheus.CounterVec
	upstreamRequestsTotal         *prometheus.CounterVec
	upstreamRequestDurationSecond *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		proxyRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_requests_total",
				Help: "Total number of proxied HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		proxyRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proxy_request_duration_seconds",
				Help:    "Histogram of proxied request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		proxyCacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_cache_events_total",
				Help: "Total cache events, labeled by event (hit, miss, store, store_error, drop).",
			},
			[]string{"event"},
		)

		proxyRateLimitTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proxy_rate_limit_total",
				Help: "Total rate limit verdicts, labeled by verdict.",
			},
			[]string{"verdict"},
		)

		upstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Total upstream API calls, labeled by resource and outcome.",
			},
			[]string{"resource", "outcome"},
		)

		upstreamRequestDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Histogram of upstream API call latencies, labeled by resource.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"resource"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest increments the proxied request metrics.
func ObserveRequest(method, route string, code int, duration time.Duration) {
	proxyRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	proxyRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCacheEvent increments the cache event counter.
func ObserveCacheEvent(event string) {
	proxyCacheEventsTotal.WithLabelValues(event).Inc()
}

// ObserveRateLimit increments the rate limit verdict counter.
func ObserveRateLimit(verdict string) {
	proxyRateLimitTotal.WithLabelValues(verdict).Inc()
}

// ObserveUpstream records one upstream API call.
func ObserveUpstream(resource, outcome string, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(resource, outcome).Inc()
	upstreamRequestDurationSecond.WithLabelValues(resource).Observe(duration.Seconds())
}
