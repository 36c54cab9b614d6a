package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsPrefix is the prefix used for all metrics
const MetricsPrefix = "portfolio_proxy_"

// Service constants
const (
	ServicePrices = "prices"
	ServiceSearch = "search"
)

var (
	// Global Coingecko request counter (all services)
	// Cardinality: ~5 (success, error, rate_limited, timeout, etc.)
	CoingeckoRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "coingecko_requests_total",
			Help: "Total number of HTTP requests to Coingecko API across all services",
		},
		[]string{"status"},
	)

	// Service-specific Coingecko request counter
	// Cardinality: ~10 (2 services × 5 statuses)
	ServiceCoingeckoRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "service_coingecko_requests_total",
			Help: "Total number of HTTP requests to Coingecko API per service",
		},
		[]string{"service", "status"},
	)

	// Upstream fetch duration per service, including retries and limiter waits
	// Cardinality: ~2 (number of services)
	DataFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: MetricsPrefix + "data_fetch_duration_seconds",
			Help: "Time taken by a leader to fetch data from Coingecko",
		},
		[]string{"service"},
	)

	// Retry attempts counter
	// Cardinality: ~2 (number of services)
	ServiceRetryCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "service_retry_attempts_total",
			Help: "Total number of retry attempts per service",
		},
		[]string{"service"},
	)

	// Rate limit hits counter
	// Cardinality: ~2 (number of services)
	RateLimitCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "rate_limit_hits_total",
			Help: "Total number of rate limit hits per service",
		},
		[]string{"service"},
	)

	// Cache lookups by outcome
	// Cardinality: ~8 (2 services × hit, miss, stale, unavailable)
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "cache_lookups_total",
			Help: "Number of cache lookups by service and result",
		},
		[]string{"service", "result"},
	)

	// Absorbed cache store failures
	// Cardinality: ~6 (2 services × get, set, decode)
	CacheStoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "cache_store_errors_total",
			Help: "Number of cache store failures treated as misses",
		},
		[]string{"service", "operation"},
	)

	// Coalesced callers by role
	// Cardinality: ~10 (2 services × leader, follower, remote_follower, timeout, lock_error)
	SingleflightOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricsPrefix + "singleflight_outcomes_total",
			Help: "Number of callers per single-flight role",
		},
		[]string{"service", "role"},
	)

	// Request latency per endpoint
	// Cardinality: ~12 (number of API routes)
	RequestLatencyHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: MetricsPrefix + "request_latency_seconds",
			Help: "HTTP request latency by endpoint",
		},
		[]string{"endpoint"},
	)

	// Connected websocket clients
	WebSocketClientsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricsPrefix + "websocket_clients",
			Help: "Number of connected price feed websocket clients",
		},
	)
)

// MetricsWriter provides a unified interface for recording service metrics
type MetricsWriter struct {
	serviceName string
}

// NewMetricsWriter creates a new MetricsWriter for the specified service
func NewMetricsWriter(serviceName string) *MetricsWriter {
	return &MetricsWriter{
		serviceName: serviceName,
	}
}

// GetServiceName returns the service name
func (mw *MetricsWriter) GetServiceName() string {
	return mw.serviceName
}

// RecordServiceCoingeckoRequest records a service-specific Coingecko API request
func (mw *MetricsWriter) RecordServiceCoingeckoRequest(status string) {
	CoingeckoRequestsTotal.WithLabelValues(status).Inc()
	ServiceCoingeckoRequestsTotal.WithLabelValues(mw.serviceName, status).Inc()
	if status == "rate_limited" {
		RateLimitCounter.WithLabelValues(mw.serviceName).Inc()
	}
}

// RecordDataFetch records the duration of a leader's upstream fetch
func (mw *MetricsWriter) RecordDataFetch(duration time.Duration) {
	DataFetchDuration.WithLabelValues(mw.serviceName).Observe(duration.Seconds())
	log.Printf("Metrics: %s data fetch took %.2fs", mw.serviceName, duration.Seconds())
}

// RecordRetryAttempt records a retry attempt
func (mw *MetricsWriter) RecordRetryAttempt() {
	ServiceRetryCounter.WithLabelValues(mw.serviceName).Inc()
}

// RecordCacheLookup records a cache lookup result (hit, miss, stale, unavailable)
func (mw *MetricsWriter) RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(mw.serviceName, result).Inc()
}

// RecordCacheStoreError records a cache store failure that was absorbed
func (mw *MetricsWriter) RecordCacheStoreError(operation string) {
	CacheStoreErrorsTotal.WithLabelValues(mw.serviceName, operation).Inc()
}

// RecordSingleflight records the role a caller took for a coalesced fetch
func (mw *MetricsWriter) RecordSingleflight(role string) {
	SingleflightOutcomesTotal.WithLabelValues(mw.serviceName, role).Inc()
}

// Implement HttpStatusHandler interface for MetricsWriter
// OnRequest records an HTTP request with its status
func (mw *MetricsWriter) OnRequest(status string) {
	mw.RecordServiceCoingeckoRequest(status)
}

// OnRetry records an HTTP retry attempt
func (mw *MetricsWriter) OnRetry() {
	mw.RecordRetryAttempt()
}
