package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venues_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venues_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venues_api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// Store
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "venues_store_operation_duration_seconds",
			Help:    "Duration of venue store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venues_store_operation_errors_total",
			Help: "Total number of failed venue store operations",
		},
		[]string{"backend", "operation"},
	)

	StoreBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "venues_store_circuit_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"backend"},
	)

	StoreBreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venues_store_circuit_breaker_rejections_total",
			Help: "Store calls rejected while the circuit breaker was open",
		},
		[]string{"backend"},
	)

	// Query engine
	QueryResultItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venues_query_result_items",
			Help:    "Number of venues returned per listing query",
			Buckets: []float64{0, 1, 5, 10, 15, 25, 50, 100},
		},
	)

	QueryGeoTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venues_query_total",
			Help: "Listing queries by whether a proximity filter was present",
		},
		[]string{"geo"},
	)

	// Dashboard stats
	StatsRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venues_stats_refresh_duration_seconds",
			Help:    "Duration of dashboard stats refreshes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StatsLastRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "venues_stats_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful dashboard stats refresh",
		},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveStore records the latency and outcome of a store call. Use as
//
//	defer metrics.ObserveStore("mongo", "find", time.Now(), &err)
func ObserveStore(backend, operation string, start time.Time, errp *error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if errp != nil && *errp != nil {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordQuery records the shape and size of a listing query.
func RecordQuery(geo bool, items int) {
	QueryGeoTotal.WithLabelValues(strconv.FormatBool(geo)).Inc()
	QueryResultItems.Observe(float64(items))
}
