package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Order creation outcomes
const (
	OutcomeCreated   = "created"
	OutcomeReplayed  = "replayed"
	OutcomeRecovered = "recovered"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OrdersTotal counts order creation calls by outcome
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Order creation requests by outcome",
		},
		[]string{"outcome"},
	)

	OrderCommitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_commit_duration_seconds",
			Help:    "Duration of the atomic order commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)

	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of calls rejected or failed through a circuit breaker",
		},
		[]string{"circuit_name"},
	)

	// ProductStockLevel is refreshed by the low-stock job for products at or below the threshold
	ProductStockLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "product_stock_level",
			Help: "Stock quantity of low-stock products",
		},
		[]string{"product_id", "sku"},
	)

	LowStockProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "low_stock_products",
			Help: "Number of active products at or below the low-stock threshold",
		},
	)
)
