// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Purchase ledger
	PurchasesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_recorded_total",
			Help: "Total number of purchases recorded",
		},
		[]string{"scope"}, // "branch" or "none"
	)

	PurchasesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purchases_removed_total",
			Help: "Total number of purchases soft-removed",
		},
	)

	// Inventory aggregation
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inventory_aggregation_duration_seconds",
			Help:    "Time spent aggregating purchases into inventory snapshots",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	AggregatedSnapshots = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inventory_snapshots_per_request",
			Help:    "Number of inventory snapshots produced per aggregation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// Auth
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "rate_limited"
	)
)

// RecordHTTPRequest records one finished request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records request counts and latency, labelled by route pattern
// so path parameters do not explode the label space. Errors from the chain
// are rendered by the app's ErrorHandler first so the final status is counted.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		RecordHTTPRequest(c.Method(), c.Route().Path, c.Response().StatusCode(), time.Since(start))
		return nil
	}
}

// Handler serves the default Prometheus registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
