// Package telemetry provides application-level observability for Keyforge.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<KF_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is intentionally not part of the Gin
// router so it stays off the public ingress and is not subject to the
// rate-limiting middleware applied to the client API.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Login pipeline outcome counters, labelled by result kind
//   - Webhook delivery counters and latency, labelled by final result
//   - Activity log write failure counter (audit writes are best-effort; this is the only visibility into drops)
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/login) rather
// than the raw request URL to prevent unbounded label cardinality. Login
// outcome labels come from a closed enum of rejection kinds.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Login pipeline metrics, recorded by the authorization pipeline on every
// terminal outcome.
//
// LoginOutcomesTotal is a CounterVec with label {result}. The label value is
// "success" or one of the closed set of rejection kinds (blacklisted_ip,
// invalid_credentials, hwid_mismatch, ...), so cardinality is bounded.
//
// Example PromQL queries:
//   - Failure ratio:          sum(rate(login_outcomes_total{result!="success"}[5m])) / sum(rate(login_outcomes_total[5m]))
//   - Blacklist hit rate:     rate(login_outcomes_total{result=~"blacklisted_.*"}[5m])
//   - HWID abuse indicator:   increase(login_outcomes_total{result="hwid_mismatch"}[1h])
var LoginOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "login_outcomes_total",
		Help: "Total number of terminal login pipeline outcomes, by result kind.",
	},
	[]string{"result"},
)

// Webhook delivery metrics, recorded by the notifier's dispatcher.
//
// WebhookDeliveriesTotal is a CounterVec with label {result} ∈ {delivered,
// failed}. "failed" means the retry budget was exhausted, not a single
// transient failure.
//
// WebhookDeliveryAttemptsTotal counts individual HTTP attempts including
// retries, so (attempts - deliveries) approximates transient failure volume.
//
// Example PromQL queries:
//   - Exhausted deliveries:  increase(webhook_deliveries_total{result="failed"}[1h])
//   - Retry amplification:   rate(webhook_delivery_attempts_total[5m]) / rate(webhook_deliveries_total[5m])
var (
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of completed webhook deliveries, by final result (delivered, failed).",
		},
		[]string{"result"},
	)

	WebhookDeliveryAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_delivery_attempts_total",
			Help: "Total number of individual webhook HTTP delivery attempts, including retries.",
		},
	)

	WebhookDeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_delivery_duration_seconds",
			Help:    "Duration of a complete webhook delivery including retries and backoff.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// ActivityLogWriteFailuresTotal counts audit rows that could not be persisted.
// Activity writes are swallowed by design so they can never fail a login
// request; this counter is the operator's only signal that audit data is
// being lost. Alert on any sustained non-zero rate.
var ActivityLogWriteFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "activity_log_write_failures_total",
		Help: "Total number of activity log rows dropped due to persistence errors.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool. It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
