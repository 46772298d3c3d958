// Package telemetry - metrics.go registers the Prometheus instruments exposed
// on the side-channel metrics listener (GET /metrics, default port 9090).
//
// All metrics use the default registry so importing the package is enough to
// register them before the metrics server starts listening.
//
// HTTP metrics are labelled with the Gin route template (c.FullPath(), e.g.
// /api/v1/links/:id) rather than the raw URL to keep label cardinality
// bounded regardless of user-supplied path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
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

// Resolution metrics.
//
// ResolutionsTotal counts every terminal resolution with labels
// {lookup, layer, outcome}:
//   - lookup:  "placement" or "name"
//   - layer:   the layer that produced the answer ("snapshot", "store",
//     "direct") or "none" for a terminal miss
//   - outcome: "hit" or "miss"
//
// ResolutionFallbacksTotal counts transitions past a layer that could not
// answer, labelled {lookup, layer} with layer naming the layer that was
// skipped. A rising fallback rate on the "snapshot" layer usually means the
// per-request snapshot is not being built before templates resolve.
var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_resolutions_total",
			Help: "Total number of link resolutions, by lookup kind, answering layer, and outcome.",
		},
		[]string{"lookup", "layer", "outcome"},
	)

	ResolutionFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_resolution_fallbacks_total",
			Help: "Total number of resolution fallback transitions, by lookup kind and skipped layer.",
		},
		[]string{"lookup", "layer"},
	)
)

// Audit metrics.
//
// AuditEntriesTotal counts activity log entries written, by action.
// AuditFallbackTotal counts entries that could not be written to the primary
// store and were routed to the fallback sink instead. Any non-zero rate here
// warrants a look at database health — audit data is being shunted to disk.
var (
	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of activity log entries recorded, by action.",
		},
		[]string{"action"},
	)

	AuditFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_fallback_writes_total",
			Help: "Total number of activity log entries diverted to the fallback sink after a primary store failure.",
		},
	)
)

// DBOpenConnections tracks the number of open connections currently held by
// the sql.DB pool. It is sampled every 30 seconds by StartDBStatsCollector
// rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB
// connection pool statistics every 30 seconds and updates DBOpenConnections.
// The goroutine exits when the database becomes unreachable, which happens
// naturally at shutdown once the deferred db.Close() runs.
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
