// Package middleware provides the Gin middleware stack: request IDs, metrics,
// and actor attribution. Everything here is registered in the router before
// the route handlers so every request is covered.
package middleware

import (
	"fmt"
	"time"

	"github.com/evolane/linkmanager/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// Metrics records the request counter and latency histogram for every request.
//
// The path label uses c.FullPath(), the matched route template (e.g.
// /api/v1/links/:id), rather than the raw URL, so user-supplied path segments
// cannot inflate label cardinality. Requests that match no route are labelled
// with the literal "<no-route>".
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
