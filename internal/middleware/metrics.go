// Package middleware provides Gin HTTP middleware components for Keyforge.
// All middleware in this package is registered in internal/api/router.go before any
// route handlers so that every request is covered regardless of handler.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/telemetry"
)

// MetricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request through the router.
//
// The path label comes from c.FullPath(), the matched route template
// (e.g. /api/v1/admin/applications/:id/users/:user_id), never the raw URL.
// Requests matching no registered route use the literal "<no-route>" so
// probing unhandled paths cannot inflate label cardinality.
//
// Register after gin.Recovery() and RequestIDMiddleware so the status set by
// error handlers is the one captured.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
