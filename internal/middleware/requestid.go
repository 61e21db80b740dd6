package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the canonical HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is stored so
	// that handlers and other middleware can retrieve it without reading the response header.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware returns a Gin handler that tags every request with a
// unique identifier propagated via the X-Request-ID header.
//
// An inbound X-Request-ID (set by a load balancer, API gateway, or the caller)
// is reused unchanged; otherwise a new UUID v4 is generated. The identifier is
// stored in gin.Context under RequestIDKey for handlers and downstream
// middleware, and echoed back in the response header so clients can correlate
// a request with server-side structured log entries. Register it before the
// logging middleware so every log line carries the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
