package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header carrying the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID is
	// stored for handlers and later middleware.
	RequestIDKey = "request_id"
)

// RequestID ensures every request carries a unique identifier. An inbound
// X-Request-ID (from a proxy or the caller) is reused unchanged; otherwise a
// new UUID is generated. The id is stored on the gin context and echoed back
// in the response header so clients can correlate with server-side logs.
func RequestID() gin.HandlerFunc {
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
