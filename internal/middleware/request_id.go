// Package middleware holds the gin middleware chain for the play engine.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id to and from clients.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key.
	RequestIDKey = "request_id"
)

// RequestID injects a request id, preferring a client-supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Writer.Header().Set(RequestIDHeader, requestID)
		c.Set(RequestIDKey, requestID)

		c.Next()
	}
}

// GetRequestID returns the request id from the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if requestID, ok := id.(string); ok {
			return requestID
		}
	}
	return ""
}
