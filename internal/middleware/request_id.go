package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/harentsoaR/armline-api/internal/logging"
)

const RequestIDHeader = "X-Request-Id"

// RequestID tags each request with an id, reusing the caller's when it sends a sane one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
