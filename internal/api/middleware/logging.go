package middleware

import (
	"time"

	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger attaches a request scoped logger to the request context and
// writes one line per completed request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		l := logger.Get().With().
			Str("request_id", requestID).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), &l))

		start := time.Now()
		c.Next()

		event := l.Info()
		if c.Writer.Status() >= 500 {
			event = l.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}
