package httpmiddleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/circuitbreaker"
	"slidecraft/backend/go/pkg/logger"
	"slidecraft/backend/go/pkg/ratelimiter"
)

// KeyFunc picks the rate limiting key of a request.
type KeyFunc func(c *gin.Context) string

// ClientIP keys requests by client address.
func ClientIP(c *gin.Context) string { return c.ClientIP() }

// RateLimit rejects requests with 429 once the key's limiter says no.
func RateLimit(limiter *ratelimiter.PerKey, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIP
	}
	return func(c *gin.Context) {
		if !limiter.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// CircuitBreak counts responses with status >= 500 as failures and answers
// 503 without running the handler while the breaker is open.
func CircuitBreak(breaker circuitbreaker.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := breaker.Execute(func() error {
			c.Next()
			if status := c.Writer.Status(); status >= http.StatusInternalServerError {
				return fmt.Errorf("server error: status code %d", status)
			}
			return nil
		})
		if err == circuitbreaker.ErrCircuitOpen {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		}
	}
}

// AccessLog writes one structured line per request. Server errors are
// logged at error level, client errors at warn.
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     status,
			LatencyMS:  time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithError(models.ErrorInfo{Message: c.Errors.String(), StatusCode: status})
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}
