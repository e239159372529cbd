package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/loom-gateway/internal/logger"
	"github.com/custodia-labs/loom-gateway/internal/ratelimit"
)

const requestIDKey = "requestID"

// requestIDMiddleware adds a unique request ID to each request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// accessLogMiddleware writes one line per request through the logger.
func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("%s %s %d %s request_id=%s",
			c.Request.Method, path, c.Writer.Status(), time.Since(start).Round(time.Microsecond), requestID(c))
	}
}

// recoveryMiddleware turns handler panics into a 500 envelope.
func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(logger.Writer(), func(c *gin.Context, recovered any) {
		logger.Error("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		abortWithError(c, http.StatusInternalServerError, errTypeServer, "", "internal server error")
	})
}

// rateLimitMiddleware applies a token bucket per client IP.
func rateLimitMiddleware(limiter *ratelimit.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Limit()))
			c.Header("Retry-After", "1")
			abortWithError(c, http.StatusTooManyRequests, errTypeRateLimit, "rate_limit_exceeded",
				"Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
