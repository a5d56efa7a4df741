package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

// RateLimit limits requests per (client IP, route) in fixed windows counted in
// the shared cache store, so limits hold across instances when Redis is used.
// Store failures let the request through.
func RateLimit(store cache.Store, maxRequests int, window time.Duration) gin.HandlerFunc {
	log := logger.WithModule("ratelimit")

	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := "ratelimit:" + c.ClientIP() + "|" + c.Request.Method + " " + route

		count, ttl, err := store.IncrementWithTTL(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := maxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		resetIn := int((ttl + time.Second - 1) / time.Second)

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetIn))

		if count > int64(maxRequests) {
			c.Header("Retry-After", strconv.Itoa(resetIn))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
