package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/metrics"
	"github.com/massage-panel/massage-panel-api/services"
)

// RateLimit rejects callers that exceed the limiter's budget for a route with
// 429 Too Many Requests. Limiter failures let the request through.
func RateLimit(limiter services.RateLimiter, m *metrics.BookingMetrics, log *logging.Logger) gin.HandlerFunc {
	if log == nil {
		log = logging.Default()
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP()+"|"+route)
		if err != nil {
			log.Warn("rate limiter unavailable", "route", route, "error", err)
			c.Next()
			return
		}
		if !allowed {
			m.ObserveRateLimited(route)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later",
				"code":  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
