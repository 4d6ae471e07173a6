package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus returns the current rate limit status for the requesting IP
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		status := gin.H{
			"ip": ip,
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"period": "1 minute",
				},
				"compute_per_minute": gin.H{
					"limit":  rl.config.ComputeLimitPerMin,
					"period": "1 minute",
				},
			},
			"redis_enabled": rl.redisClient.IsEnabled(),
			"timestamp":     time.Now().Format(time.RFC3339),
		}

		c.JSON(http.StatusOK, status)
	}
}
