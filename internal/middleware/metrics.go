package middleware

import (
	"time"

	"clara-keeper/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP request statistics middleware
 * @description
 * - Counts requests per route and records their duration
 * - Requests with a status >= 400 count as errors
 * - Feeds both the Prometheus registry and the /healthz counters
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		services.RecordRequest(path, c.Writer.Status(), time.Since(start).Seconds())
	}
}
