package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zimlearn/console-api/internal/service"
)

// Metrics records per-route request counters and latency. Routes are keyed
// by the gin template path so path parameters don't explode label
// cardinality. Scrapes of /metrics itself are not instrumented.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
