package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/circle/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus. Paths are labelled
// by route template so ids do not explode label cardinality. A nil m uses
// the global metrics.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	if m == nil {
		m = metrics.Get()
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.HTTPActiveConnections.WithLabelValues(method, path).Inc()
		defer m.HTTPActiveConnections.WithLabelValues(method, path).Dec()

		if contentLength := c.Request.ContentLength; contentLength > 0 {
			m.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(contentLength))
		}

		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime).Seconds()

		// Numeric status codes let dashboards match status=~"5.."
		statusStr := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)
		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSize.WithLabelValues(method, path, statusStr).Observe(float64(size))
		}
		if c.Writer.Status() >= 500 {
			m.ErrorsTotal.WithLabelValues("http_"+statusStr, path).Inc()
		}
	}
}
