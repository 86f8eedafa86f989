package metrics

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMiddleware records request count, latency and response size per
// route template. The scrape endpoint itself is not recorded, and websocket
// upgrades only count toward the in-flight gauge while they are open.
func PrometheusMiddleware() gin.HandlerFunc {
	m := Get()
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/metrics" {
			c.Next()
			return
		}

		m.HTTPRequestsInFlight.Inc()
		start := time.Now()
		c.Next()
		m.HTTPRequestsInFlight.Dec()

		if strings.HasPrefix(path, "/ws/") {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}
		m.RecordHTTPRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start), size)
	}
}

// PrometheusHandler serves the default registry.
func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
