package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// metricsMiddleware counts requests by matched route and status, and
// times them by route. Unmatched paths share one route tag.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		s.scope.Tagged(map[string]string{
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}).Counter("http_requests").Inc(1)

		s.scope.Tagged(map[string]string{
			"route": route,
		}).Timer("http_latency").Record(time.Since(start))
	}
}
