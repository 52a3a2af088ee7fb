package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursegen-backend/internal/platform/observability"
)

// Metrics records API latency by route template. Probe and scrape routes are not counted, and
// unmatched paths share one label so random URLs cannot grow the series set.
func Metrics(m *observability.Metrics, skip ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		skipped[route] = struct{}{}
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := skipped[route]; ok {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		start := time.Now()
		m.ApiInflightInc()
		c.Next()
		m.ApiInflightDec()
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
