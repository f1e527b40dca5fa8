package middleware

import (
	"strconv"
	"time"

	"classroom/internal/metrics"

	"github.com/gin-gonic/gin"
)

func HttpMiddleware(observer metrics.HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observer.ObserveRequest(path, c.Request.Method, status, duration)
	}
}
