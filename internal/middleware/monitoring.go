package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"campuswiki/backend/internal/monitoring"
)

// unmatchedRoute 未匹配路由的指标标签，避免路径造成标签基数膨胀
const unmatchedRoute = "unmatched"

// HTTPMetrics HTTP 指标中间件
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = unmatchedRoute
		}
		status := c.Writer.Status()

		metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
			time.Since(start),
			c.Writer.Size(),
		)

		if status >= 500 {
			metrics.RecordError("http_error", "http")
		}
	}
}
