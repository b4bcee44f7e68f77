package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-zoned/internal/dns/common/log"
)

// RequestLogger logs one entry per request once the handler chain returns.
func RequestLogger(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		if logger == nil {
			return
		}
		fields := map[string]any{
			"method":     method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if user := c.GetString(UserKey); user != "" {
			fields["user"] = user
		}
		logger.Info(fields, "api request")
	}
}
