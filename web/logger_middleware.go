package web

import (
	"time"

	"github.com/gin-gonic/gin"

	"papermesh/logger"
)

// ginLogger 请求日志中间件，慢请求和错误响应提升日志级别
func ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		line := "%s %s -> %d (%v)"
		switch {
		case status >= 500:
			logger.Error(line, c.Request.Method, c.Request.URL.Path, status, elapsed)
		case status >= 400 || elapsed > time.Second:
			logger.Warn(line, c.Request.Method, c.Request.URL.Path, status, elapsed)
		default:
			logger.Debug(line, c.Request.Method, c.Request.URL.Path, status, elapsed)
		}
	}
}
