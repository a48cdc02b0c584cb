package api

import (
	"time"

	"github.com/LJTian/PautaFacil/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger 每个请求记录一条结构化日志；/health 只在出错时记录
func RequestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if path == "/health" && status < 400 {
			return
		}
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, "query", q)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
			log.Error("http request with errors", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}
