package middleware

import (
	"strconv"

	"film-resolver/app/logger"
	"film-resolver/app/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 按路由模板统计请求数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// AccessLog 使用应用日志器记录请求
func AccessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.GetString(ClientKey))
	}
}
