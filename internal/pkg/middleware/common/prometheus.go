package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// ErrorMetrics 按业务错误码统计 4xx/5xx 响应；请求量与耗时由 /metrics 的 gin 采集器负责.
func ErrorMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		errorCode := 0
		if v, ok := c.Get(core.ErrorCodeKey); ok {
			errorCode, _ = v.(int)
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if status >= http.StatusInternalServerError {
			log.L(c).Errorw("系统错误", "path", path, "method", c.Request.Method, "code", errorCode)
		}
		metrics.HTTPErrors.WithLabelValues(c.Request.Method, path, strconv.Itoa(status), strconv.Itoa(errorCode)).Inc()
	}
}
