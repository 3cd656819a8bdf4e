package common

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// UsernameKey 认证中间件把用户名写入 gin 上下文时使用的键.
const UsernameKey = "username"

// Context 把请求ID同时写入 gin 上下文和标准 context，service 层通过 log.L(ctx) 取用.
func Context() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString(XRequestIDKey)
		c.Set(log.KeyRequestID, requestID)

		if requestID != "" {
			//nolint:staticcheck // 与 log.L 约定使用字符串键
			ctx := context.WithValue(c.Request.Context(), log.KeyRequestID, requestID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
