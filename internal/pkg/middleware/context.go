package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware/common"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/userctx"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// UserContext 放在认证中间件之后，把认证得到的用户名传给 service 层.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString(common.UsernameKey)
		if username == "" {
			c.Next()
			return
		}
		c.Set(log.KeyUsername, username)
		ctx := userctx.WithUsername(c.Request.Context(), username)
		//nolint:staticcheck // 与 log.L 约定使用字符串键
		ctx = context.WithValue(ctx, log.KeyUsername, username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
