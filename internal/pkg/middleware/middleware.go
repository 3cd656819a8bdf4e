// Package middleware 组装 gin 中间件并定义认证策略接口.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware/common"
)

// AuthStrategy 认证策略，返回的中间件在认证成功后把用户名写入 common.UsernameKey.
type AuthStrategy interface {
	AuthFunc() gin.HandlerFunc
}

// AuthOperator 在运行时切换认证策略.
type AuthOperator struct {
	strategy AuthStrategy
}

func (operator *AuthOperator) SetAuthStrategy(authStrategy AuthStrategy) {
	operator.strategy = authStrategy
}

func (operator *AuthOperator) AuthFunc() gin.HandlerFunc {
	return operator.strategy.AuthFunc()
}

// InstallMiddlewares 按环境安装通用中间件.
func InstallMiddlewares(engine *gin.Engine, opt *options.Options) {
	for _, mw := range common.GetMiddlewareStack(opt) {
		engine.Use(mw)
	}
}
