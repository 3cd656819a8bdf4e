// Package auth 提供 Basic、JWT Bearer 以及按 Authorization 头自动选择的认证策略.
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware"
)

const authHeaderCount = 2

type AutoStrategy struct {
	basicStrategy middleware.AuthStrategy
	jwtStrategy   middleware.AuthStrategy
}

var _ middleware.AuthStrategy = AutoStrategy{}

func NewAutoStrategy(basic, jwt middleware.AuthStrategy) AutoStrategy {
	return AutoStrategy{
		basicStrategy: basic,
		jwtStrategy:   jwt,
	}
}

func (a AutoStrategy) AuthFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Request.Header.Get("Authorization")
		if header == "" {
			core.WriteResponse(c, errors.WithCode(code.ErrMissingHeader, "Authorization header is not present"), nil)
			return
		}
		auth := strings.SplitN(header, " ", authHeaderCount)
		if len(auth) != authHeaderCount {
			core.WriteResponse(c, errors.WithCode(code.ErrInvalidAuthHeader, "Authorization header format is wrong"), nil)
			return
		}

		operator := middleware.AuthOperator{}
		switch auth[0] {
		case "Basic":
			operator.SetAuthStrategy(a.basicStrategy)
		case "Bearer":
			operator.SetAuthStrategy(a.jwtStrategy)
		default:
			core.WriteResponse(c, errors.WithCode(code.ErrSignatureInvalid, "unrecognized Authorization header"), nil)
			return
		}
		operator.AuthFunc()(c)
	}
}
