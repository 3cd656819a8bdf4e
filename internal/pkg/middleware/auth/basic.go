package auth

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware/common"
)

// CompareFunc 校验用户名密码，错误决定响应码.
type CompareFunc func(ctx context.Context, username, password string) error

type BasicStrategy struct {
	compare CompareFunc
}

var _ middleware.AuthStrategy = (*BasicStrategy)(nil)

func NewBasicStrategy(compare CompareFunc) *BasicStrategy {
	return &BasicStrategy{compare: compare}
}

func (b *BasicStrategy) AuthFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, err := ParseBasicHeader(c.Request.Header.Get("Authorization"))
		if err != nil {
			core.WriteResponse(c, err, nil)
			return
		}
		if err := b.compare(c.Request.Context(), username, password); err != nil {
			core.WriteResponse(c, err, nil)
			return
		}
		c.Set(common.UsernameKey, username)
		c.Next()
	}
}

// ParseBasicHeader 解析 "Basic base64(username:password)".
func ParseBasicHeader(header string) (string, string, error) {
	auth := strings.SplitN(header, " ", authHeaderCount)
	if len(auth) != authHeaderCount || auth[0] != "Basic" {
		return "", "", errors.WithCode(code.ErrInvalidAuthHeader, "Authorization header format is wrong")
	}
	payload, err := base64.StdEncoding.DecodeString(auth[1])
	if err != nil {
		return "", "", errors.WithCode(code.ErrInvalidBasicPayload, "invalid basic payload")
	}
	pair := strings.SplitN(string(payload), ":", 2)
	if len(pair) != 2 || pair[0] == "" {
		return "", "", errors.WithCode(code.ErrInvalidBasicPayload, "invalid basic payload")
	}
	return pair[0], pair[1], nil
}
