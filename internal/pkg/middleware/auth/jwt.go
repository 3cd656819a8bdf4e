package auth

import (
	ginjwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware"
)

// JWTStrategy defines jwt bearer authentication strategy.
type JWTStrategy struct {
	*ginjwt.GinJWTMiddleware
}

var _ middleware.AuthStrategy = JWTStrategy{}

// NewJWTStrategy create jwt bearer strategy with GinJWTMiddleware.
func NewJWTStrategy(gjwt *ginjwt.GinJWTMiddleware) JWTStrategy {
	return JWTStrategy{gjwt}
}

// AuthFunc defines jwt bearer strategy as the gin authentication middleware.
func (j JWTStrategy) AuthFunc() gin.HandlerFunc {
	return j.MiddlewareFunc()
}
