// Package userctx 在请求上下文中传递当前用户.
package userctx

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

type contextKey string

const (
	usernameKey contextKey = "obs.username"
	userKey     contextKey = "obs.user"
)

// userHolder 同一请求内只加载一次用户.
type userHolder struct {
	user *v1.PlatformUser
}

// WithUsername 记录 JWT 中的用户名，并准备用户缓存位置.
func WithUsername(ctx context.Context, username string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, usernameKey, username)
	return context.WithValue(ctx, userKey, &userHolder{})
}

// Username 未认证时返回空串.
func Username(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	name, _ := ctx.Value(usernameKey).(string)
	return name
}

// User 返回已缓存的用户.
func User(ctx context.Context) (*v1.PlatformUser, bool) {
	if ctx == nil {
		return nil, false
	}
	h, ok := ctx.Value(userKey).(*userHolder)
	if !ok || h.user == nil {
		return nil, false
	}
	return h.user, true
}

// StoreUser 缓存加载好的用户；ctx 没有经过 WithUsername 时返回带用户的新 ctx.
func StoreUser(ctx context.Context, user *v1.PlatformUser) context.Context {
	if h, ok := ctx.Value(userKey).(*userHolder); ok {
		h.user = user
		return ctx
	}
	ctx = context.WithValue(ctx, usernameKey, user.Username)
	return context.WithValue(ctx, userKey, &userHolder{user: user})
}
