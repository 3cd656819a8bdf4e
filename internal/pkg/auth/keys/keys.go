// Package keys 集中定义认证相关的 redis 键名.
package keys

import (
	"strings"
	"time"
)

const (
	// GenericPrefix 认证相关键统一使用的 RedisCluster.KeyPrefix.
	GenericPrefix = "obs:auth:"

	loginFailPrefix  = "login_fail:"
	loginLimitPrefix = "login_limit:"
	defaultRevoked   = "revoked:"

	// 吊销集合按令牌过期时间分桶
	revokedBucketLayout = "2006010215"
)

func normalize(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "anonymous"
	}
	return trimmed
}

// LoginFailKey 用户连续登录失败计数.
func LoginFailKey(username string) string {
	return loginFailPrefix + normalize(username)
}

// LoginLimitPrefix 按客户端IP的登录限流计数前缀.
func LoginLimitPrefix() string {
	return loginLimitPrefix
}

func revokedBase(prefix string) string {
	base := strings.TrimSpace(prefix)
	if base == "" {
		base = defaultRevoked
	}
	if !strings.HasSuffix(base, ":") {
		base += ":"
	}
	return base
}

// RevokedSetKey 返回令牌所在的吊销集合；同一小时内过期的令牌共用一个集合.
func RevokedSetKey(prefix string, expireAt time.Time) string {
	return revokedBase(prefix) + expireAt.UTC().Format(revokedBucketLayout)
}

// RevokedSetTTL 集合保留到桶内最后一个令牌过期.
func RevokedSetTTL(expireAt, now time.Time) time.Duration {
	end := expireAt.UTC().Truncate(time.Hour).Add(time.Hour)
	if ttl := end.Sub(now); ttl > 0 {
		return ttl
	}
	return time.Second
}
