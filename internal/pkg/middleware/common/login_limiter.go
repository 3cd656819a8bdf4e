package common

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/ratelimiter"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

// INCR 与 EXPIRE 组合成固定窗口计数
const loginLimitScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
    return {1, redis.call('TTL', KEYS[1])}
end
return {0, tonumber(ARGV[1]) - current}
`

const loginLimitTimeout = 200 * time.Millisecond

// LoginRateLimiter 按客户端IP限制登录频率，redis 不可用时退回本地令牌桶.
// provider 每次请求读取当前限额，便于运行时调整；limit<=0 表示不限流.
func LoginRateLimiter(redis *storage.RedisCluster, keyPrefix string, provider func() (int, time.Duration)) gin.HandlerFunc {
	var (
		mu         sync.Mutex
		local      *ratelimiter.KeyedLimiter
		lastLimit  int
		lastWindow time.Duration
	)
	localFor := func(limit int, window time.Duration) *ratelimiter.KeyedLimiter {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case local == nil:
			local = ratelimiter.NewKeyedLimiter(limit, window)
		case limit != lastLimit || window != lastWindow:
			local.SetRate(limit, window)
		}
		lastLimit, lastWindow = limit, window
		return local
	}

	return func(c *gin.Context) {
		limit, window := provider()
		if limit <= 0 {
			c.Next()
			return
		}
		if window <= 0 {
			window = time.Minute
		}
		windowSec := int64(window / time.Second)
		if windowSec < 1 {
			windowSec = 1
		}

		ip := c.ClientIP()
		limited, retryAfter, err := redisLimited(c, redis, keyPrefix+ip, limit, windowSec)
		if err != nil {
			log.L(c).Debugf("登录限流降级为本地计数: %v", err)
			limited = !localFor(limit, window).Allow(ip)
			retryAfter = windowSec
		}
		if limited {
			metrics.LoginAttempts.WithLabelValues("limited").Inc()
			log.L(c).Warnw("登录请求过于频繁", "ip", ip, "retryAfter", retryAfter)
			core.WriteResponse(c, errors.WithCode(code.ErrRateLimitExceeded,
				"Too many login attempts, retry after %d seconds", retryAfter), nil)
			return
		}
		c.Next()
	}
}

func redisLimited(c *gin.Context, redis *storage.RedisCluster, key string, limit int, windowSec int64) (bool, int64, error) {
	if redis == nil || !storage.Connected() {
		return false, 0, errors.New("redis not connected")
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), loginLimitTimeout)
	defer cancel()
	result, err := redis.Eval(ctx, loginLimitScript, []string{key}, []interface{}{limit, windowSec})
	if err != nil {
		return false, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, errors.Errorf("unexpected limiter result: %v", result)
	}
	flag, _ := values[0].(int64)
	rest, _ := values[1].(int64)
	return flag == 1, rest, nil
}
