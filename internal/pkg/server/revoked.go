package server

import (
	"context"
	"sync"
	"time"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/auth/keys"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

// revokedTokens 已注销令牌的 jti.
// redis 中的集合在实例间共享；本地表保证 redis 不可用时本实例注销的令牌仍然失效.
type revokedTokens struct {
	redis  *storage.RedisCluster
	prefix string

	mu    sync.RWMutex
	local map[string]time.Time
}

func newRevokedTokens(redis *storage.RedisCluster, prefix string) *revokedTokens {
	return &revokedTokens{
		redis:  redis,
		prefix: prefix,
		local:  make(map[string]time.Time),
	}
}

func (r *revokedTokens) Revoke(ctx context.Context, jti string, expireAt time.Time) {
	r.mu.Lock()
	r.local[jti] = expireAt
	r.mu.Unlock()

	if r.redis == nil || !storage.Connected() {
		log.L(ctx).Warnf("redis 不可用，令牌仅在本实例吊销: jti=%s", jti)
		return
	}
	now := time.Now()
	key := keys.RevokedSetKey(r.prefix, expireAt)
	if err := r.redis.AddToSet(ctx, key, jti, keys.RevokedSetTTL(expireAt, now)); err != nil {
		log.L(ctx).Errorf("写入吊销集合失败: jti=%s, error=%v", jti, err)
	}
}

// IsRevoked redis 查询失败时只依据本地表判断.
func (r *revokedTokens) IsRevoked(ctx context.Context, jti string, expireAt time.Time) bool {
	r.mu.RLock()
	_, ok := r.local[jti]
	r.mu.RUnlock()
	if ok {
		return true
	}
	if r.redis == nil || !storage.Connected() {
		return false
	}
	member, err := r.redis.IsMemberOfSet(ctx, keys.RevokedSetKey(r.prefix, expireAt), jti)
	if err != nil {
		log.L(ctx).Warnf("查询吊销集合失败: jti=%s, error=%v", jti, err)
		return false
	}
	return member
}

func (r *revokedTokens) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for jti, exp := range r.local {
		if now.After(exp) {
			delete(r.local, jti)
			removed++
		}
	}
	return removed
}

// run 定期清理本地表中已自然过期的令牌.
func (r *revokedTokens) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.sweep(now); n > 0 {
				log.Debugf("清理过期吊销令牌 %d 个", n)
			}
		}
	}
}
