// Package ratelimiter 按键（通常是客户端IP）维护本地令牌桶，redis 不可用时作为登录限流的兜底.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter 每个键独立限速，长时间未访问的键由后台协程回收.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idle    time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// NewKeyedLimiter 在 window 内每个键最多放行 n 次.
func NewKeyedLimiter(n int, window time.Duration) *KeyedLimiter {
	if n <= 0 {
		n = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	k := &KeyedLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Every(window / time.Duration(n)),
		burst:   n,
		idle:    2 * window,
		stopCh:  make(chan struct{}),
	}
	go k.run()
	return k
}

// Allow 消耗一个令牌.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.AllowAt(key, time.Now())
}

func (k *KeyedLimiter) AllowAt(key string, now time.Time) bool {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	k.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// SetRate 运行时调整，已有的键同步生效.
func (k *KeyedLimiter) SetRate(n int, window time.Duration) {
	if n <= 0 || window <= 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	old := k.limit
	k.limit = rate.Every(window / time.Duration(n))
	k.burst = n
	for _, e := range k.entries {
		e.limiter.SetLimit(k.limit)
		e.limiter.SetBurst(k.burst)
	}
	log.Warnf("[RateLimiter] SetRate: %.4f -> %.4f req/s", float64(old), float64(k.limit))
}

func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Stop 停止回收协程，可重复调用.
func (k *KeyedLimiter) Stop() {
	k.once.Do(func() { close(k.stopCh) })
}

func (k *KeyedLimiter) run() {
	ticker := time.NewTicker(k.idle)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			k.evict(now)
		case <-k.stopCh:
			return
		}
	}
}

func (k *KeyedLimiter) evict(now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > k.idle {
			delete(k.entries, key)
		}
	}
}
