package lock

import (
	"context"
	"sync"
	"time"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

// LocalLock 进程内按 key 互斥，单实例部署或 redis 不可用时使用.
type LocalLock struct {
	key string
	ch  chan struct{}
}

var (
	localMu    sync.Mutex
	localLocks = map[string]chan struct{}{}
)

func NewLocalLock(key string) *LocalLock {
	localMu.Lock()
	defer localMu.Unlock()
	ch, ok := localLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		localLocks[key] = ch
	}
	return &LocalLock{key: key, ch: ch}
}

func (l *LocalLock) TryAcquire(ctx context.Context, maxRetries int, retryInterval time.Duration) (bool, error) {
	select {
	case l.ch <- struct{}{}:
		return true, nil
	default:
	}
	wait := time.Duration(maxRetries) * retryInterval
	if wait <= 0 {
		return false, ErrLockAcquisitionFailed
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case l.ch <- struct{}{}:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return false, ErrLockAcquisitionFailed
	}
}

func (l *LocalLock) Release(context.Context) error {
	select {
	case <-l.ch:
		return nil
	default:
		return ErrLockNotHeld
	}
}

// New 优先返回 redis 锁，redis 未连接时退化为进程内锁.
func New(rc *storage.RedisCluster, key string, ttl time.Duration) Locker {
	if rc != nil && rc.Up() == nil {
		return NewRedisLock(rc, key, ttl)
	}
	return NewLocalLock(key)
}
