package lock

import (
	"context"
	"errors"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

var (
	ErrLockAcquisitionFailed = errors.New("lock acquisition failed")
	ErrLockNotHeld           = errors.New("lock not held by this client")
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

// Locker 互斥锁抽象，redis 不可用时可替换为进程内实现.
type Locker interface {
	TryAcquire(ctx context.Context, maxRetries int, retryInterval time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// RedisDistributedLock 基于 SET NX + lua 释放的分布式锁.
type RedisDistributedLock struct {
	storage *storage.RedisCluster
	key     string
	value   string
	timeout time.Duration
}

func NewRedisLock(storage *storage.RedisCluster, key string, timeout time.Duration) *RedisDistributedLock {
	return &RedisDistributedLock{
		storage: storage,
		key:     key,
		value:   uuid.Must(uuid.NewV4()).String(),
		timeout: timeout,
	}
}

func (l *RedisDistributedLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.storage.SetNX(ctx, l.key, l.value, l.timeout)
	if err != nil {
		log.L(ctx).Errorf("获取锁失败: key=%s err=%v", l.key, err)
		return false, err
	}
	return ok, nil
}

func (l *RedisDistributedLock) Release(ctx context.Context) error {
	result, err := l.storage.Eval(ctx, releaseScript, []string{l.key}, []interface{}{l.value})
	if err != nil {
		log.L(ctx).Errorf("释放锁失败: key=%s err=%v", l.key, err)
		return err
	}
	if deleted, ok := result.(int64); ok && deleted == 1 {
		return nil
	}
	return ErrLockNotHeld
}

// TryAcquire 先尝试一次，失败后按间隔最多重试 maxRetries 次.
func (l *RedisDistributedLock) TryAcquire(ctx context.Context, maxRetries int, retryInterval time.Duration) (bool, error) {
	for i := 0; ; i++ {
		acquired, err := l.Acquire(ctx)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		if i >= maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return false, ErrLockAcquisitionFailed
}

func (l *RedisDistributedLock) GetKey() string {
	return l.key
}
