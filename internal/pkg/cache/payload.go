// Package cache 封装 redis 读穿缓存：键名约定、序列化与并发合并.
package cache

import (
	"context"
	stderrors "errors"
	"time"

	redis "github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

var codec = jsoniter.ConfigFastest

// Store 读穿缓存，redis 不可用时直接回源.
type Store struct {
	Redis *storage.RedisCluster
	// Name 指标标签
	Name  string
	TTL   time.Duration
	group singleflight.Group
}

func New(rc *storage.RedisCluster, name string, ttl time.Duration) *Store {
	return &Store{Redis: rc, Name: name, TTL: ttl}
}

// GetOrLoad 先查缓存，未命中时同一个 key 只回源一次.
func GetOrLoad[T any](ctx context.Context, s *Store, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if s != nil && s.Redis != nil && s.TTL > 0 {
		data, err := s.Redis.GetKey(ctx, key)
		switch {
		case err == nil:
			var v T
			if uerr := codec.UnmarshalFromString(data, &v); uerr == nil {
				metrics.RecordCache(s.Name, "hit")
				return v, nil
			}
			log.L(ctx).Warnw("缓存数据损坏，重新加载", "key", key)
		case stderrors.Is(err, redis.Nil):
			metrics.RecordCache(s.Name, "miss")
		case stderrors.Is(err, storage.ErrRedisIsDown):
			metrics.RecordCache(s.Name, "bypass")
			return load(ctx)
		default:
			metrics.RecordCache(s.Name, "error")
			log.L(ctx).Warnw("读取缓存失败", "key", key, "error", err)
		}
	} else {
		return load(ctx)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if data, merr := codec.MarshalToString(loaded); merr == nil {
			if serr := s.Redis.SetKey(ctx, key, data, s.TTL); serr != nil {
				log.L(ctx).Debugf("写入缓存失败: %v", serr)
			}
		}
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Delete 删除一个或多个 key，redis 不可用时忽略.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if s == nil || s.Redis == nil {
		return
	}
	for _, key := range keys {
		if _, err := s.Redis.DeleteKey(ctx, key); err != nil && !stderrors.Is(err, storage.ErrRedisIsDown) {
			log.L(ctx).Warnw("删除缓存失败", "key", key, "error", err)
		}
	}
}

// DeletePattern 按模式删除，返回删除数量.
func (s *Store) DeletePattern(ctx context.Context, pattern string) int {
	if s == nil || s.Redis == nil {
		return 0
	}
	n, err := s.Redis.DeleteScanMatch(ctx, pattern)
	if err != nil && !stderrors.Is(err, storage.ErrRedisIsDown) {
		log.L(ctx).Warnw("批量删除缓存失败", "pattern", pattern, "error", err)
	}
	return n
}
