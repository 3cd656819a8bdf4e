package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	redis "github.com/go-redis/redis/v8"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// ErrRedisIsDown is returned when we can't communicate with redis.
var ErrRedisIsDown = errors.New("storage: Redis is either down or not configured")

var (
	singlePool   atomic.Value
	redisUp      atomic.Value
	disableRedis atomic.Value
)

// DisableRedis allows dynamically enabling/disabling redis communication (useful for testing)
func DisableRedis(ok bool) {
	if ok {
		redisUp.Store(false)
		disableRedis.Store(true)
		return
	}
	redisUp.Store(true)
	disableRedis.Store(false)
}

func shouldConnect() bool {
	if v := disableRedis.Load(); v != nil {
		return !v.(bool)
	}
	return true
}

// Connected returns true if we are connected to redis.
func Connected() bool {
	if v := redisUp.Load(); v != nil {
		return v.(bool)
	}
	return false
}

func singleton() redis.UniversalClient {
	if v := singlePool.Load(); v != nil {
		return v.(redis.UniversalClient)
	}
	return nil
}

func connectSingleton(config *Config) bool {
	if singleton() != nil {
		return true
	}
	log.Debug("开始连接 redis")
	client := NewRedisClusterPool(config)
	if client == nil {
		return false
	}
	singlePool.Store(client)
	return true
}

func ping(ctx context.Context) error {
	c := singleton()
	if c == nil {
		return ErrRedisIsDown
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.Ping(pingCtx).Err()
}

// ConnectToRedis 首次连接按指数退避重试，之后每秒探活一次，直到 ctx 结束.
func ConnectToRedis(ctx context.Context, config *Config) {
	first := func() error {
		if !shouldConnect() {
			return nil
		}
		if !connectSingleton(config) {
			return ErrRedisIsDown
		}
		return ping(ctx)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(first, bo); err != nil {
		log.Warnf("redis 暂不可用，后台继续重试: %v", err)
		redisUp.Store(false)
	} else {
		redisUp.Store(shouldConnect())
	}

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if !shouldConnect() {
				continue
			}
			if !connectSingleton(config) {
				redisUp.Store(false)
				continue
			}
			up := ping(ctx) == nil
			if up != Connected() {
				log.Infof("redis 连接状态变化: up=%v", up)
			}
			redisUp.Store(up)
		}
	}
}

// NewRedisClusterPool 按配置创建单机、哨兵或集群客户端.
func NewRedisClusterPool(config *Config) redis.UniversalClient {
	poolSize := 500
	if config.MaxActive > 0 {
		poolSize = config.MaxActive
	}

	timeout := 5 * time.Second
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}

	var tlsConfig *tls.Config
	if config.UseSSL {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: config.SSLInsecureSkipVerify, //nolint:gosec
		}
	}

	opts := &redis.UniversalOptions{
		Addrs:        config.addrs(),
		MasterName:   config.MasterName,
		Username:     config.Username,
		Password:     config.Password,
		DB:           config.Database,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  240 * timeout,
		PoolSize:     poolSize,
		MinIdleConns: config.MaxIdle,
		TLSConfig:    tlsConfig,
	}
	if len(opts.Addrs) == 0 {
		log.Error("redis 地址为空")
		return nil
	}

	var client redis.UniversalClient
	switch {
	case opts.MasterName != "":
		log.Debug("--> [REDIS] 创建哨兵客户端")
		client = redis.NewFailoverClient(opts.Failover())
	case config.EnableCluster:
		log.Debug("--> [REDIS] 创建集群客户端")
		client = redis.NewClusterClient(opts.Cluster())
	default:
		log.Debug("--> [REDIS] 创建单机客户端")
		client = redis.NewClient(opts.Simple())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorf("新创建的 redis 客户端验证失败: %v", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Close 关闭全局客户端.
func Close() error {
	if c := singleton(); c != nil {
		redisUp.Store(false)
		return c.Close()
	}
	return nil
}

// RedisCluster 带统一前缀的 redis 访问器.
type RedisCluster struct {
	KeyPrefix string
}

func (r *RedisCluster) fixKey(keyName string) string {
	return r.KeyPrefix + keyName
}

func (r *RedisCluster) cleanKey(keyName string) string {
	return strings.Replace(keyName, r.KeyPrefix, "", 1)
}

// GetKeyPrefix returns the key prefix.
func (r *RedisCluster) GetKeyPrefix() string {
	return r.KeyPrefix
}

func (r *RedisCluster) Up() error {
	if !Connected() || singleton() == nil {
		return ErrRedisIsDown
	}
	return nil
}

// GetKey 返回 redis.Nil 表示 key 不存在.
func (r *RedisCluster) GetKey(ctx context.Context, keyName string) (string, error) {
	if err := r.Up(); err != nil {
		return "", err
	}
	value, err := singleton().Get(ctx, r.fixKey(keyName)).Result()
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *RedisCluster) SetKey(ctx context.Context, keyName, value string, timeout time.Duration) error {
	if err := r.Up(); err != nil {
		return err
	}
	if err := singleton().Set(ctx, r.fixKey(keyName), value, timeout).Err(); err != nil {
		log.Errorf("写入 redis 失败: key=%s err=%v", keyName, err)
		return err
	}
	return nil
}

func (r *RedisCluster) Exists(ctx context.Context, keyName string) (bool, error) {
	if err := r.Up(); err != nil {
		return false, err
	}
	n, err := singleton().Exists(ctx, r.fixKey(keyName)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisCluster) DeleteKey(ctx context.Context, keyName string) (bool, error) {
	if err := r.Up(); err != nil {
		return false, err
	}
	n, err := singleton().Del(ctx, r.fixKey(keyName)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete failed for key %s: %w", keyName, err)
	}
	return n > 0, nil
}

// DeleteScanMatch 按模式批量删除，集群模式下遍历每个主节点.
func (r *RedisCluster) DeleteScanMatch(ctx context.Context, pattern string) (int, error) {
	if err := r.Up(); err != nil {
		return 0, err
	}
	client := singleton()
	match := r.fixKey(pattern)

	scan := func(nodeCtx context.Context, c *redis.Client) ([]string, error) {
		var keys []string
		iter := c.Scan(nodeCtx, 0, match, 0).Iterator()
		for iter.Next(nodeCtx) {
			keys = append(keys, iter.Val())
		}
		return keys, iter.Err()
	}

	var keys []string
	switch v := client.(type) {
	case *redis.ClusterClient:
		ch := make(chan []string, 16)
		errCh := make(chan error, 1)
		go func() {
			errCh <- v.ForEachMaster(ctx, func(nodeCtx context.Context, c *redis.Client) error {
				vals, err := scan(nodeCtx, c)
				if err != nil {
					return err
				}
				ch <- vals
				return nil
			})
			close(ch)
		}()
		for vals := range ch {
			keys = append(keys, vals...)
		}
		if err := <-errCh; err != nil {
			return 0, err
		}
	case *redis.Client:
		var err error
		if keys, err = scan(ctx, v); err != nil {
			return 0, err
		}
	default:
		return 0, errors.New("unsupported redis client type")
	}

	deleted := 0
	for _, name := range keys {
		if err := client.Del(ctx, name).Err(); err != nil {
			log.Errorf("删除 key 失败: %s - %v", r.cleanKey(name), err)
			continue
		}
		deleted++
	}
	log.Debugf("按模式 %s 删除 %d 个 key", pattern, deleted)
	return deleted, nil
}

func (r *RedisCluster) AddToSet(ctx context.Context, keyName, value string, ttl time.Duration) error {
	if err := r.Up(); err != nil {
		return err
	}
	key := r.fixKey(keyName)
	pipe := singleton().TxPipeline()
	pipe.SAdd(ctx, key, value)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisCluster) IsMemberOfSet(ctx context.Context, keyName, value string) (bool, error) {
	if err := r.Up(); err != nil {
		return false, err
	}
	return singleton().SIsMember(ctx, r.fixKey(keyName), value).Result()
}

// SetNX sets a key only if it doesn't exist.
func (r *RedisCluster) SetNX(ctx context.Context, keyName string, value interface{}, expiration time.Duration) (bool, error) {
	if err := r.Up(); err != nil {
		return false, err
	}
	return singleton().SetNX(ctx, r.fixKey(keyName), value, expiration).Result()
}

// Eval 执行 lua 脚本，keys 自动加前缀.
func (r *RedisCluster) Eval(ctx context.Context, script string, keys []string, args []interface{}) (interface{}, error) {
	if err := r.Up(); err != nil {
		return nil, err
	}
	fixed := make([]string, len(keys))
	for i, key := range keys {
		fixed[i] = r.fixKey(key)
	}
	return singleton().Eval(ctx, script, fixed, args...).Result()
}

// Client 返回底层连接，尚未连接时为 nil.
func Client() redis.UniversalClient {
	return singleton()
}
