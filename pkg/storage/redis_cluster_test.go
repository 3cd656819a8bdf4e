package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisDownShortCircuits(t *testing.T) {
	DisableRedis(true)
	defer DisableRedis(false)

	r := &RedisCluster{KeyPrefix: "obs-test:"}
	_, err := r.GetKey(context.Background(), "k")
	assert.ErrorIs(t, err, ErrRedisIsDown)
	assert.ErrorIs(t, r.SetKey(context.Background(), "k", "v", 0), ErrRedisIsDown)
	ok, err := r.SetNX(context.Background(), "lock", "v", 0)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrRedisIsDown)
	_, err = r.DeleteScanMatch(context.Background(), "office:*")
	assert.ErrorIs(t, err, ErrRedisIsDown)
}

func TestConfigAddrs(t *testing.T) {
	c := &Config{Host: "127.0.0.1", Port: 6379}
	assert.Equal(t, []string{"127.0.0.1:6379"}, c.addrs())

	c.Addrs = []string{"a:1", "b:2"}
	assert.Equal(t, []string{"a:1", "b:2"}, c.addrs())

	assert.Empty(t, (&Config{}).addrs())
}

func TestFixKey(t *testing.T) {
	r := &RedisCluster{KeyPrefix: "obs:"}
	assert.Equal(t, "obs:office:1", r.fixKey("office:1"))
	assert.Equal(t, "office:1", r.cleanKey("obs:office:1"))
}
