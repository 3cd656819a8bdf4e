package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiter_PerKey(t *testing.T) {
	k := NewKeyedLimiter(2, time.Minute)
	defer k.Stop()
	now := time.Now()

	assert.True(t, k.AllowAt("10.0.0.1", now))
	assert.True(t, k.AllowAt("10.0.0.1", now))
	assert.False(t, k.AllowAt("10.0.0.1", now))
	// 其他IP不受影响
	assert.True(t, k.AllowAt("10.0.0.2", now))
	// 半个窗口后补回一个令牌
	assert.True(t, k.AllowAt("10.0.0.1", now.Add(31*time.Second)))
}

func TestKeyedLimiter_Evict(t *testing.T) {
	k := NewKeyedLimiter(1, time.Second)
	defer k.Stop()
	now := time.Now()
	k.AllowAt("a", now)
	k.AllowAt("b", now.Add(3*time.Second))
	k.evict(now.Add(3 * time.Second))
	assert.Equal(t, 1, k.Len())
}
