package server

import (
	"crypto/sha256"
	"sync"
	"time"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

// loginKey 用户 id 与库中密码哈希一起作键，改密或重建同名用户后旧结果不再命中.
type loginKey struct {
	userID   int64
	username string
	hash     string
	secret   [sha256.Size]byte
}

type loginVerdict struct {
	matched bool
	expires time.Time
}

// credentialCache 缓存 bcrypt 校验结果，减轻登录风暴时的 CPU 压力.
type credentialCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	limit   int
	entries map[loginKey]loginVerdict
	now     func() time.Time
}

// newCredentialCache ttl 或 limit 非正时不缓存，返回 nil.
func newCredentialCache(ttl time.Duration, limit int) *credentialCache {
	if ttl <= 0 || limit <= 0 {
		return nil
	}
	return &credentialCache{
		ttl:     ttl,
		limit:   limit,
		entries: make(map[loginKey]loginVerdict, limit),
		now:     time.Now,
	}
}

func keyOf(user *v1.AppUser, password string) loginKey {
	return loginKey{
		userID:   user.ID,
		username: user.Username,
		hash:     user.Password,
		secret:   sha256.Sum256([]byte(user.Username + "\x00" + password)),
	}
}

// lookup 第二个返回值表示是否命中.
func (c *credentialCache) lookup(user *v1.AppUser, password string) (matched, hit bool) {
	if c == nil || user == nil {
		return false, false
	}
	key := keyOf(user, password)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, false
	}
	if !c.now().Before(v.expires) {
		delete(c.entries, key)
		return false, false
	}
	return v.matched, true
}

func (c *credentialCache) store(user *v1.AppUser, password string, matched bool) {
	if c == nil || user == nil {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.limit {
		c.evict(now)
	}
	c.entries[keyOf(user, password)] = loginVerdict{matched: matched, expires: now.Add(c.ttl)}
}

// evict 先清过期项，仍满时淘汰最早到期的一项.
func (c *credentialCache) evict(now time.Time) {
	var (
		oldest    loginKey
		oldestExp time.Time
		found     bool
	)
	for k, v := range c.entries {
		if !now.Before(v.expires) {
			delete(c.entries, k)
			continue
		}
		if !found || v.expires.Before(oldestExp) {
			oldest, oldestExp, found = k, v.expires, true
		}
	}
	if len(c.entries) >= c.limit && found {
		delete(c.entries, oldest)
	}
}
