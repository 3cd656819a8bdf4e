package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

func TestCredentialCacheKey(t *testing.T) {
	c := newCredentialCache(time.Minute, 8)
	mifos := &v1.AppUser{ID: 1, Username: "mifos", Password: "$2a$hash-1"}
	c.store(mifos, "password", true)

	matched, hit := c.lookup(mifos, "password")
	assert.True(t, hit)
	assert.True(t, matched)

	tests := []struct {
		name     string
		user     *v1.AppUser
		password string
	}{
		{"other password", mifos, "Password"},
		{"password changed", &v1.AppUser{ID: 1, Username: "mifos", Password: "$2a$hash-2"}, "password"},
		{"user recreated", &v1.AppUser{ID: 7, Username: "mifos", Password: "$2a$hash-1"}, "password"},
		{"other user same hash", &v1.AppUser{ID: 1, Username: "clerk", Password: "$2a$hash-1"}, "password"},
		{"nil user", nil, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, hit := c.lookup(tt.user, tt.password)
			assert.False(t, hit)
		})
	}
}

func TestCredentialCacheExpiryAndEviction(t *testing.T) {
	now := time.Now()
	c := newCredentialCache(time.Minute, 2)
	c.now = func() time.Time { return now }

	a := &v1.AppUser{ID: 1, Username: "a", Password: "h"}
	b := &v1.AppUser{ID: 2, Username: "b", Password: "h"}
	d := &v1.AppUser{ID: 3, Username: "d", Password: "h"}
	c.store(a, "x", false)
	now = now.Add(time.Second)
	c.store(b, "x", true)
	now = now.Add(time.Second)
	c.store(d, "x", true)

	_, hit := c.lookup(a, "x")
	assert.False(t, hit, "最早到期的一项被淘汰")
	matched, hit := c.lookup(b, "x")
	assert.True(t, hit)
	assert.True(t, matched)

	now = now.Add(time.Minute)
	_, hit = c.lookup(d, "x")
	assert.False(t, hit)
	assert.Len(t, c.entries, 1)
}

func TestCredentialCacheDisabled(t *testing.T) {
	assert.Nil(t, newCredentialCache(0, 10))
	assert.Nil(t, newCredentialCache(time.Minute, 0))

	var c *credentialCache
	c.store(&v1.AppUser{ID: 1}, "x", true)
	_, hit := c.lookup(&v1.AppUser{ID: 1}, "x")
	assert.False(t, hit)
}
