package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevokedSetKey(t *testing.T) {
	exp := time.Date(2024, 3, 1, 10, 45, 0, 0, time.UTC)
	assert.Equal(t, "auth:revoked:2024030110", RevokedSetKey("auth:revoked:", exp))
	assert.Equal(t, "revoked:2024030110", RevokedSetKey("", exp))
	assert.Equal(t, "x:2024030110", RevokedSetKey("x", exp))
}

func TestRevokedSetTTL(t *testing.T) {
	exp := time.Date(2024, 3, 1, 10, 45, 0, 0, time.UTC)
	now := exp.Add(-time.Hour)
	assert.Equal(t, 75*time.Minute, RevokedSetTTL(exp, now))
	assert.Equal(t, time.Second, RevokedSetTTL(exp, exp.Add(2*time.Hour)))
}

func TestLoginFailKey(t *testing.T) {
	assert.Equal(t, "login_fail:mifos", LoginFailKey(" mifos "))
	assert.Equal(t, "login_fail:anonymous", LoginFailKey(""))
}
