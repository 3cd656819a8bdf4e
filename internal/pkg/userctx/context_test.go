package userctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

func TestUserCachedOnHolder(t *testing.T) {
	ctx := WithUsername(context.Background(), "mifos")
	assert.Equal(t, "mifos", Username(ctx))
	_, ok := User(ctx)
	assert.False(t, ok)

	u := v1.NewPlatformUser(&v1.AppUser{Username: "mifos"}, ".")
	same := StoreUser(ctx, u)
	assert.Equal(t, ctx, same)
	got, ok := User(ctx)
	assert.True(t, ok)
	assert.Equal(t, u, got)
}

func TestStoreUserWithoutUsername(t *testing.T) {
	u := v1.NewPlatformUser(&v1.AppUser{Username: "maker"}, ".1.")
	ctx := StoreUser(context.Background(), u)
	assert.Equal(t, "maker", Username(ctx))
	got, ok := User(ctx)
	assert.True(t, ok)
	assert.Equal(t, u, got)
}
