package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/obs-mini/pkg/storage"
)

func TestGetOrLoadBypassesWhenRedisDown(t *testing.T) {
	storage.DisableRedis(true)
	defer storage.DisableRedis(false)

	s := New(&storage.RedisCluster{KeyPrefix: "obs-test:"}, "codevalue", time.Minute)
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"Branch"}, nil
	}
	for i := 0; i < 2; i++ {
		v, err := GetOrLoad(context.Background(), s, CodeValueKey("Office Type"), load)
		require.NoError(t, err)
		assert.Equal(t, []string{"Branch"}, v)
	}
	assert.Equal(t, 2, calls)

	// 不应 panic
	s.Delete(context.Background(), OfficeKey(1))
	assert.Zero(t, s.DeletePattern(context.Background(), OfficePattern()))
}

func TestGetOrLoadWithoutTTL(t *testing.T) {
	s := New(nil, "address", 0)
	v, err := GetOrLoad(context.Background(), s, AddressKey("city"), func(context.Context) (int, error) {
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "codevalue:office type", CodeValueKey(" Office Type "))
	assert.Equal(t, "office:12", OfficeKey(12))
	assert.Equal(t, "office:tree:.1.", OfficeTreeKey(".1."))
	assert.Equal(t, "datatable:extra_details", DatatableKey("extra_details"))
}
