package codevalue

import (
	"context"
	"testing"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func TestRetrieveCodeValuesByCode(t *testing.T) {
	s := NewCodeValueService(store.NewDatastore(storetest.NewDB(t)), cache.New(nil, "codevalue", 0))
	ctx := context.Background()

	values, err := s.RetrieveCodeValuesByCode(ctx, v1.OfficeTypeCode)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, "Head Office", values[0].Name)
	assert.Equal(t, 1, values[0].Position)
	assert.Equal(t, "Agency", values[2].Name)

	none, err := s.RetrieveCodeValuesByCode(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	one, err := s.RetrieveCodeValue(ctx, values[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Branch", one.Name)

	_, err = s.RetrieveCodeValue(ctx, 9999)
	assert.True(t, errors.IsCode(err, code.ErrCodeValueNotFound))

	// 无 redis 时不报错
	s.InvalidateCache(ctx, "")
	s.InvalidateCache(ctx, v1.OfficeTypeCode)
}
