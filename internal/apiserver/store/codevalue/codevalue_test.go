package codevalue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func TestListByCodeName(t *testing.T) {
	gdb := storetest.NewDB(t)
	s := NewCodeValues(gdb)
	ctx := context.Background()

	cd, err := s.GetCodeByName(ctx, v1.OfficeTypeCode)
	require.NoError(t, err)
	// 停用的值不返回
	require.NoError(t, gdb.Create(&v1.CodeValue{CodeID: cd.ID, Value: "Closed", Position: 0, IsActive: false}).Error)

	values, err := s.ListByCodeName(ctx, v1.OfficeTypeCode)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, "Head Office", values[0].Value)
	assert.Equal(t, "Agency", values[2].Value)

	byID, err := s.ListByCodeID(ctx, cd.ID)
	require.NoError(t, err)
	assert.Len(t, byID, 3)

	cv, err := s.Get(ctx, values[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Branch", cv.Value)
}

func TestNotFound(t *testing.T) {
	s := NewCodeValues(storetest.NewDB(t))
	ctx := context.Background()

	_, err := s.GetCodeByName(ctx, "Nope")
	assert.True(t, errors.IsCode(err, code.ErrCodeNotFound))
	_, err = s.Get(ctx, 404)
	assert.True(t, errors.IsCode(err, code.ErrCodeValueNotFound))
}
