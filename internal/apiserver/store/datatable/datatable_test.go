package datatable

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

const createExtra = "CREATE TABLE `extra_office` (" +
	"`id` INTEGER PRIMARY KEY AUTOINCREMENT, " +
	"`office_id` BIGINT NOT NULL, " +
	"`note` VARCHAR(40) NULL, " +
	"`size` INT NOT NULL)"

func TestRegistry(t *testing.T) {
	s := NewDatatables(storetest.NewDB(t))
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, &v1.RegisteredTable{Name: "extra_office", ApplicationTable: "m_office"}))
	err := s.Register(ctx, &v1.RegisteredTable{Name: "extra_office", ApplicationTable: "m_office"})
	assert.True(t, errors.IsCode(err, code.ErrDatatableAlreadyExist))

	require.NoError(t, s.Register(ctx, &v1.RegisteredTable{Name: "client_kyc", ApplicationTable: "m_client"}))
	all, err := s.ListRegistered(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	offices, err := s.ListRegistered(ctx, "m_office")
	require.NoError(t, err)
	assert.Len(t, offices, 1)

	require.NoError(t, s.UpdateApplicationTable(ctx, "client_kyc", "m_office"))
	got, err := s.GetRegistered(ctx, "client_kyc")
	require.NoError(t, err)
	assert.Equal(t, "m_office", got.ApplicationTable)

	require.NoError(t, s.Deregister(ctx, "client_kyc"))
	_, err = s.GetRegistered(ctx, "client_kyc")
	assert.True(t, errors.IsCode(err, code.ErrDatatableNotFound))
	assert.True(t, errors.IsCode(s.Deregister(ctx, "client_kyc"), code.ErrDatatableNotFound))
}

func TestCodeMapping(t *testing.T) {
	s := NewDatatables(storetest.NewDB(t))
	ctx := context.Background()

	_, found, err := s.GetCodeMapping(ctx, "extra_office_Gender_cd_gender")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SaveCodeMapping(ctx, "extra_office_Gender_cd_gender", 7))
	require.NoError(t, s.SaveCodeMapping(ctx, "extra_office_Gender_cd_gender", 8))
	id, found, err := s.GetCodeMapping(ctx, "extra_office_Gender_cd_gender")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(8), id)

	require.NoError(t, s.DeleteCodeMapping(ctx, "extra_office_Gender_cd_gender"))
	_, found, _ = s.GetCodeMapping(ctx, "extra_office_Gender_cd_gender")
	assert.False(t, found)
}

func TestRowsAndColumns(t *testing.T) {
	s := NewDatatables(storetest.NewDB(t))
	ctx := context.Background()
	assert.Equal(t, "sqlite", s.Dialect())

	require.NoError(t, s.ExecDDL(ctx, createExtra))
	assert.True(t, s.TableExists(ctx, "extra_office"))
	assert.False(t, s.TableExists(ctx, "missing_table"))

	cols, err := s.Columns(ctx, "extra_office")
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].PrimaryKey)
	assert.Equal(t, "note", cols[2].Name)
	assert.Equal(t, "varchar", cols[2].Type)
	assert.Equal(t, int64(40), cols[2].Length)
	assert.True(t, cols[2].Nullable)
	assert.False(t, cols[3].Nullable)

	id, err := s.InsertRow(ctx, "extra_office", map[string]interface{}{"office_id": 1, "note": "a", "size": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	_, err = s.InsertRow(ctx, "extra_office", map[string]interface{}{"office_id": 1, "note": "b", "size": 1})
	require.NoError(t, err)

	n, err := s.CountRows(ctx, "extra_office", map[string]interface{}{"office_id": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := s.QueryRows(ctx, "extra_office", []string{"id", "note", "size"},
		map[string]interface{}{"office_id": 1}, "size")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0][1])

	affected, err := s.UpdateRows(ctx, "extra_office", map[string]interface{}{"note": "c"},
		map[string]interface{}{"office_id": 1, "id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = s.DeleteRows(ctx, "extra_office", map[string]interface{}{"office_id": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}

func TestAppTableOfficeHierarchy(t *testing.T) {
	s := NewDatatables(storetest.NewDB(t))
	ctx := context.Background()

	h, found, err := s.AppTableOfficeHierarchy(ctx, "m_office", 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, ".", h)

	_, found, err = s.AppTableOfficeHierarchy(ctx, "m_office", 42)
	require.NoError(t, err)
	assert.False(t, found)
}
