// Package storetest 为各 store 测试提供迁移好的 sqlite 数据库.
package storetest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/schema"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/db"
)

// NewDB 每个测试一个独立的内存库，已迁移并写入初始数据.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, schema.Drop(gdb))
	require.NoError(t, schema.Migrate(gdb))
	require.NoError(t, schema.Seed(gdb, schema.SeedOptions{
		HeadOfficeName: "Head Office",
		AdminUsername:  "mifos",
		AdminPassword:  "password",
	}))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
