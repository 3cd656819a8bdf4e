package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite 打开 sqlite 数据库，供测试与本地演示使用.
// dsn 为空时使用共享内存库.
func NewSQLite(dsn string, opts *Options) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	if opts == nil {
		opts = &Options{}
	}
	setDefaultOptions(opts)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 内存库只有一个连接时才能看到同一份数据
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
