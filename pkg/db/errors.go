package db

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrNoSuchTable    = 1146
)

// IsDuplicateKey 判断是否违反唯一约束.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// DuplicateKeyName 返回冲突的唯一键名，取不到时为空.
func DuplicateKeyName(err error) string {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		// Duplicate entry 'x' for key 'office.name_org'
		msg := myErr.Message
		if i := strings.LastIndex(msg, "for key '"); i >= 0 {
			key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
			if j := strings.LastIndex(key, "."); j >= 0 {
				key = key[j+1:]
			}
			return key
		}
		return ""
	}
	if err != nil {
		// UNIQUE constraint failed: m_office.name
		msg := err.Error()
		if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
			col := msg[i+len("UNIQUE constraint failed: "):]
			if j := strings.LastIndex(col, "."); j >= 0 {
				col = col[j+1:]
			}
			return col
		}
	}
	return ""
}

// IsNoSuchTable 判断表不存在错误.
func IsNoSuchTable(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrNoSuchTable
	}
	return err != nil && strings.Contains(err.Error(), "no such table")
}
