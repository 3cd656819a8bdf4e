package db

import (
	"errors"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'm_office.name_org'"}))
	assert.False(t, IsDuplicateKey(&mysqldriver.MySQLError{Number: 1146}))
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: m_office.name")))
}

func TestDuplicateKeyName(t *testing.T) {
	err := &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'm_office.name_org'"}
	assert.Equal(t, "name_org", DuplicateKeyName(err))
	assert.Equal(t, "external_id", DuplicateKeyName(errors.New("UNIQUE constraint failed: m_office.external_id")))
	assert.Equal(t, "", DuplicateKeyName(errors.New("boom")))
}

func TestDSN(t *testing.T) {
	opts := &Options{Host: "127.0.0.1:3306", Username: "obs", Password: "secret", Database: "obs"}
	dsn := opts.DSN()
	assert.Contains(t, dsn, "obs:secret@tcp(127.0.0.1:3306)/obs?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "multiStatements=true")
}

func TestNewSQLite(t *testing.T) {
	d, err := NewSQLite("file:dbtest?mode=memory&cache=shared", nil)
	assert.NoError(t, err)
	assert.NoError(t, d.Exec("CREATE TABLE t (id integer primary key, name text unique)").Error)
	assert.NoError(t, d.Exec("INSERT INTO t (name) VALUES ('a')").Error)
	assert.True(t, IsDuplicateKey(d.Exec("INSERT INTO t (name) VALUES ('a')").Error))
}
