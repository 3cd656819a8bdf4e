package interfaces

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

// ColumnMeta 数据表列的物理信息.
type ColumnMeta struct {
	Name       string
	Type       string
	Length     int64
	Nullable   bool
	PrimaryKey bool
}

type DatatableStore interface {
	GetRegistered(ctx context.Context, name string) (*v1.RegisteredTable, error)
	ListRegistered(ctx context.Context, appTable string) ([]v1.RegisteredTable, error)
	Register(ctx context.Context, table *v1.RegisteredTable) error
	Deregister(ctx context.Context, name string) error
	UpdateApplicationTable(ctx context.Context, name, appTable string) error

	SaveCodeMapping(ctx context.Context, columnAlias string, codeID int64) error
	DeleteCodeMapping(ctx context.Context, columnAlias string) error
	GetCodeMapping(ctx context.Context, columnAlias string) (int64, bool, error)

	TableExists(ctx context.Context, table string) bool
	Columns(ctx context.Context, table string) ([]ColumnMeta, error)
	// Dialect 返回 mysql 或 sqlite，DDL 按方言生成.
	Dialect() string
	ExecDDL(ctx context.Context, statements ...string) error

	CountRows(ctx context.Context, table string, where map[string]interface{}) (int64, error)
	QueryRows(ctx context.Context, table string, columns []string, where map[string]interface{}, order string) ([][]interface{}, error)
	InsertRow(ctx context.Context, table string, values map[string]interface{}) (int64, error)
	UpdateRows(ctx context.Context, table string, values, where map[string]interface{}) (int64, error)
	DeleteRows(ctx context.Context, table string, where map[string]interface{}) (int64, error)

	// AppTableOfficeHierarchy 返回应用表记录所属机构的 hierarchy，记录不存在时 found 为 false.
	AppTableOfficeHierarchy(ctx context.Context, appTable string, id int64) (hierarchy string, found bool, err error)
}
