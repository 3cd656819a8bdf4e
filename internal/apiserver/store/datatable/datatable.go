package datatable

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/db"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

var typeLength = regexp.MustCompile(`\((\d+)`)

type Datatables struct {
	db *gorm.DB
}

func NewDatatables(db *gorm.DB) *Datatables {
	return &Datatables{db: db}
}

func (d *Datatables) GetRegistered(ctx context.Context, name string) (*v1.RegisteredTable, error) {
	var t v1.RegisteredTable
	err := d.db.WithContext(ctx).Where("registered_table_name = ?", name).First(&t).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrDatatableNotFound, "Datatable `%s` does not exist.", name)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询数据表注册信息失败: %v", err)
	}
	return &t, nil
}

func (d *Datatables) ListRegistered(ctx context.Context, appTable string) ([]v1.RegisteredTable, error) {
	q := d.db.WithContext(ctx)
	if appTable != "" {
		q = q.Where("application_table_name = ?", appTable)
	}
	var tables []v1.RegisteredTable
	if err := q.Order("application_table_name, registered_table_name").Find(&tables).Error; err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询数据表注册信息失败: %v", err)
	}
	return tables, nil
}

func (d *Datatables) Register(ctx context.Context, table *v1.RegisteredTable) error {
	if err := d.db.WithContext(ctx).Create(table).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return errors.WithCode(code.ErrDatatableAlreadyExist,
				"Datatable `%s` is already registered against an application table.", table.Name)
		}
		return errors.WithCode(code.ErrDatabase, "注册数据表失败: %v", err)
	}
	return nil
}

func (d *Datatables) Deregister(ctx context.Context, name string) error {
	result := d.db.WithContext(ctx).Where("registered_table_name = ?", name).Delete(&v1.RegisteredTable{})
	if result.Error != nil {
		return errors.WithCode(code.ErrDatabase, "注销数据表失败: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.WithCode(code.ErrDatatableNotFound, "Datatable `%s` does not exist.", name)
	}
	return nil
}

func (d *Datatables) UpdateApplicationTable(ctx context.Context, name, appTable string) error {
	err := d.db.WithContext(ctx).Model(&v1.RegisteredTable{}).
		Where("registered_table_name = ?", name).
		Update("application_table_name", appTable).Error
	if err != nil {
		return errors.WithCode(code.ErrDatabase, "更新数据表注册信息失败: %v", err)
	}
	return nil
}

func (d *Datatables) SaveCodeMapping(ctx context.Context, columnAlias string, codeID int64) error {
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&v1.TableColumnCodeMapping{ColumnAliasName: columnAlias, CodeID: codeID}).Error
	if err != nil {
		return errors.WithCode(code.ErrDatabase, "保存下拉列映射失败: %v", err)
	}
	return nil
}

func (d *Datatables) DeleteCodeMapping(ctx context.Context, columnAlias string) error {
	err := d.db.WithContext(ctx).Where("column_alias_name = ?", columnAlias).
		Delete(&v1.TableColumnCodeMapping{}).Error
	if err != nil {
		return errors.WithCode(code.ErrDatabase, "删除下拉列映射失败: %v", err)
	}
	return nil
}

func (d *Datatables) GetCodeMapping(ctx context.Context, columnAlias string) (int64, bool, error) {
	var m v1.TableColumnCodeMapping
	err := d.db.WithContext(ctx).Where("column_alias_name = ?", columnAlias).First(&m).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, errors.WithCode(code.ErrDatabase, "查询下拉列映射失败: %v", err)
	}
	return m.CodeID, true, nil
}

func (d *Datatables) TableExists(ctx context.Context, table string) bool {
	return d.db.WithContext(ctx).Migrator().HasTable(table)
}

// Columns 按物理顺序返回列信息.
func (d *Datatables) Columns(ctx context.Context, table string) ([]interfaces.ColumnMeta, error) {
	types, err := d.db.WithContext(ctx).Migrator().ColumnTypes(table)
	if err != nil {
		if db.IsNoSuchTable(err) {
			return nil, errors.WithCode(code.ErrDatatableNotFound, "Datatable `%s` does not exist.", table)
		}
		return nil, errors.WithCode(code.ErrDatabase, "读取表结构失败: %v", err)
	}
	cols := make([]interfaces.ColumnMeta, 0, len(types))
	for _, ct := range types {
		meta := interfaces.ColumnMeta{Name: ct.Name(), Type: strings.ToLower(ct.DatabaseTypeName())}
		full, _ := ct.ColumnType()
		if meta.Type == "" {
			meta.Type = strings.ToLower(full)
		}
		if i := strings.Index(meta.Type, "("); i > 0 {
			meta.Type = meta.Type[:i]
		}
		if n, ok := ct.Length(); ok && n > 0 {
			meta.Length = n
		} else if m := typeLength.FindStringSubmatch(full); m != nil {
			meta.Length, _ = strconv.ParseInt(m[1], 10, 64)
		}
		if nullable, ok := ct.Nullable(); ok {
			meta.Nullable = nullable
		} else {
			meta.Nullable = true
		}
		if pk, ok := ct.PrimaryKey(); ok {
			meta.PrimaryKey = pk
		}
		cols = append(cols, meta)
	}
	return cols, nil
}

func (d *Datatables) Dialect() string {
	return d.db.Dialector.Name()
}

func (d *Datatables) ExecDDL(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		log.L(ctx).Infof("执行数据表 DDL: %s", stmt)
		if err := d.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return errors.WithCode(code.ErrDatatableDDL, "执行 DDL 失败: %v", err)
		}
	}
	return nil
}

func (d *Datatables) CountRows(ctx context.Context, table string, where map[string]interface{}) (int64, error) {
	var n int64
	if err := d.db.WithContext(ctx).Table(table).Where(where).Count(&n).Error; err != nil {
		return 0, errors.WithCode(code.ErrDatabase, "统计数据表行数失败: %v", err)
	}
	return n, nil
}

// QueryRows 返回按 columns 顺序排列的行，[]byte 转为字符串.
func (d *Datatables) QueryRows(ctx context.Context, table string, columns []string,
	where map[string]interface{}, order string,
) ([][]interface{}, error) {
	q := d.db.WithContext(ctx).Table(table).Select(columns).Where(where)
	if order != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: order}})
	}
	rows, err := q.Rows()
	if err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询数据表失败: %v", err)
	}
	defer rows.Close()

	var out [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.WithCode(code.ErrDatabase, "读取数据表行失败: %v", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "读取数据表行失败: %v", err)
	}
	return out, nil
}

// InsertRow 返回自增主键，一对一表没有自增列时返回 0.
func (d *Datatables) InsertRow(ctx context.Context, table string, values map[string]interface{}) (int64, error) {
	keys := sortedKeys(values)
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		cols[i] = d.quote(k)
		marks[i] = "?"
		args[i] = values[k]
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))

	// 需要 LastInsertId，直接走底层连接，事务内为 *sql.Tx
	res, err := d.db.WithContext(ctx).Statement.ConnPool.ExecContext(ctx, stmt, args...)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return 0, errors.WithCode(code.ErrDatatableEntryAlreadyExist, "数据表 %s 记录已存在", table)
		}
		return 0, errors.WithCode(code.ErrDatabase, "写入数据表失败: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, nil
	}
	return id, nil
}

func (d *Datatables) UpdateRows(ctx context.Context, table string, values, where map[string]interface{}) (int64, error) {
	result := d.db.WithContext(ctx).Table(table).Where(where).Updates(values)
	if result.Error != nil {
		return 0, errors.WithCode(code.ErrDatabase, "更新数据表失败: %v", result.Error)
	}
	return result.RowsAffected, nil
}

func (d *Datatables) DeleteRows(ctx context.Context, table string, where map[string]interface{}) (int64, error) {
	keys := sortedKeys(where)
	conds := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		conds[i] = d.quote(k) + " = ?"
		args[i] = where[k]
	}
	stmt := fmt.Sprintf("DELETE FROM %s", d.quote(table))
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	result := d.db.WithContext(ctx).Exec(stmt, args...)
	if result.Error != nil {
		return 0, errors.WithCode(code.ErrDatabase, "删除数据表记录失败: %v", result.Error)
	}
	return result.RowsAffected, nil
}

func (d *Datatables) AppTableOfficeHierarchy(ctx context.Context, appTable string, id int64) (string, bool, error) {
	var stmt string
	if appTable == "m_office" {
		stmt = "SELECT hierarchy FROM m_office WHERE id = ?"
	} else {
		stmt = fmt.Sprintf("SELECT o.hierarchy FROM %s t JOIN m_office o ON o.id = t.office_id WHERE t.id = ?", d.quote(appTable))
	}
	var hierarchies []string
	if err := d.db.WithContext(ctx).Raw(stmt, id).Scan(&hierarchies).Error; err != nil {
		return "", false, errors.WithCode(code.ErrDatabase, "查询应用表记录失败: %v", err)
	}
	if len(hierarchies) == 0 {
		return "", false, nil
	}
	return hierarchies[0], true, nil
}

func (d *Datatables) quote(name string) string {
	return d.db.Statement.Quote(name)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
