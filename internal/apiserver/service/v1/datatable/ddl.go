package datatable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
)

// 列类型
const (
	columnTypeString   = "string"
	columnTypeNumber   = "number"
	columnTypeBoolean  = "boolean"
	columnTypeDecimal  = "decimal"
	columnTypeDate     = "date"
	columnTypeDateTime = "datetime"
	columnTypeText     = "text"
	columnTypeDropdown = "dropdown"
)

var (
	columnTypes = []interface{}{
		columnTypeString, columnTypeNumber, columnTypeBoolean, columnTypeDecimal,
		columnTypeDate, columnTypeDateTime, columnTypeText, columnTypeDropdown,
	}
	nameRegexp = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_ ]*$`)
)

// columnDef 请求中的一列.
type columnDef struct {
	// Name 物理列名，下拉列已带 <code>_cd_ 前缀
	Name      string
	Type      string
	Length    int64
	Mandatory bool
	After     string
	Code      string
}

// dialect 按数据库生成 DDL.
type dialect string

const (
	dialectMySQL  dialect = "mysql"
	dialectSQLite dialect = "sqlite"
)

func (d dialect) quote(name string) string {
	if d == dialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d dialect) sqlType(c columnDef) string {
	switch c.Type {
	case columnTypeString:
		return fmt.Sprintf("VARCHAR(%d)", c.Length)
	case columnTypeNumber, columnTypeDropdown:
		return "INT"
	case columnTypeDecimal:
		return "DECIMAL(19,6)"
	case columnTypeDate:
		return "DATE"
	case columnTypeDateTime:
		return "DATETIME"
	case columnTypeText:
		return "TEXT"
	case columnTypeBoolean:
		if d == dialectMySQL {
			return "BIT(1)"
		}
		return "BOOLEAN"
	}
	return strings.ToUpper(c.Type)
}

// metaType 已有列的类型声明，mysql CHANGE 时需要原样带上.
func metaType(m interfaces.ColumnMeta) string {
	switch m.Type {
	case "varchar", "char":
		return fmt.Sprintf("%s(%d)", strings.ToUpper(m.Type), m.Length)
	case "decimal", "numeric":
		return "DECIMAL(19,6)"
	case "bit":
		return "BIT(1)"
	}
	return strings.ToUpper(m.Type)
}

func (d dialect) columnSQL(c columnDef) string {
	s := d.quote(c.Name) + " " + d.sqlType(c)
	if c.Mandatory {
		s += " NOT NULL"
	} else if d == dialectMySQL {
		s += " NULL"
	}
	return s
}

func foreignKeyName(datatable, fk string) string {
	return "fk_" + datatable + "_" + fk
}

// createTable 多行表以自增 id 为主键，一对一表以外键列为主键.
func (d dialect) createTable(datatable, appTable string, multiRow bool, cols []columnDef) string {
	fk := foreignKeyColumn(appTable)
	var defs []string
	if multiRow {
		if d == dialectMySQL {
			defs = append(defs, d.quote(multiRowPrimaryKey)+" BIGINT NOT NULL AUTO_INCREMENT")
		} else {
			defs = append(defs, d.quote(multiRowPrimaryKey)+" INTEGER PRIMARY KEY AUTOINCREMENT")
		}
	}
	defs = append(defs, d.quote(fk)+" BIGINT NOT NULL")
	for _, c := range cols {
		defs = append(defs, d.columnSQL(c))
	}
	switch {
	case multiRow && d == dialectMySQL:
		defs = append(defs, "PRIMARY KEY ("+d.quote(multiRowPrimaryKey)+")")
	case !multiRow:
		defs = append(defs, "PRIMARY KEY ("+d.quote(fk)+")")
	}
	defs = append(defs, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.quote(foreignKeyName(datatable, fk)), d.quote(fk), d.quote(appTable), d.quote("id")))

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", d.quote(datatable), strings.Join(defs, ", "))
	if d == dialectMySQL {
		stmt += " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return stmt
}

func (d dialect) dropTable(datatable string) string {
	return "DROP TABLE " + d.quote(datatable)
}

func (d dialect) addColumn(datatable string, c columnDef) string {
	if d == dialectMySQL {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD %s", d.quote(datatable), d.columnSQL(c))
		if c.After != "" {
			stmt += " AFTER " + d.quote(c.After)
		}
		return stmt
	}
	// sqlite 不能给已有表新增无默认值的非空列
	c.Mandatory = false
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quote(datatable), d.columnSQL(c))
}

func (d dialect) dropColumn(datatable, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.quote(datatable), d.quote(column))
}

// changeColumn mysql 用 CHANGE 同时改名、长度与可空性；sqlite 只支持改名.
func (d dialect) changeColumn(datatable, oldName, newName, typeSQL string, mandatory bool, after string) string {
	if d == dialectSQLite {
		return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", d.quote(datatable), d.quote(oldName), d.quote(newName))
	}
	stmt := fmt.Sprintf("ALTER TABLE %s CHANGE %s %s %s", d.quote(datatable), d.quote(oldName), d.quote(newName), typeSQL)
	if mandatory {
		stmt += " NOT NULL"
	} else {
		stmt += " NULL"
	}
	if after != "" {
		stmt += " AFTER " + d.quote(after)
	}
	return stmt
}

// changeApplicationTable 切换外键指向的应用表，外键列随之改名.
func (d dialect) changeApplicationTable(datatable, oldAppTable, newAppTable string) []string {
	oldFK, newFK := foreignKeyColumn(oldAppTable), foreignKeyColumn(newAppTable)
	if d == dialectSQLite {
		// sqlite 的外键约束不能单独修改，只改列名
		return []string{d.changeColumn(datatable, oldFK, newFK, "", true, "")}
	}
	t := d.quote(datatable)
	return []string{
		fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", t, d.quote(foreignKeyName(datatable, oldFK))),
		d.changeColumn(datatable, oldFK, newFK, "BIGINT", true, ""),
		fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			t, d.quote(foreignKeyName(datatable, newFK)), d.quote(newFK), d.quote(newAppTable), d.quote("id")),
	}
}
