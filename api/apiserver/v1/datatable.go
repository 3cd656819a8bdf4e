package v1

// RegisteredTable 已注册的数据表.
type RegisteredTable struct {
	Name             string `gorm:"column:registered_table_name;type:varchar(50);primaryKey"`
	ApplicationTable string `gorm:"column:application_table_name;type:varchar(50);not null;index"`
	Category         int    `gorm:"column:category;not null;default:100"`
}

func (RegisteredTable) TableName() string {
	return "x_registered_table"
}

// TableColumnCodeMapping 下拉列与代码表的映射，列名形如 <code>_cd_<name>.
type TableColumnCodeMapping struct {
	ColumnAliasName string `gorm:"column:column_alias_name;type:varchar(50);primaryKey"`
	CodeID          int64  `gorm:"column:code_id;not null"`
}

func (TableColumnCodeMapping) TableName() string {
	return "x_table_column_code_mappings"
}

// 列展示类型
const (
	DisplayTypeString     = "STRING"
	DisplayTypeInteger    = "INTEGER"
	DisplayTypeDecimal    = "DECIMAL"
	DisplayTypeDate       = "DATE"
	DisplayTypeDateTime   = "DATETIME"
	DisplayTypeText       = "TEXT"
	DisplayTypeBoolean    = "BOOLEAN"
	DisplayTypeCodeLookup = "CODELOOKUP"
)

// ResultsetColumnValueData 下拉列的可选值.
type ResultsetColumnValueData struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
	Score *int   `json:"score,omitempty"`
}

// ResultsetColumnHeaderData 列描述.
type ResultsetColumnHeaderData struct {
	ColumnName         string                     `json:"columnName"`
	ColumnType         string                     `json:"columnType"`
	ColumnLength       int64                      `json:"columnLength"`
	ColumnDisplayType  string                     `json:"columnDisplayType"`
	IsColumnNullable   bool                       `json:"isColumnNullable"`
	IsColumnPrimaryKey bool                       `json:"isColumnPrimaryKey"`
	ColumnValues       []ResultsetColumnValueData `json:"columnValues"`
	ColumnCode         string                     `json:"columnCode,omitempty"`
}

// IsDateDisplayType 日期类列.
func (h *ResultsetColumnHeaderData) IsDateDisplayType() bool {
	return h.ColumnDisplayType == DisplayTypeDate
}

func (h *ResultsetColumnHeaderData) IsCodeLookupDisplayType() bool {
	return h.ColumnDisplayType == DisplayTypeCodeLookup
}

// ResultsetRowData 一行数据，按列顺序输出.
type ResultsetRowData struct {
	Row []interface{} `json:"row"`
}

// GenericResultsetData 通用结果集.
type GenericResultsetData struct {
	ColumnHeaders []ResultsetColumnHeaderData `json:"columnHeaders"`
	Data          []ResultsetRowData          `json:"data"`
}

// HasNoEntries 结果集为空.
func (g *GenericResultsetData) HasNoEntries() bool {
	return len(g.Data) == 0
}

// DatatableData 已注册数据表的描述.
type DatatableData struct {
	ApplicationTableName string                      `json:"applicationTableName"`
	RegisteredTableName  string                      `json:"registeredTableName"`
	ColumnHeaderData     []ResultsetColumnHeaderData `json:"columnHeaderData"`
}
