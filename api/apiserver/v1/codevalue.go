package v1

// Code 代码表，如 "Office Type".
type Code struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string `gorm:"column:code_name;type:varchar(100);uniqueIndex:code_name"`
	IsSystemDefined bool   `gorm:"column:is_system_defined;not null;default:false"`
}

func (Code) TableName() string {
	return "m_code"
}

// CodeValue 代码值.
type CodeValue struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement"`
	CodeID      int64   `gorm:"column:code_id;not null;uniqueIndex:code_value"`
	Value       string  `gorm:"column:code_value;type:varchar(100);uniqueIndex:code_value"`
	Description *string `gorm:"column:code_description;type:varchar(500)"`
	Position    int     `gorm:"column:order_position;not null;default:0"`
	Score       *int    `gorm:"column:code_score"`
	IsActive    bool    `gorm:"column:is_active;not null;default:false"`
}

func (CodeValue) TableName() string {
	return "m_code_value"
}

// CodeValueData 代码值响应.
type CodeValueData struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Position    int     `json:"position"`
	Description *string `json:"description,omitempty"`
}
