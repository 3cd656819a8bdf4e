package v1

import (
	"time"
)

// 命令处理状态
const (
	CommandProcessed        = 1
	CommandAwaitingApproval = 2
	CommandRejected         = 3
)

// CommandSource 命令来源记录，保存每一次写操作.
type CommandSource struct {
	ID                   int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ActionName           string     `gorm:"column:action_name;type:varchar(50);not null;index:idx_command_action"`
	EntityName           string     `gorm:"column:entity_name;type:varchar(100);not null;index:idx_command_action"`
	OfficeID             *int64     `gorm:"column:office_id"`
	GroupID              *int64     `gorm:"column:group_id"`
	ClientID             *int64     `gorm:"column:client_id"`
	LoanID               *int64     `gorm:"column:loan_id"`
	SavingsID            *int64     `gorm:"column:savings_account_id"`
	ProductID            *int64     `gorm:"column:product_id"`
	Href                 string     `gorm:"column:api_get_url;type:varchar(200);not null"`
	ResourceID           *int64     `gorm:"column:resource_id"`
	SubresourceID        *int64     `gorm:"column:subresource_id"`
	ResourceIdentifier   string     `gorm:"column:resource_identifier;type:varchar(100)"`
	CommandAsJSON        string     `gorm:"column:command_as_json;type:text;not null"`
	Changes              string     `gorm:"column:changes_as_json;type:text"`
	MakerID              int64      `gorm:"column:maker_id;not null;index"`
	MadeOnDate           time.Time  `gorm:"column:made_on_date;not null"`
	CheckerID            *int64     `gorm:"column:checker_id"`
	CheckedOnDate        *time.Time `gorm:"column:checked_on_date"`
	ProcessingResultEnum int        `gorm:"column:processing_result_enum;not null;index"`
	TransactionID        *string    `gorm:"column:transaction_id;type:varchar(100)"`
}

func (CommandSource) TableName() string {
	return "m_portfolio_command_source"
}

// PermissionCode 命令对应的权限编码，如 CREATE_OFFICE.
func (c *CommandSource) PermissionCode() string {
	return c.ActionName + "_" + c.EntityName
}

// CommandSourceData 待审批或已处理命令的响应.
type CommandSourceData struct {
	ID                   int64       `json:"id"`
	ActionName           string      `json:"actionName"`
	EntityName           string      `json:"entityName"`
	ResourceID           *int64      `json:"resourceId,omitempty"`
	SubresourceID        *int64      `json:"subresourceId,omitempty"`
	OfficeID             *int64      `json:"officeId,omitempty"`
	Href                 string      `json:"url"`
	Maker                string      `json:"maker,omitempty"`
	MakerID              int64       `json:"makerId"`
	MadeOnDate           time.Time   `json:"madeOnDate"`
	Checker              string      `json:"checker,omitempty"`
	CheckerID            *int64      `json:"checkerId,omitempty"`
	CheckedOnDate        *time.Time  `json:"checkedOnDate,omitempty"`
	ProcessingResult     string      `json:"processingResult"`
	CommandAsJSON        interface{} `json:"commandAsJson,omitempty"`
	ProcessingResultEnum int         `json:"-"`
}

// CommandSourceList 分页结果.
type CommandSourceList struct {
	TotalFilteredRecords int64               `json:"totalFilteredRecords"`
	PageItems            []CommandSourceData `json:"pageItems"`
}

// ProcessingResultName 处理状态的展示名.
func ProcessingResultName(v int) string {
	switch v {
	case CommandProcessed:
		return "processed"
	case CommandAwaitingApproval:
		return "awaiting.approval"
	case CommandRejected:
		return "rejected"
	}
	return "invalid"
}

// CommandProcessingResult 命令执行结果，空字段不输出.
type CommandProcessingResult struct {
	CommandID           int64                  `json:"commandId,omitempty"`
	OfficeID            int64                  `json:"officeId,omitempty"`
	GroupID             int64                  `json:"groupId,omitempty"`
	ClientID            int64                  `json:"clientId,omitempty"`
	LoanID              int64                  `json:"loanId,omitempty"`
	SavingsID           int64                  `json:"savingsId,omitempty"`
	ResourceID          int64                  `json:"resourceId,omitempty"`
	SubResourceID       int64                  `json:"subResourceId,omitempty"`
	TransactionID       string                 `json:"transactionId,omitempty"`
	ProductID           int64                  `json:"productId,omitempty"`
	ResourceIdentifier  string                 `json:"resourceIdentifier,omitempty"`
	Changes             map[string]interface{} `json:"changes,omitempty"`
	RollbackTransaction bool                   `json:"rollbackTransaction,omitempty"`
}

// CommandEvent 命令处理完成后发布到消息队列的事件.
type CommandEvent struct {
	EventID              string    `json:"eventId"`
	CommandID            int64     `json:"commandId"`
	ActionName           string    `json:"actionName"`
	EntityName           string    `json:"entityName"`
	ResourceID           int64     `json:"resourceId,omitempty"`
	ResourceIdentifier   string    `json:"resourceIdentifier,omitempty"`
	OfficeID             int64     `json:"officeId,omitempty"`
	MakerID              int64     `json:"makerId"`
	ProcessingResultEnum int       `json:"processingResult"`
	OccurredAt           time.Time `json:"occurredAt"`
}
