package commandsource

import (
	"fmt"
	"strings"
)

// 命令动作
const (
	ActionCreate     = "CREATE"
	ActionUpdate     = "UPDATE"
	ActionDelete     = "DELETE"
	ActionRegister   = "REGISTER"
	ActionDeregister = "DEREGISTER"
)

// 命令实体
const (
	EntityOffice    = "OFFICE"
	EntityDatatable = "DATATABLE"
)

const (
	checkerSuffix     = "_CHECKER"
	datatablesHref    = "/datatables/"
	surveysHref       = "/surveys/"
	emptyCommandJSON  = "{}"
	officesHref       = "/offices/"
	officeTemplateRef = "/offices/template"
)

// CommandWrapper 一次写请求的全部上下文，由 CommandWrapperBuilder 构建.
type CommandWrapper struct {
	ActionName  string
	EntityName  string
	EntityID    int64
	SubentityID int64
	Href        string
	JSON        string

	OfficeID  int64
	GroupID   int64
	ClientID  int64
	LoanID    int64
	SavingsID int64
	ProductID int64

	TransactionID string
}

// PermissionCode 如 CREATE_OFFICE.
func (w *CommandWrapper) PermissionCode() string {
	return w.ActionName + "_" + w.EntityName
}

// CheckerPermissionCode 审批所需权限.
func (w *CommandWrapper) CheckerPermissionCode() string {
	return w.PermissionCode() + checkerSuffix
}

func (w *CommandWrapper) key() string {
	return handlerKey(w.EntityName, w.ActionName)
}

func (w *CommandWrapper) isDatatableEntry() bool {
	return w.EntityName != EntityDatatable && strings.Contains(w.Href, datatablesHref)
}

func (w *CommandWrapper) isSurvey() bool {
	return strings.Contains(w.Href, surveysHref)
}

type CommandWrapperBuilder struct {
	w CommandWrapper
}

func NewCommandWrapperBuilder() *CommandWrapperBuilder {
	return &CommandWrapperBuilder{}
}

func (b *CommandWrapperBuilder) WithJSON(json string) *CommandWrapperBuilder {
	b.w.JSON = json
	return b
}

func (b *CommandWrapperBuilder) WithEntityName(name string) *CommandWrapperBuilder {
	b.w.EntityName = name
	return b
}

func (b *CommandWrapperBuilder) WithOfficeID(id int64) *CommandWrapperBuilder {
	b.w.OfficeID = id
	return b
}

func (b *CommandWrapperBuilder) WithClientID(id int64) *CommandWrapperBuilder {
	b.w.ClientID = id
	return b
}

func (b *CommandWrapperBuilder) WithGroupID(id int64) *CommandWrapperBuilder {
	b.w.GroupID = id
	return b
}

func (b *CommandWrapperBuilder) WithLoanID(id int64) *CommandWrapperBuilder {
	b.w.LoanID = id
	return b
}

func (b *CommandWrapperBuilder) WithSavingsID(id int64) *CommandWrapperBuilder {
	b.w.SavingsID = id
	return b
}

func (b *CommandWrapperBuilder) WithProductID(id int64) *CommandWrapperBuilder {
	b.w.ProductID = id
	return b
}

func (b *CommandWrapperBuilder) WithTransactionID(id string) *CommandWrapperBuilder {
	b.w.TransactionID = id
	return b
}

func (b *CommandWrapperBuilder) CreateOffice() *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionCreate, EntityOffice
	b.w.Href = officeTemplateRef
	return b
}

func (b *CommandWrapperBuilder) UpdateOffice(officeID int64) *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionUpdate, EntityOffice
	b.w.EntityID = officeID
	b.w.Href = fmt.Sprintf("%s%d", officesHref, officeID)
	return b
}

func (b *CommandWrapperBuilder) CreateDatatable() *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionCreate, EntityDatatable
	b.w.Href = datatablesHref
	return b
}

func (b *CommandWrapperBuilder) UpdateDatatable(datatable string) *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionUpdate, EntityDatatable
	b.w.Href = datatablesHref + datatable
	return b
}

func (b *CommandWrapperBuilder) DeleteDatatable(datatable string) *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionDelete, EntityDatatable
	b.w.Href = datatablesHref + datatable
	if b.w.JSON == "" {
		b.w.JSON = emptyCommandJSON
	}
	return b
}

// RegisterDatatable 注册已有表，表名写入命令 JSON 供处理器读取.
func (b *CommandWrapperBuilder) RegisterDatatable(datatable, appTable string) *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionRegister, EntityDatatable
	b.w.Href = fmt.Sprintf("%sregister/%s/%s", datatablesHref, datatable, appTable)
	b.w.JSON = mergeJSON(b.w.JSON, map[string]interface{}{
		"datatableName": datatable,
		"apptableName":  appTable,
	})
	return b
}

func (b *CommandWrapperBuilder) DeregisterDatatable(datatable string) *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionDeregister, EntityDatatable
	b.w.Href = fmt.Sprintf("%sderegister/%s", datatablesHref, datatable)
	b.w.JSON = mergeJSON(b.w.JSON, map[string]interface{}{"datatableName": datatable})
	return b
}

func (b *CommandWrapperBuilder) CreateDatatableEntry(datatable string, appTableID int64) *CommandWrapperBuilder {
	return b.entry(ActionCreate, datatable, appTableID, 0)
}

func (b *CommandWrapperBuilder) UpdateDatatableEntryOneToOne(datatable string, appTableID int64) *CommandWrapperBuilder {
	return b.entry(ActionUpdate, datatable, appTableID, 0)
}

func (b *CommandWrapperBuilder) UpdateDatatableEntryOneToMany(datatable string, appTableID, datatableID int64) *CommandWrapperBuilder {
	return b.entry(ActionUpdate, datatable, appTableID, datatableID)
}

func (b *CommandWrapperBuilder) DeleteDatatableEntries(datatable string, appTableID int64) *CommandWrapperBuilder {
	return b.entry(ActionDelete, datatable, appTableID, 0)
}

func (b *CommandWrapperBuilder) DeleteDatatableEntry(datatable string, appTableID, datatableID int64) *CommandWrapperBuilder {
	return b.entry(ActionDelete, datatable, appTableID, datatableID)
}

// CreatePPIEntry 调查问卷，权限沿用数据表的 CREATE_<datatable>.
func (b *CommandWrapperBuilder) CreatePPIEntry(datatable string, appTableID int64) *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = ActionCreate, datatable
	b.w.EntityID = appTableID
	b.w.Href = fmt.Sprintf("%s%s/%d", surveysHref, datatable, appTableID)
	return b
}

func (b *CommandWrapperBuilder) entry(action, datatable string, appTableID, datatableID int64) *CommandWrapperBuilder {
	b.w.ActionName, b.w.EntityName = action, datatable
	b.w.EntityID, b.w.SubentityID = appTableID, datatableID
	b.w.Href = fmt.Sprintf("%s%s/%d", datatablesHref, datatable, appTableID)
	if datatableID > 0 {
		b.w.Href = fmt.Sprintf("%s/%d", b.w.Href, datatableID)
	}
	if action == ActionDelete && b.w.JSON == "" {
		b.w.JSON = emptyCommandJSON
	}
	return b
}

func (b *CommandWrapperBuilder) Build() *CommandWrapper {
	w := b.w
	if w.JSON == "" {
		w.JSON = emptyCommandJSON
	}
	return &w
}

// mergeJSON 在请求体上补充路径参数，请求体无法解析时原样保留交给后续校验.
func mergeJSON(body string, extra map[string]interface{}) string {
	fields := map[string]interface{}{}
	if strings.TrimSpace(body) != "" {
		if err := json.UnmarshalFromString(body, &fields); err != nil {
			return body
		}
	}
	for k, v := range extra {
		fields[k] = v
	}
	out, err := json.MarshalToString(fields)
	if err != nil {
		return body
	}
	return out
}
