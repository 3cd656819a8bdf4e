package datatable

import (
	"context"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/samber/lo"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/metrics"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// entryTable 行操作用到的表描述.
type entryTable struct {
	reg      *v1.RegisteredTable
	headers  []v1.ResultsetColumnHeaderData
	fk       string
	multiRow bool
}

func (e *entryTable) columnNames() []string {
	return lo.Map(e.headers, func(h v1.ResultsetColumnHeaderData, _ int) string { return h.ColumnName })
}

// userColumns 除主键与外键外的列.
func (e *entryTable) userColumns() []*v1.ResultsetColumnHeaderData {
	var out []*v1.ResultsetColumnHeaderData
	for i := range e.headers {
		h := &e.headers[i]
		if h.ColumnName == e.fk || (e.multiRow && h.ColumnName == multiRowPrimaryKey) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func newEntryTable(reg *v1.RegisteredTable, headers []v1.ResultsetColumnHeaderData) *entryTable {
	e := &entryTable{reg: reg, headers: headers, fk: foreignKeyColumn(reg.ApplicationTable)}
	_, e.multiRow = lo.Find(headers, func(h v1.ResultsetColumnHeaderData) bool {
		return h.ColumnName == multiRowPrimaryKey && h.IsColumnPrimaryKey
	})
	return e
}

// datatableOf 命令实体为数据表名，否则从 href 中取.
func datatableOf(cmd *jsoncommand.JsonCommand) string {
	if cmd.EntityName != "" && cmd.EntityName != EntityDatatable {
		return cmd.EntityName
	}
	return GetDataTableName(cmd.Href)
}

// checkAppTableScope 应用表记录必须存在且在当前用户的机构范围内.
func (s *DatatableService) checkAppTableScope(ctx context.Context, f interfaces.Factory, appTable string, id int64) error {
	hierarchy, found, err := f.Datatables().AppTableOfficeHierarchy(ctx, appTable, id)
	if err != nil {
		return err
	}
	if !found {
		return errors.WithCode(code.ErrAppTableRowNotFound, "Record %d of application table `%s` does not exist.", id, appTable)
	}
	return s.Security.ValidateAccessToOffice(ctx, hierarchy)
}

func (s *DatatableService) loadEntryTable(ctx context.Context, tx interfaces.Factory, datatable string, appTableID int64) (*entryTable, error) {
	reg, err := tx.Datatables().GetRegistered(ctx, datatable)
	if err != nil {
		return nil, err
	}
	if err := s.checkAppTableScope(ctx, tx, reg.ApplicationTable, appTableID); err != nil {
		return nil, err
	}
	headers, err := columnHeaders(ctx, tx, reg.Name)
	if err != nil {
		return nil, err
	}
	return newEntryTable(reg, headers), nil
}

// readValues 按列解析请求体，create 时非空列必填；computed 中的列由服务端计算.
func readValues(cmd *jsoncommand.JsonCommand, e *entryTable, create bool, computed ...string) (map[string]interface{}, error) {
	cols := e.userColumns()
	supported := lo.Map(cols, func(h *v1.ResultsetColumnHeaderData, _ int) string { return h.ColumnName })
	supported = append(supported, jsoncommand.ParamDateFormat, jsoncommand.ParamLocale)
	if err := cmd.CheckForUnsupportedParameters(supported...); err != nil {
		return nil, err
	}

	b := validation.NewDataValidatorBuilder(e.reg.Name)
	values := map[string]interface{}{}
	for _, h := range cols {
		if lo.Contains(computed, h.ColumnName) {
			continue
		}
		if !cmd.ParameterExists(h.ColumnName) {
			if create && !h.IsColumnNullable {
				b.Parameter(h.ColumnName).Value(nil).NotNull()
			}
			continue
		}
		v, err := parseValue(e.reg.Name, cmd, h)
		if err != nil {
			return nil, err
		}
		if v == nil && !h.IsColumnNullable {
			b.Parameter(h.ColumnName).Value(nil).NotNull()
			continue
		}
		values[h.ColumnName] = v
	}
	if err := b.ThrowIfAny(); err != nil {
		return nil, err
	}
	return values, nil
}

// entryResult 按应用表填充对应的资源 id.
func entryResult(cmd *jsoncommand.JsonCommand, e *entryTable) *v1.CommandProcessingResult {
	res := &v1.CommandProcessingResult{CommandID: cmd.CommandID, ResourceID: cmd.ResourceID}
	switch e.reg.ApplicationTable {
	case "m_office":
		res.OfficeID = cmd.ResourceID
	case "m_client":
		res.ClientID = cmd.ResourceID
	case "m_group", "m_center":
		res.GroupID = cmd.ResourceID
	case "m_loan":
		res.LoanID = cmd.ResourceID
	case "m_savings_account":
		res.SavingsID = cmd.ResourceID
	case "m_product_loan":
		res.ProductID = cmd.ResourceID
	}
	return res
}

// CreateNewDatatableEntry 新增一行，一对一表每个应用表记录只能有一行.
func (s *DatatableService) CreateNewDatatableEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	return s.createEntry(ctx, tx, cmd, false)
}

// CreatePPIEntry 同 CreateNewDatatableEntry，score 列为所选代码值的分数之和.
func (s *DatatableService) CreatePPIEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	return s.createEntry(ctx, tx, cmd, true)
}

func (s *DatatableService) createEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand, ppi bool) (*v1.CommandProcessingResult, error) {
	datatable := datatableOf(cmd)
	e, err := s.loadEntryTable(ctx, tx, datatable, cmd.ResourceID)
	if err != nil {
		return nil, err
	}
	var computed []string
	if ppi {
		computed = append(computed, scoreColumn)
	}
	values, err := readValues(cmd, e, true, computed...)
	if err != nil {
		return nil, err
	}
	if ppi {
		if _, ok := findHeader(e.headers, scoreColumn); ok {
			values[scoreColumn] = ppiScore(e, values)
		} else {
			log.L(ctx).Warnw("调查表缺少 score 列，不计算分数", "datatable", datatable)
		}
	}
	values[e.fk] = cmd.ResourceID

	if !e.multiRow {
		n, err := tx.Datatables().CountRows(ctx, datatable, map[string]interface{}{e.fk: cmd.ResourceID})
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, errors.WithCode(code.ErrDatatableEntryAlreadyExist,
				"An entry already exists for datatable `%s` and application table id %d.", datatable, cmd.ResourceID)
		}
	}
	id, err := tx.Datatables().InsertRow(ctx, datatable, values)
	if err != nil {
		return nil, err
	}
	metrics.DatatableEntries.WithLabelValues(datatable, lo.Ternary(ppi, "survey", "create")).Inc()

	res := entryResult(cmd, e)
	if e.multiRow {
		res.SubResourceID = id
	}
	return res, nil
}

func ppiScore(e *entryTable, values map[string]interface{}) int64 {
	var score int64
	for i := range e.headers {
		h := &e.headers[i]
		if !h.IsCodeLookupDisplayType() {
			continue
		}
		id, ok := values[h.ColumnName].(int64)
		if !ok {
			continue
		}
		if v, found := lo.Find(h.ColumnValues, func(v v1.ResultsetColumnValueData) bool { return v.ID == id }); found && v.Score != nil {
			score += int64(*v.Score)
		}
	}
	return score
}

// UpdateDatatableEntryOneToOne 更新一对一表的行.
func (s *DatatableService) UpdateDatatableEntryOneToOne(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	return s.updateEntry(ctx, tx, cmd, false)
}

// UpdateDatatableEntryOneToMany 更新多行表中 SubresourceID 指定的行.
func (s *DatatableService) UpdateDatatableEntryOneToMany(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	return s.updateEntry(ctx, tx, cmd, true)
}

func (s *DatatableService) updateEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand, oneToMany bool) (*v1.CommandProcessingResult, error) {
	datatable := datatableOf(cmd)
	e, err := s.loadEntryTable(ctx, tx, datatable, cmd.ResourceID)
	if err != nil {
		return nil, err
	}
	if e.multiRow != oneToMany {
		return nil, valueError(datatable, "datatableId", "invalid.for.table.type", cmd.SubresourceID,
			"Datatable `%s` is %s, the row id must %s.", datatable,
			lo.Ternary(e.multiRow, "multi-row", "one-to-one"),
			lo.Ternary(e.multiRow, "be provided", "not be provided"))
	}

	where := map[string]interface{}{e.fk: cmd.ResourceID}
	if oneToMany {
		where[multiRowPrimaryKey] = cmd.SubresourceID
	}
	names := e.columnNames()
	rows, err := tx.Datatables().QueryRows(ctx, datatable, names, where, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, entryNotFound(datatable, cmd)
	}
	values, err := readValues(cmd, e, false)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	for name, v := range values {
		idx := lo.IndexOf(names, name)
		h := &e.headers[idx]
		if canonical(h, rows[0][idx]) != canonical(h, v) {
			changes[name] = v
		}
	}
	if len(changes) > 0 {
		if _, err := tx.Datatables().UpdateRows(ctx, datatable, changes, where); err != nil {
			return nil, err
		}
		metrics.DatatableEntries.WithLabelValues(datatable, "update").Inc()
	}

	res := entryResult(cmd, e)
	if oneToMany {
		res.SubResourceID = cmd.SubresourceID
	}
	if len(changes) > 0 {
		res.Changes = changes
	}
	return res, nil
}

func entryNotFound(datatable string, cmd *jsoncommand.JsonCommand) error {
	return errors.WithCode(code.ErrDatatableEntryNotFound,
		"No entry in datatable `%s` for application table id %d and row id %d.", datatable, cmd.ResourceID, cmd.SubresourceID)
}

// DeleteDatatableEntries 删除应用表记录对应的全部行.
func (s *DatatableService) DeleteDatatableEntries(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	datatable := datatableOf(cmd)
	e, err := s.loadEntryTable(ctx, tx, datatable, cmd.ResourceID)
	if err != nil {
		return nil, err
	}
	n, err := tx.Datatables().DeleteRows(ctx, datatable, map[string]interface{}{e.fk: cmd.ResourceID})
	if err != nil {
		return nil, err
	}
	metrics.DatatableEntries.WithLabelValues(datatable, "delete").Add(float64(n))
	return entryResult(cmd, e), nil
}

// DeleteDatatableEntry 删除多行表中的一行.
func (s *DatatableService) DeleteDatatableEntry(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	datatable := datatableOf(cmd)
	e, err := s.loadEntryTable(ctx, tx, datatable, cmd.ResourceID)
	if err != nil {
		return nil, err
	}
	where := map[string]interface{}{e.fk: cmd.ResourceID}
	if e.multiRow {
		where[multiRowPrimaryKey] = cmd.SubresourceID
	}
	n, err := tx.Datatables().DeleteRows(ctx, datatable, where)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, entryNotFound(datatable, cmd)
	}
	metrics.DatatableEntries.WithLabelValues(datatable, "delete").Inc()
	res := entryResult(cmd, e)
	res.SubResourceID = cmd.SubresourceID
	return res, nil
}

// RetrieveDataTableGenericResultSet 读取应用表记录的数据行，id>0 时只取多行表中的一行.
func (s *DatatableService) RetrieveDataTableGenericResultSet(ctx context.Context, datatable string, appTableID int64,
	order string, id int64,
) (*v1.GenericResultsetData, error) {
	if !s.Names.MightContain(datatable) {
		return nil, notFound(datatable)
	}
	reg, err := s.Store.Datatables().GetRegistered(ctx, datatable)
	if err != nil {
		return nil, err
	}
	if err := s.Security.ValidateHasReadPermission(ctx, reg.Name); err != nil {
		return nil, err
	}
	if err := s.checkAppTableScope(ctx, s.Store, reg.ApplicationTable, appTableID); err != nil {
		return nil, err
	}
	data, err := s.cachedDescribe(ctx, *reg)
	if err != nil {
		return nil, err
	}
	e := newEntryTable(reg, data.ColumnHeaderData)

	if order != "" {
		h, ok := findHeader(e.headers, order)
		if !ok {
			return nil, columnNotFound(datatable, order)
		}
		order = h.ColumnName
	}
	where := map[string]interface{}{e.fk: appTableID}
	if id > 0 && e.multiRow {
		where[multiRowPrimaryKey] = id
	}
	rows, err := s.Store.Datatables().QueryRows(ctx, datatable, e.columnNames(), where, order)
	if err != nil {
		return nil, err
	}

	out := &v1.GenericResultsetData{ColumnHeaders: e.headers, Data: make([]v1.ResultsetRowData, 0, len(rows))}
	for _, row := range rows {
		for i := range row {
			row[i] = outputValue(&e.headers[i], row[i])
		}
		out.Data = append(out.Data, v1.ResultsetRowData{Row: row})
	}
	return out, nil
}
