package datatable

import (
	"context"
	"strconv"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/samber/lo"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// 结构变更参数
const (
	paramAddColumns    = "addColumns"
	paramChangeColumns = "changeColumns"
	paramDropColumns   = "dropColumns"

	paramName      = "name"
	paramNewName   = "newName"
	paramType      = "type"
	paramLength    = "length"
	paramMandatory = "mandatory"
	paramAfter     = "after"
	paramCode      = "code"
	paramNewCode   = "newCode"
)

const nameMessage = "The parameter %s must start with a letter and contain only letters, digits, underscores and spaces."

func validName(b *validation.DataValidatorBuilder, param, value string) {
	b.Parameter(param).Value(value).NotBlank().NotExceedingLengthOf(50)
	if value != "" {
		b.Parameter(param).Value(value).MatchesRegularExpression(nameRegexp, strings.Replace(nameMessage, "%s", param, 1))
	}
}

// readColumns 解析 columns/addColumns，下拉列名加上代码前缀.
func readColumns(b *validation.DataValidatorBuilder, items []*jsoncommand.JsonCommand) []columnDef {
	cols := make([]columnDef, 0, len(items))
	for _, item := range items {
		name := normalizeName(item.String(paramName))
		typ := strings.ToLower(item.String(paramType))
		validName(b, paramName, name)
		b.Parameter(paramType).Value(typ).NotBlank().IsOneOfTheseValues(columnTypes...)

		c := columnDef{
			Name:      name,
			Type:      typ,
			Mandatory: item.BoolValue(paramMandatory),
			After:     item.String(paramAfter),
			Code:      item.String(paramCode),
		}
		length, err := item.Long(paramLength)
		if err != nil {
			b.Parameter(paramLength).Value(item.String(paramLength)).
				FailWithCode("invalid.format", "The parameter length must be an integer.")
		}
		switch typ {
		case columnTypeString:
			if length == nil || *length <= 0 {
				b.Parameter(paramLength).Value(length).
					FailWithCode("must.be.provided.when.type.is.string", "The parameter length is mandatory for String columns.")
			} else {
				c.Length = *length
			}
		case columnTypeDropdown:
			b.Parameter(paramCode).Value(c.Code).NotBlank()
			c.Name = codeLookupColumn(c.Code, name)
		default:
			if length != nil {
				b.Parameter(paramLength).Value(length).
					FailWithCode("not.supported.when.type.is.not.string", "The parameter length is only supported for String columns.")
			}
		}
		cols = append(cols, c)
	}
	return cols
}

func reservedColumn(b *validation.DataValidatorBuilder, name, fk string) {
	if strings.EqualFold(name, multiRowPrimaryKey) || strings.EqualFold(name, fk) {
		b.Parameter(paramName).Value(name).FailWithCode("is.reserved", "The column name %s is reserved.", name)
	}
}

// resolveCode 下拉列对应的代码 id.
func resolveCode(ctx context.Context, tx interfaces.Factory, name string) (int64, error) {
	c, err := tx.CodeValues().GetCodeByName(ctx, name)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// CreateDatatable 处理 CREATE DATATABLE：建表后注册.
func (s *DatatableService) CreateDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	if err := validateShape(createLoader, cmd); err != nil {
		return nil, err
	}
	if err := cmd.CheckForUnsupportedParameters(paramDatatableName, paramApptableName, paramMultiRow, paramColumns); err != nil {
		return nil, err
	}
	datatable := normalizeName(cmd.String(paramDatatableName))
	appTable := cmd.String(paramApptableName)
	multiRow := cmd.BoolValue(paramMultiRow)
	fk := foreignKeyColumn(appTable)

	b := validation.NewDataValidatorBuilder("datatable")
	validName(b, paramDatatableName, datatable)
	b.Parameter(paramApptableName).Value(appTable).NotBlank()
	items := cmd.Array(paramColumns)
	if len(items) == 0 {
		b.Parameter(paramColumns).FailWithCode("cannot.be.empty", "At least one column is required.")
	}
	cols := readColumns(b, items)
	for _, c := range cols {
		reservedColumn(b, c.Name, fk)
	}
	if dup := lo.FindDuplicates(lo.Map(cols, func(c columnDef, _ int) string { return strings.ToLower(c.Name) })); len(dup) > 0 {
		b.Parameter(paramColumns).Value(dup).FailWithCode("duplicate.column", "Duplicate column names: %v", dup)
	}
	if err := b.ThrowIfAny(); err != nil {
		return nil, err
	}

	if err := s.validateAppTable(ctx, tx, appTable); err != nil {
		return nil, err
	}
	if tx.Datatables().TableExists(ctx, datatable) {
		return nil, errors.WithCode(code.ErrDatatableAlreadyExist, "Datatable `%s` already exists.", datatable)
	}
	// MySQL 的 DDL 会隐式提交，建表前先排除重名
	if err := checkNameFree(ctx, tx, datatable); err != nil {
		return nil, err
	}
	codes := map[string]int64{}
	for _, c := range cols {
		if c.Type != columnTypeDropdown {
			continue
		}
		id, err := resolveCode(ctx, tx, c.Code)
		if err != nil {
			return nil, err
		}
		codes[c.Name] = id
	}

	d := dialect(tx.Datatables().Dialect())
	err := s.withDDLLock(ctx, datatable, "create", func() error {
		if err := tx.Datatables().ExecDDL(ctx, d.createTable(datatable, appTable, multiRow, cols)); err != nil {
			return err
		}
		for col, codeID := range codes {
			if err := tx.Datatables().SaveCodeMapping(ctx, codeMappingAlias(datatable, col), codeID); err != nil {
				return err
			}
		}
		return s.RegisterDatatableFor(ctx, tx, datatable, appTable)
	})
	if err != nil {
		return nil, err
	}
	log.L(ctx).Infow("数据表已创建", "datatable", datatable, "appTable", appTable, "multiRow", multiRow)
	return &v1.CommandProcessingResult{CommandID: cmd.CommandID, ResourceIdentifier: datatable}, nil
}

// changeDef changeColumns 中的一项.
type changeDef struct {
	Name      string
	NewName   string
	Length    *int64
	Mandatory *bool
	After     string
	Code      string
	NewCode   string
}

func readChanges(b *validation.DataValidatorBuilder, items []*jsoncommand.JsonCommand) []changeDef {
	out := make([]changeDef, 0, len(items))
	for _, item := range items {
		ch := changeDef{
			Name:      normalizeName(item.String(paramName)),
			NewName:   normalizeName(item.String(paramNewName)),
			Mandatory: item.Bool(paramMandatory),
			After:     item.String(paramAfter),
			Code:      item.String(paramCode),
			NewCode:   item.String(paramNewCode),
		}
		b.Parameter(paramName).Value(ch.Name).NotBlank()
		if ch.NewName != "" {
			validName(b, paramNewName, ch.NewName)
		}
		length, err := item.Long(paramLength)
		if err != nil {
			b.Parameter(paramLength).Value(item.String(paramLength)).
				FailWithCode("invalid.format", "The parameter length must be an integer.")
		}
		b.Parameter(paramLength).Value(length).IgnoreIfNull().LongGreaterThanZero()
		ch.Length = length
		out = append(out, ch)
	}
	return out
}

func metaByName(metas []interfaces.ColumnMeta, name string) (interfaces.ColumnMeta, bool) {
	return lo.Find(metas, func(m interfaces.ColumnMeta) bool { return strings.EqualFold(m.Name, name) })
}

func columnNotFound(datatable, column string) error {
	return errors.WithCode(code.ErrDatatableColumnNotFound, "Column `%s` does not exist in datatable `%s`.", column, datatable)
}

// UpdateDatatable 处理 UPDATE DATATABLE：新增、修改、删除列以及切换应用表.
func (s *DatatableService) UpdateDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	if err := validateShape(updateLoader, cmd); err != nil {
		return nil, err
	}
	if err := cmd.CheckForUnsupportedParameters(paramApptableName, paramAddColumns, paramChangeColumns, paramDropColumns); err != nil {
		return nil, err
	}
	datatable := GetDataTableName(cmd.Href)
	reg, err := tx.Datatables().GetRegistered(ctx, datatable)
	if err != nil {
		return nil, err
	}
	metas, err := tx.Datatables().Columns(ctx, datatable)
	if err != nil {
		return nil, err
	}
	fk := foreignKeyColumn(reg.ApplicationTable)

	b := validation.NewDataValidatorBuilder("datatable")
	adds := readColumns(b, cmd.Array(paramAddColumns))
	changes := readChanges(b, cmd.Array(paramChangeColumns))
	var drops []string
	for _, item := range cmd.Array(paramDropColumns) {
		name := item.String(paramName)
		b.Parameter(paramName).Value(name).NotBlank()
		drops = append(drops, name)
	}
	for _, c := range adds {
		reservedColumn(b, c.Name, fk)
	}
	for _, name := range drops {
		reservedColumn(b, name, fk)
	}
	for _, ch := range changes {
		reservedColumn(b, ch.Name, fk)
	}
	if err := b.ThrowIfAny(); err != nil {
		return nil, err
	}

	newAppTable := cmd.String(paramApptableName)
	if newAppTable == reg.ApplicationTable {
		newAppTable = ""
	}
	if newAppTable != "" {
		if err := s.validateAppTable(ctx, tx, newAppTable); err != nil {
			return nil, err
		}
	}

	d := dialect(tx.Datatables().Dialect())
	var (
		stmts      []string
		mappingOps []func() error
		result     = map[string]interface{}{}
	)
	saveMapping := func(column string, codeID int64) {
		mappingOps = append(mappingOps, func() error {
			return tx.Datatables().SaveCodeMapping(ctx, codeMappingAlias(datatable, column), codeID)
		})
	}
	deleteMapping := func(column string) {
		mappingOps = append(mappingOps, func() error {
			return tx.Datatables().DeleteCodeMapping(ctx, codeMappingAlias(datatable, column))
		})
	}

	for _, c := range adds {
		if _, ok := metaByName(metas, c.Name); ok {
			return nil, validation.DataIntegrity(code.ErrValidation, "error.msg.datatable.column.already.exists",
				paramName, c.Name, "Column `%s` already exists in datatable `%s`.", c.Name, datatable)
		}
		if c.Type == columnTypeDropdown {
			codeID, err := resolveCode(ctx, tx, c.Code)
			if err != nil {
				return nil, err
			}
			saveMapping(c.Name, codeID)
		}
		if d == dialectSQLite && c.Mandatory {
			log.L(ctx).Warnw("sqlite 不支持为已有表新增非空列，按可空列处理", "datatable", datatable, "column", c.Name)
		}
		stmts = append(stmts, d.addColumn(datatable, c))
	}

	for _, ch := range changes {
		oldCol := ch.Name
		if ch.Code != "" {
			oldCol = codeLookupColumn(ch.Code, ch.Name)
		}
		meta, ok := metaByName(metas, oldCol)
		if !ok {
			return nil, columnNotFound(datatable, oldCol)
		}
		base := lo.Ternary(ch.NewName != "", ch.NewName, ch.Name)
		codeName := lo.Ternary(ch.NewCode != "", ch.NewCode, ch.Code)
		newCol := base
		if codeName != "" {
			newCol = codeLookupColumn(codeName, base)
		}

		typeSQL := metaType(meta)
		if ch.Length != nil && (meta.Type == "varchar" || meta.Type == "char") {
			typeSQL = strings.ToUpper(meta.Type) + "(" + strconv.FormatInt(*ch.Length, 10) + ")"
		}
		mandatory := !meta.Nullable
		if ch.Mandatory != nil {
			mandatory = *ch.Mandatory
		}

		if d == dialectSQLite {
			if ch.Length != nil || ch.Mandatory != nil || ch.After != "" {
				log.L(ctx).Warnw("sqlite 只支持列改名，忽略长度、可空性与位置", "datatable", datatable, "column", oldCol)
			}
			if newCol != oldCol {
				stmts = append(stmts, d.changeColumn(datatable, oldCol, newCol, typeSQL, mandatory, ""))
			}
		} else {
			stmts = append(stmts, d.changeColumn(datatable, oldCol, newCol, typeSQL, mandatory, ch.After))
		}

		if ch.Code != "" && (newCol != oldCol || ch.NewCode != "") {
			codeID, err := resolveCode(ctx, tx, codeName)
			if err != nil {
				return nil, err
			}
			deleteMapping(oldCol)
			saveMapping(newCol, codeID)
		}
	}

	for _, name := range drops {
		if _, ok := metaByName(metas, name); !ok {
			return nil, columnNotFound(datatable, name)
		}
		if strings.Contains(name, codeLookupSeparator) {
			deleteMapping(name)
		}
		stmts = append(stmts, d.dropColumn(datatable, name))
	}

	if newAppTable != "" {
		stmts = append(stmts, d.changeApplicationTable(datatable, reg.ApplicationTable, newAppTable)...)
		mappingOps = append(mappingOps, func() error {
			return tx.Datatables().UpdateApplicationTable(ctx, datatable, newAppTable)
		})
		result[paramApptableName] = newAppTable
	}
	if len(stmts) == 0 && len(mappingOps) == 0 {
		return &v1.CommandProcessingResult{CommandID: cmd.CommandID, ResourceIdentifier: datatable}, nil
	}

	err = s.withDDLLock(ctx, datatable, "update", func() error {
		if err := tx.Datatables().ExecDDL(ctx, stmts...); err != nil {
			return err
		}
		for _, op := range mappingOps {
			if err := op(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(adds) > 0 {
		result[paramAddColumns] = lo.Map(adds, func(c columnDef, _ int) string { return c.Name })
	}
	if len(changes) > 0 {
		result[paramChangeColumns] = lo.Map(changes, func(c changeDef, _ int) string { return c.Name })
	}
	if len(drops) > 0 {
		result[paramDropColumns] = drops
	}
	log.L(ctx).Infow("数据表结构已变更", "datatable", datatable, "statements", len(stmts))
	return &v1.CommandProcessingResult{CommandID: cmd.CommandID, ResourceIdentifier: datatable, Changes: result}, nil
}

// DeleteDatatable 处理 DELETE DATATABLE：只能删除空表，先注销再删表.
func (s *DatatableService) DeleteDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	datatable := GetDataTableName(cmd.Href)
	if _, err := tx.Datatables().GetRegistered(ctx, datatable); err != nil {
		return nil, err
	}
	n, err := tx.Datatables().CountRows(ctx, datatable, map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, errors.WithCode(code.ErrDatatableNotEmpty,
			"Datatable `%s` is not empty and cannot be deleted.", datatable)
	}
	metas, err := tx.Datatables().Columns(ctx, datatable)
	if err != nil {
		return nil, err
	}

	d := dialect(tx.Datatables().Dialect())
	err = s.withDDLLock(ctx, datatable, "delete", func() error {
		if err := s.deregister(ctx, tx, datatable); err != nil {
			return err
		}
		for _, m := range metas {
			if strings.Contains(m.Name, codeLookupSeparator) {
				if err := tx.Datatables().DeleteCodeMapping(ctx, codeMappingAlias(datatable, m.Name)); err != nil {
					return err
				}
			}
		}
		return tx.Datatables().ExecDDL(ctx, d.dropTable(datatable))
	})
	if err != nil {
		return nil, err
	}
	log.L(ctx).Infow("数据表已删除", "datatable", datatable)
	return &v1.CommandProcessingResult{CommandID: cmd.CommandID, ResourceIdentifier: datatable}, nil
}
