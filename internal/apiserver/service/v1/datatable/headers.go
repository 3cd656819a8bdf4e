package datatable

import (
	"context"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/samber/lo"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func displayType(m interfaces.ColumnMeta) string {
	if strings.Contains(m.Name, codeLookupSeparator) {
		return v1.DisplayTypeCodeLookup
	}
	switch {
	case m.Type == "varchar" || m.Type == "char":
		return v1.DisplayTypeString
	case strings.HasPrefix(m.Type, "text") || strings.HasSuffix(m.Type, "text"):
		return v1.DisplayTypeText
	case lo.Contains([]string{"int", "integer", "bigint", "smallint", "tinyint", "mediumint"}, m.Type):
		return v1.DisplayTypeInteger
	case lo.Contains([]string{"bit", "boolean", "bool"}, m.Type):
		return v1.DisplayTypeBoolean
	case lo.Contains([]string{"decimal", "numeric", "double", "float", "real"}, m.Type):
		return v1.DisplayTypeDecimal
	case m.Type == "date":
		return v1.DisplayTypeDate
	case m.Type == "datetime" || m.Type == "timestamp":
		return v1.DisplayTypeDateTime
	}
	return v1.DisplayTypeString
}

// columnHeaders 读取物理列并补全下拉列的可选值.
func columnHeaders(ctx context.Context, f interfaces.Factory, datatable string) ([]v1.ResultsetColumnHeaderData, error) {
	cols, err := f.Datatables().Columns(ctx, datatable)
	if err != nil {
		return nil, err
	}
	headers := make([]v1.ResultsetColumnHeaderData, 0, len(cols))
	for _, c := range cols {
		h := v1.ResultsetColumnHeaderData{
			ColumnName:         c.Name,
			ColumnType:         c.Type,
			ColumnLength:       c.Length,
			ColumnDisplayType:  displayType(c),
			IsColumnNullable:   c.Nullable,
			IsColumnPrimaryKey: c.PrimaryKey,
			ColumnValues:       []v1.ResultsetColumnValueData{},
		}
		if h.IsCodeLookupDisplayType() {
			h.ColumnCode = c.Name[:strings.Index(c.Name, codeLookupSeparator)]
			values, err := columnValues(ctx, f, datatable, c.Name)
			if err != nil {
				return nil, err
			}
			h.ColumnValues = values
		}
		headers = append(headers, h)
	}
	return headers, nil
}

func columnValues(ctx context.Context, f interfaces.Factory, datatable, column string) ([]v1.ResultsetColumnValueData, error) {
	codeID, found, err := f.Datatables().GetCodeMapping(ctx, codeMappingAlias(datatable, column))
	if err != nil || !found {
		return []v1.ResultsetColumnValueData{}, err
	}
	values, err := f.CodeValues().ListByCodeID(ctx, codeID)
	if err != nil {
		return nil, err
	}
	return lo.Map(values, func(v v1.CodeValue, _ int) v1.ResultsetColumnValueData {
		return v1.ResultsetColumnValueData{ID: v.ID, Value: v.Value, Score: v.Score}
	}), nil
}

// describe 在给定的 Factory 上读取数据表描述，事务内不走缓存.
func describe(ctx context.Context, f interfaces.Factory, reg *v1.RegisteredTable) (*v1.DatatableData, error) {
	headers, err := columnHeaders(ctx, f, reg.Name)
	if err != nil {
		return nil, err
	}
	return &v1.DatatableData{
		ApplicationTableName: reg.ApplicationTable,
		RegisteredTableName:  reg.Name,
		ColumnHeaderData:     headers,
	}, nil
}

func (s *DatatableService) cachedDescribe(ctx context.Context, reg v1.RegisteredTable) (*v1.DatatableData, error) {
	data, err := cache.GetOrLoad(ctx, s.Cache, cache.DatatableKey(reg.Name), func(ctx context.Context) (v1.DatatableData, error) {
		d, err := describe(ctx, s.Store, &reg)
		if err != nil {
			return v1.DatatableData{}, err
		}
		return *d, nil
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// RetrieveDatatableNames 只返回当前用户有读权限的数据表.
func (s *DatatableService) RetrieveDatatableNames(ctx context.Context, appTable string) ([]v1.DatatableData, error) {
	user, err := s.Security.AuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := s.Store.Datatables().ListRegistered(ctx, appTable)
	if err != nil {
		return nil, err
	}
	out := make([]v1.DatatableData, 0, len(tables))
	for _, t := range tables {
		if !user.CanRead(t.Name) {
			continue
		}
		data, err := s.cachedDescribe(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, *data)
	}
	return out, nil
}

// RetrieveSingleDatatable 未注册或无读权限都按不存在处理.
func (s *DatatableService) RetrieveSingleDatatable(ctx context.Context, datatable string) (*v1.DatatableData, error) {
	if !s.Names.MightContain(datatable) {
		return nil, notFound(datatable)
	}
	user, err := s.Security.AuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := s.Store.Datatables().GetRegistered(ctx, datatable)
	if err != nil {
		return nil, err
	}
	if !user.CanRead(reg.Name) {
		return nil, notFound(datatable)
	}
	return s.cachedDescribe(ctx, *reg)
}

func notFound(datatable string) error {
	return errors.WithCode(code.ErrDatatableNotFound, "Datatable `%s` does not exist.", datatable)
}

func findHeader(headers []v1.ResultsetColumnHeaderData, name string) (*v1.ResultsetColumnHeaderData, bool) {
	for i := range headers {
		if strings.EqualFold(headers[i].ColumnName, name) {
			return &headers[i], true
		}
	}
	return nil, false
}
