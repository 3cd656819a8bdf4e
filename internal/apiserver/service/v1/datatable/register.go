package datatable

import (
	"context"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// 注册命令的参数
const (
	paramDatatableName   = "datatableName"
	paramApptableName    = "apptableName"
	paramMultiRow        = "multiRow"
	paramColumns         = "columns"
	paramCategory        = "category"
	paramPermissionTable = "permissionTable"
)

// RegisterDatatable 处理 REGISTER DATATABLE，请求体带 datatableName 与 apptableName.
func (s *DatatableService) RegisterDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	return s.RegisterDatatableWithPermissionTable(ctx, tx, cmd, cmd.String(paramPermissionTable))
}

// RegisterDatatableWithPermissionTable permissionTable 非空时作为权限分组.
func (s *DatatableService) RegisterDatatableWithPermissionTable(ctx context.Context, tx interfaces.Factory,
	cmd *jsoncommand.JsonCommand, permissionTable string,
) (*v1.CommandProcessingResult, error) {
	if err := cmd.CheckForUnsupportedParameters(paramDatatableName, paramApptableName, paramCategory, paramPermissionTable); err != nil {
		return nil, err
	}
	if err := s.Security.ValidateHasAnyPermission(ctx, v1.PermissionAllFunctions, PermissionRegister); err != nil {
		return nil, err
	}
	datatable := cmd.String(paramDatatableName)
	appTable := cmd.String(paramApptableName)
	category, err := cmd.Int(paramCategory)
	if err != nil {
		return nil, err
	}

	b := validation.NewDataValidatorBuilder("datatable")
	b.Parameter(paramDatatableName).Value(datatable).NotBlank()
	b.Parameter(paramApptableName).Value(appTable).NotBlank()
	if err := b.ThrowIfAny(); err != nil {
		return nil, err
	}

	reg := &v1.RegisteredTable{Name: datatable, ApplicationTable: appTable, Category: DefaultRegisteredCategory}
	if category != nil {
		reg.Category = *category
	}
	if err := s.register(ctx, tx, reg, permissionTable); err != nil {
		return nil, err
	}
	return &v1.CommandProcessingResult{CommandID: cmd.CommandID, ResourceIdentifier: datatable}, nil
}

// RegisterDatatableFor 内部调用，不做权限检查.
func (s *DatatableService) RegisterDatatableFor(ctx context.Context, tx interfaces.Factory, datatable, appTable string) error {
	return s.register(ctx, tx, &v1.RegisteredTable{
		Name: datatable, ApplicationTable: appTable, Category: DefaultRegisteredCategory,
	}, "")
}

func (s *DatatableService) register(ctx context.Context, tx interfaces.Factory, reg *v1.RegisteredTable, permissionTable string) error {
	if err := s.validateAppTable(ctx, tx, reg.ApplicationTable); err != nil {
		return err
	}
	if !tx.Datatables().TableExists(ctx, reg.Name) {
		return notFound(reg.Name)
	}
	if err := tx.Datatables().Register(ctx, reg); err != nil {
		return err
	}
	if err := checkNameFree(ctx, tx, reg.Name); err != nil {
		return err
	}
	if err := tx.Security().CreatePermissions(ctx, datatablePermissions(reg.Name, permissionTable)); err != nil {
		return err
	}
	log.L(ctx).Infow("数据表已注册", "datatable", reg.Name, "appTable", reg.ApplicationTable)
	return nil
}

// checkNameFree 数据表名不能与已有权限的实体重名，比较忽略大小写.
func checkNameFree(ctx context.Context, tx interfaces.Factory, datatable string) error {
	taken, err := tx.Security().ExistingPermissionCodes(ctx, permissionCodes(datatable))
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return errors.WithCode(code.ErrDatatableNameReserved,
			"Datatable name `%s` conflicts with existing permissions %v.", datatable, taken)
	}
	return nil
}

func (s *DatatableService) validateAppTable(ctx context.Context, tx interfaces.Factory, appTable string) error {
	if !s.Options.IsAllowed(appTable) {
		return errors.WithCode(code.ErrAppTableNotAllowed,
			"Datatables are not supported for application table `%s`.", appTable)
	}
	if !tx.Datatables().TableExists(ctx, appTable) {
		return errors.WithCode(code.ErrAppTableNotAllowed, "Application table `%s` does not exist.", appTable)
	}
	return nil
}

// DeregisterDatatable 处理 DEREGISTER DATATABLE，同时删除数据表的权限.
func (s *DatatableService) DeregisterDatatable(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand) (*v1.CommandProcessingResult, error) {
	if err := s.Security.ValidateHasAnyPermission(ctx, v1.PermissionAllFunctions, PermissionDeregister); err != nil {
		return nil, err
	}
	datatable := cmd.String(paramDatatableName)
	if datatable == "" {
		return nil, validation.NewDataValidatorBuilder("datatable").Parameter(paramDatatableName).
			Value(datatable).NotBlank().ThrowIfAny()
	}
	if err := s.deregister(ctx, tx, datatable); err != nil {
		return nil, err
	}
	return &v1.CommandProcessingResult{CommandID: cmd.CommandID, ResourceIdentifier: datatable}, nil
}

func (s *DatatableService) deregister(ctx context.Context, tx interfaces.Factory, datatable string) error {
	if err := tx.Security().DeletePermissions(ctx, permissionCodes(datatable)); err != nil {
		return err
	}
	if err := tx.Datatables().Deregister(ctx, datatable); err != nil {
		return err
	}
	log.L(ctx).Infow("数据表已注销", "datatable", datatable)
	return nil
}

var permissionActions = []struct {
	action  string
	checker bool
}{
	{"CREATE", true},
	{"READ", false},
	{"UPDATE", true},
	{"DELETE", true},
}

func datatablePermissions(datatable, grouping string) []v1.Permission {
	if grouping == "" {
		grouping = DefaultPermissionGrouping
	}
	var perms []v1.Permission
	for _, a := range permissionActions {
		perms = append(perms, v1.Permission{
			Grouping: grouping, Code: a.action + "_" + datatable, EntityName: datatable, ActionName: a.action,
		})
		if a.checker {
			perms = append(perms, v1.Permission{
				Grouping: grouping, Code: a.action + "_" + datatable + "_CHECKER", EntityName: datatable,
				ActionName: a.action + "_CHECKER",
			})
		}
	}
	return perms
}

func permissionCodes(datatable string) []string {
	perms := datatablePermissions(datatable, "")
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	return codes
}
