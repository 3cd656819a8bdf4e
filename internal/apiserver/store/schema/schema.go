// Package schema 负责核心表结构迁移与初始数据.
package schema

import (
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

// Models 参与自动迁移的模型.
func Models() []interface{} {
	return []interface{}{
		&v1.Office{},
		&v1.OfficeAddress{},
		&v1.Code{},
		&v1.CodeValue{},
		&v1.AddressRegion{},
		&v1.CommandSource{},
		&v1.RegisteredTable{},
		&v1.TableColumnCodeMapping{},
		&v1.Permission{},
		&v1.Role{},
		&v1.AppUser{},
	}
}

// Migrate 只补充缺失的表和列，不修改已有数据.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return errors.WithMessage(err, "migrate core tables failed")
	}
	return nil
}

// Drop 删除全部核心表，测试使用.
func Drop(db *gorm.DB) error {
	tables := []interface{}{"m_appuser_role", "m_role_permission"}
	tables = append(tables, Models()...)
	return db.Migrator().DropTable(tables...)
}

// SeedOptions 初始数据参数.
type SeedOptions struct {
	HeadOfficeName string
	AdminUsername  string
	AdminPassword  string
}

// 系统内置权限
var builtinPermissions = []v1.Permission{
	{Grouping: "special", Code: v1.PermissionAllFunctions},
	{Grouping: "special", Code: v1.PermissionAllFunctionsRead},
	{Grouping: "special", Code: "REGISTER_DATATABLE", EntityName: "DATATABLE", ActionName: "REGISTER"},
	{Grouping: "special", Code: "DEREGISTER_DATATABLE", EntityName: "DATATABLE", ActionName: "DEREGISTER"},
	{Grouping: "organisation", Code: "READ_OFFICE", EntityName: "OFFICE", ActionName: "READ"},
	{Grouping: "organisation", Code: "CREATE_OFFICE", EntityName: "OFFICE", ActionName: "CREATE", CanMakerChecker: true},
	{Grouping: "organisation", Code: "CREATE_OFFICE_CHECKER", EntityName: "OFFICE", ActionName: "CREATE_CHECKER"},
	{Grouping: "organisation", Code: "UPDATE_OFFICE", EntityName: "OFFICE", ActionName: "UPDATE", CanMakerChecker: true},
	{Grouping: "organisation", Code: "UPDATE_OFFICE_CHECKER", EntityName: "OFFICE", ActionName: "UPDATE_CHECKER"},
	{Grouping: "configuration", Code: "CREATE_DATATABLE", EntityName: "DATATABLE", ActionName: "CREATE"},
	{Grouping: "configuration", Code: "UPDATE_DATATABLE", EntityName: "DATATABLE", ActionName: "UPDATE"},
	{Grouping: "configuration", Code: "DELETE_DATATABLE", EntityName: "DATATABLE", ActionName: "DELETE"},
	{Grouping: "authorisation", Code: "READ_MAKERCHECKER", EntityName: "MAKERCHECKER", ActionName: "READ"},
	{Grouping: "authorisation", Code: "READ_AUDIT", EntityName: "AUDIT", ActionName: "READ"},
}

// Seed 写入总部、超级管理员、机构类型代码等初始数据，重复执行无副作用.
func Seed(db *gorm.DB, opts SeedOptions) error {
	return db.Transaction(func(tx *gorm.DB) error {
		head := v1.Office{ID: 1, Hierarchy: ".", Name: opts.HeadOfficeName, OpeningDate: time.Date(2009, 1, 1, 0, 0, 0, 0, time.Local)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&head).Error; err != nil {
			return errors.WithMessage(err, "seed head office failed")
		}

		perms := append([]v1.Permission(nil), builtinPermissions...)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&perms).Error; err != nil {
			return errors.WithMessage(err, "seed permissions failed")
		}

		officeType := v1.Code{Name: v1.OfficeTypeCode, IsSystemDefined: true}
		if err := tx.Where(v1.Code{Name: v1.OfficeTypeCode}).FirstOrCreate(&officeType).Error; err != nil {
			return errors.WithMessage(err, "seed office type code failed")
		}
		for i, name := range []string{"Head Office", "Branch", "Agency"} {
			cv := v1.CodeValue{CodeID: officeType.ID, Value: name, Position: i + 1, IsActive: true}
			if err := tx.Where(v1.CodeValue{CodeID: officeType.ID, Value: name}).FirstOrCreate(&cv).Error; err != nil {
				return errors.WithMessage(err, "seed office type values failed")
			}
		}

		var all v1.Permission
		if err := tx.Where("code = ?", v1.PermissionAllFunctions).First(&all).Error; err != nil {
			return errors.WithMessage(err, "load ALL_FUNCTIONS failed")
		}
		role := v1.Role{Name: "Super user", Description: "全部权限"}
		if err := tx.Where(v1.Role{Name: role.Name}).FirstOrCreate(&role).Error; err != nil {
			return errors.WithMessage(err, "seed super user role failed")
		}
		if err := tx.Model(&role).Association("Permissions").Append(&all); err != nil {
			return errors.WithMessage(err, "bind ALL_FUNCTIONS failed")
		}

		if opts.AdminUsername == "" {
			return nil
		}
		var count int64
		if err := tx.Model(&v1.AppUser{}).Where("username = ?", opts.AdminUsername).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		hash, err := v1.EncryptPassword(opts.AdminPassword)
		if err != nil {
			return errors.WithMessage(err, "encrypt admin password failed")
		}
		admin := v1.AppUser{Username: opts.AdminUsername, Firstname: "App", Lastname: "Administrator",
			Password: hash, OfficeID: head.ID, Enabled: true, Roles: []v1.Role{role}}
		if err := tx.Omit("Roles.*").Create(&admin).Error; err != nil {
			return errors.WithMessage(err, "seed admin user failed")
		}
		log.Infof("初始化管理员账号: %s", opts.AdminUsername)
		return nil
	})
}
