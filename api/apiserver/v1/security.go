package v1

import (
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// 全局权限编码
const (
	PermissionAllFunctions     = "ALL_FUNCTIONS"
	PermissionAllFunctionsRead = "ALL_FUNCTIONS_READ"
)

// AppUser 后台用户.
type AppUser struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Username  string `gorm:"column:username;type:varchar(100);not null;uniqueIndex:username_org"`
	Firstname string `gorm:"column:firstname;type:varchar(100)"`
	Lastname  string `gorm:"column:lastname;type:varchar(100)"`
	Email     string `gorm:"column:email;type:varchar(100)"`
	Password  string `gorm:"column:password;type:varchar(255);not null"`
	OfficeID  int64  `gorm:"column:office_id;not null"`
	Enabled   bool   `gorm:"column:enabled;not null;default:false"`
	IsDeleted bool   `gorm:"column:is_deleted;not null;default:false"`

	Roles []Role `gorm:"many2many:m_appuser_role;joinForeignKey:AppuserID;joinReferences:RoleID"`
}

func (AppUser) TableName() string {
	return "m_appuser"
}

// Compare 校验明文密码.
func (u *AppUser) Compare(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// EncryptPassword 生成 bcrypt 哈希.
func EncryptPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// Role 角色.
type Role struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string `gorm:"column:name;type:varchar(100);not null;uniqueIndex:unq_name"`
	Description string `gorm:"column:description;type:varchar(500)"`
	IsDisabled  bool   `gorm:"column:is_disabled;not null;default:false"`

	Permissions []Permission `gorm:"many2many:m_role_permission;joinForeignKey:RoleID;joinReferences:PermissionID"`
}

func (Role) TableName() string {
	return "m_role"
}

// Permission 权限，code 形如 CREATE_OFFICE 或 READ_extra_details.
type Permission struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Grouping        string `gorm:"column:grouping;type:varchar(45)"`
	Code            string `gorm:"column:code;type:varchar(100);not null;uniqueIndex:code"`
	EntityName      string `gorm:"column:entity_name;type:varchar(100)"`
	ActionName      string `gorm:"column:action_name;type:varchar(100)"`
	CanMakerChecker bool   `gorm:"column:can_maker_checker;not null;default:false"`
}

func (Permission) TableName() string {
	return "m_permission"
}

// PlatformUser 已认证用户，携带机构层级与展开后的权限编码.
type PlatformUser struct {
	*AppUser
	OfficeHierarchy string
	permissions     map[string]struct{}
}

// NewPlatformUser 汇总启用角色下的全部权限.
func NewPlatformUser(user *AppUser, officeHierarchy string) *PlatformUser {
	p := &PlatformUser{AppUser: user, OfficeHierarchy: officeHierarchy, permissions: map[string]struct{}{}}
	for _, role := range user.Roles {
		if role.IsDisabled {
			continue
		}
		for _, perm := range role.Permissions {
			p.permissions[perm.Code] = struct{}{}
		}
	}
	return p
}

// HasPermission 只判断是否直接持有该编码.
func (p *PlatformUser) HasPermission(code string) bool {
	_, ok := p.permissions[code]
	return ok
}

// HasAnyPermission 持有任意一个即可.
func (p *PlatformUser) HasAnyPermission(codes ...string) bool {
	for _, c := range codes {
		if p.HasPermission(c) {
			return true
		}
	}
	return false
}

// CanRead ALL_FUNCTIONS、ALL_FUNCTIONS_READ 或 READ_<resource>.
func (p *PlatformUser) CanRead(resource string) bool {
	return p.HasAnyPermission(PermissionAllFunctions, PermissionAllFunctionsRead, "READ_"+resource)
}

// CanExecute ALL_FUNCTIONS 或精确的命令权限.
func (p *PlatformUser) CanExecute(permissionCode string) bool {
	return p.HasAnyPermission(PermissionAllFunctions, permissionCode)
}

// CanAccessOffice 用户所在机构必须是目标机构本身或其上级.
func (p *PlatformUser) CanAccessOffice(hierarchy string) bool {
	return strings.HasPrefix(hierarchy, p.OfficeHierarchy)
}

// PermissionCodes 排序后的权限编码.
func (p *PlatformUser) PermissionCodes() []string {
	codes := make([]string, 0, len(p.permissions))
	for c := range p.permissions {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
