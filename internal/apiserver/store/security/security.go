package security

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

type Security struct {
	db *gorm.DB
}

func NewSecurity(db *gorm.DB) *Security {
	return &Security{db: db}
}

func (s *Security) GetUserByUsername(ctx context.Context, username string) (*v1.AppUser, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *Security) GetUser(ctx context.Context, id int64) (*v1.AppUser, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Security) getUser(ctx context.Context, cond string, value interface{}) (*v1.AppUser, error) {
	var user v1.AppUser
	err := s.db.WithContext(ctx).
		Preload("Roles", "is_disabled = ?", false).
		Preload("Roles.Permissions").
		Where(cond, value).
		Where("is_deleted = ?", false).
		First(&user).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrUserNotFound, "User with %v does not exist", value)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询用户失败: %v", err)
	}
	return &user, nil
}

// GetPermission 权限不存在时返回 nil.
func (s *Security) GetPermission(ctx context.Context, permissionCode string) (*v1.Permission, error) {
	var p v1.Permission
	err := s.db.WithContext(ctx).Where("code = ?", permissionCode).First(&p).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询权限失败: %v", err)
	}
	return &p, nil
}

// ExistingPermissionCodes 返回 codes 中已存在的权限码，比较时忽略大小写.
func (s *Security) ExistingPermissionCodes(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	upper := make([]string, 0, len(codes))
	for _, c := range codes {
		upper = append(upper, strings.ToUpper(c))
	}
	var found []string
	err := s.db.WithContext(ctx).Model(&v1.Permission{}).
		Where("UPPER(code) IN ?", upper).
		Order("code").
		Pluck("code", &found).Error
	if err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询权限失败: %v", err)
	}
	return found, nil
}

// CreatePermissions 权限码重复时报错，调用方需先用 ExistingPermissionCodes 排除冲突.
func (s *Security) CreatePermissions(ctx context.Context, permissions []v1.Permission) error {
	if len(permissions) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Create(&permissions).Error
	if err != nil {
		return errors.WithCode(code.ErrDatabase, "创建权限失败: %v", err)
	}
	return nil
}

// DeletePermissions 先解除角色绑定再删除权限.
func (s *Security) DeletePermissions(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx)
	var ids []int64
	if err := db.Model(&v1.Permission{}).Where("code IN ?", codes).Pluck("id", &ids).Error; err != nil {
		return errors.WithCode(code.ErrDatabase, "查询权限失败: %v", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := db.Exec("DELETE FROM m_role_permission WHERE permission_id IN ?", ids).Error; err != nil {
		return errors.WithCode(code.ErrDatabase, "解除角色权限失败: %v", err)
	}
	if err := db.Where("id IN ?", ids).Delete(&v1.Permission{}).Error; err != nil {
		return errors.WithCode(code.ErrDatabase, "删除权限失败: %v", err)
	}
	return nil
}

func (s *Security) UsernamesByID(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []v1.AppUser
	if err := s.db.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询用户名失败: %v", err)
	}
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}
