package interfaces

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

type SecurityStore interface {
	// GetUserByUsername 预加载角色与权限.
	GetUserByUsername(ctx context.Context, username string) (*v1.AppUser, error)
	GetUser(ctx context.Context, id int64) (*v1.AppUser, error)
	GetPermission(ctx context.Context, code string) (*v1.Permission, error)
	ExistingPermissionCodes(ctx context.Context, codes []string) ([]string, error)
	CreatePermissions(ctx context.Context, permissions []v1.Permission) error
	DeletePermissions(ctx context.Context, codes []string) error
	UsernamesByID(ctx context.Context, ids []int64) (map[int64]string, error)
}
