package interfaces

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

type OfficeStore interface {
	Get(ctx context.Context, id int64) (*v1.Office, error)
	// ListUnderHierarchy 返回 hierarchy 本身及其下级机构，按 hierarchy 排序.
	ListUnderHierarchy(ctx context.Context, hierarchy string) ([]v1.Office, error)
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	ExistsByExternalID(ctx context.Context, externalID string, excludeID int64) (bool, error)
	Create(ctx context.Context, office *v1.Office) error
	Update(ctx context.Context, office *v1.Office) error
	// ReplaceHierarchyPrefix 把 oldPrefix 开头的下级机构路径改为 newPrefix 开头，返回影响行数.
	ReplaceHierarchyPrefix(ctx context.Context, oldPrefix, newPrefix string) (int64, error)

	GetAddress(ctx context.Context, officeID int64) (*v1.OfficeAddress, error)
	SaveAddress(ctx context.Context, address *v1.OfficeAddress) error
}
