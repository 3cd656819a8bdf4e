package interfaces

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

type CodeValueStore interface {
	GetCodeByName(ctx context.Context, name string) (*v1.Code, error)
	GetCode(ctx context.Context, id int64) (*v1.Code, error)
	// ListByCodeName 返回启用的代码值，按 position 排序.
	ListByCodeName(ctx context.Context, name string) ([]v1.CodeValue, error)
	ListByCodeID(ctx context.Context, codeID int64) ([]v1.CodeValue, error)
	Get(ctx context.Context, id int64) (*v1.CodeValue, error)
}
