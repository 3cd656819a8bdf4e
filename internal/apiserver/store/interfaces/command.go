package interfaces

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
)

// CommandFilter 命令查询条件，零值字段不参与过滤.
type CommandFilter struct {
	ActionName string
	EntityName string
	ResourceID int64
	MakerID    int64
	Statuses   []int
	Offset     int
	Limit      int
}

type CommandStore interface {
	Create(ctx context.Context, cmd *v1.CommandSource) error
	Update(ctx context.Context, cmd *v1.CommandSource) error
	// Transition 状态不是 from 时返回 ErrCommandNotPending.
	Transition(ctx context.Context, id int64, from, to int) error
	Get(ctx context.Context, id int64) (*v1.CommandSource, error)
	Delete(ctx context.Context, id int64) error
	DeleteWithStatus(ctx context.Context, id int64, status int) error
	List(ctx context.Context, filter CommandFilter) ([]v1.CommandSource, int64, error)
}
