package command

import (
	"context"
	stderrors "errors"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

const defaultLimit = 200

type Commands struct {
	db *gorm.DB
}

func NewCommands(db *gorm.DB) *Commands {
	return &Commands{db: db}
}

func (c *Commands) Create(ctx context.Context, cmd *v1.CommandSource) error {
	if err := c.db.WithContext(ctx).Create(cmd).Error; err != nil {
		return errors.WithCode(code.ErrDatabase, "保存命令失败: %v", err)
	}
	return nil
}

func (c *Commands) Update(ctx context.Context, cmd *v1.CommandSource) error {
	if err := c.db.WithContext(ctx).Save(cmd).Error; err != nil {
		return errors.WithCode(code.ErrDatabase, "更新命令失败: %v", err)
	}
	return nil
}

// Transition 当前状态为 from 时改为 to，状态已变化返回 ErrCommandNotPending.
// 在事务内调用时该行被锁定到提交，同一命令的并发复核只有一个能通过.
func (c *Commands) Transition(ctx context.Context, id int64, from, to int) error {
	result := c.db.WithContext(ctx).Model(&v1.CommandSource{}).
		Where("id = ? AND processing_result_enum = ?", id, from).
		Update("processing_result_enum", to)
	if result.Error != nil {
		return errors.WithCode(code.ErrDatabase, "更新命令状态失败: %v", result.Error)
	}
	if result.RowsAffected != 1 {
		return errors.WithCode(code.ErrCommandNotPending, "Audit with identifier %d is not awaiting approval", id)
	}
	return nil
}

func (c *Commands) Get(ctx context.Context, id int64) (*v1.CommandSource, error) {
	var cmd v1.CommandSource
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&cmd).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrCommandNotFound, "Audit with identifier %d does not exist", id)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询命令失败: %v", err)
	}
	return &cmd, nil
}

func (c *Commands) Delete(ctx context.Context, id int64) error {
	result := c.db.WithContext(ctx).Where("id = ?", id).Delete(&v1.CommandSource{})
	if result.Error != nil {
		return errors.WithCode(code.ErrDatabase, "删除命令失败: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.WithCode(code.ErrCommandNotFound, "Audit with identifier %d does not exist", id)
	}
	return nil
}

// DeleteWithStatus 只删除仍处于 status 的命令.
func (c *Commands) DeleteWithStatus(ctx context.Context, id int64, status int) error {
	result := c.db.WithContext(ctx).Where("id = ? AND processing_result_enum = ?", id, status).Delete(&v1.CommandSource{})
	if result.Error != nil {
		return errors.WithCode(code.ErrDatabase, "删除命令失败: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.WithCode(code.ErrCommandNotPending, "Audit with identifier %d is not awaiting approval", id)
	}
	return nil
}

// List 按 id 倒序分页.
func (c *Commands) List(ctx context.Context, filter interfaces.CommandFilter) ([]v1.CommandSource, int64, error) {
	q := c.db.WithContext(ctx).Model(&v1.CommandSource{})
	if filter.ActionName != "" {
		q = q.Where("action_name = ?", filter.ActionName)
	}
	if filter.EntityName != "" {
		q = q.Where("entity_name = ?", filter.EntityName)
	}
	if filter.ResourceID > 0 {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.MakerID > 0 {
		q = q.Where("maker_id = ?", filter.MakerID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("processing_result_enum IN ?", filter.Statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.WithCode(code.ErrDatabase, "统计命令失败: %v", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultLimit {
		limit = defaultLimit
	}
	var items []v1.CommandSource
	err := q.Order("id DESC").Offset(filter.Offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, 0, errors.WithCode(code.ErrDatabase, "查询命令失败: %v", err)
	}
	return items, total, nil
}
