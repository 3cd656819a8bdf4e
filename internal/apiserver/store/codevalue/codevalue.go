package codevalue

import (
	"context"
	stderrors "errors"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

type CodeValues struct {
	db *gorm.DB
}

func NewCodeValues(db *gorm.DB) *CodeValues {
	return &CodeValues{db: db}
}

func (c *CodeValues) GetCodeByName(ctx context.Context, name string) (*v1.Code, error) {
	var cd v1.Code
	if err := c.db.WithContext(ctx).Where("code_name = ?", name).First(&cd).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrCodeNotFound, "Code with name `%s` does not exist", name)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询代码失败: %v", err)
	}
	return &cd, nil
}

func (c *CodeValues) GetCode(ctx context.Context, id int64) (*v1.Code, error) {
	var cd v1.Code
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&cd).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrCodeNotFound, "Code with identifier %d does not exist", id)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询代码失败: %v", err)
	}
	return &cd, nil
}

func (c *CodeValues) ListByCodeName(ctx context.Context, name string) ([]v1.CodeValue, error) {
	var values []v1.CodeValue
	err := c.db.WithContext(ctx).
		Joins("JOIN m_code c ON c.id = m_code_value.code_id").
		Where("c.code_name = ? AND m_code_value.is_active = ?", name, true).
		Order("m_code_value.order_position, m_code_value.id").
		Find(&values).Error
	if err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询代码值失败: %v", err)
	}
	return values, nil
}

func (c *CodeValues) ListByCodeID(ctx context.Context, codeID int64) ([]v1.CodeValue, error) {
	var values []v1.CodeValue
	err := c.db.WithContext(ctx).
		Where("code_id = ? AND is_active = ?", codeID, true).
		Order("order_position, id").
		Find(&values).Error
	if err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询代码值失败: %v", err)
	}
	return values, nil
}

func (c *CodeValues) Get(ctx context.Context, id int64) (*v1.CodeValue, error) {
	var cv v1.CodeValue
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&cv).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrCodeValueNotFound, "Code value with identifier %d does not exist", id)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询代码值失败: %v", err)
	}
	return &cv, nil
}
