package address

import (
	"context"
	stderrors "errors"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

type Addresses struct {
	db *gorm.DB
}

func NewAddresses(db *gorm.DB) *Addresses {
	return &Addresses{db: db}
}

func (a *Addresses) ListRegions(ctx context.Context, regionType string) ([]v1.AddressRegion, error) {
	var regions []v1.AddressRegion
	err := a.db.WithContext(ctx).Where("region_type = ?", regionType).Order("region_name").Find(&regions).Error
	if err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询%s字典失败: %v", regionType, err)
	}
	return regions, nil
}

func (a *Addresses) GetRegion(ctx context.Context, id int64) (*v1.AddressRegion, error) {
	var r v1.AddressRegion
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrCodeValueNotFound, "Address region with identifier %d does not exist", id)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询地址字典失败: %v", err)
	}
	return &r, nil
}
