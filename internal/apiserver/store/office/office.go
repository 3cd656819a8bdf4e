package office

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

type Offices struct {
	db *gorm.DB
}

func NewOffices(db *gorm.DB) *Offices {
	return &Offices{db: db}
}

func (o *Offices) Get(ctx context.Context, id int64) (*v1.Office, error) {
	var office v1.Office
	err := o.db.WithContext(ctx).Where("id = ?", id).First(&office).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithCode(code.ErrOfficeNotFound, "Office with identifier %d does not exist", id)
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询机构失败: %v", err)
	}
	return &office, nil
}

func (o *Offices) ListUnderHierarchy(ctx context.Context, hierarchy string) ([]v1.Office, error) {
	var offices []v1.Office
	err := o.db.WithContext(ctx).
		Where("hierarchy LIKE ?", hierarchy+"%").
		Order("hierarchy").
		Find(&offices).Error
	if err != nil {
		return nil, errors.WithCode(code.ErrDatabase, "查询机构列表失败: %v", err)
	}
	return offices, nil
}

func (o *Offices) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	return o.exists(ctx, "name = ?", name, excludeID)
}

func (o *Offices) ExistsByExternalID(ctx context.Context, externalID string, excludeID int64) (bool, error) {
	return o.exists(ctx, "external_id = ?", externalID, excludeID)
}

func (o *Offices) exists(ctx context.Context, cond string, value interface{}, excludeID int64) (bool, error) {
	var count int64
	q := o.db.WithContext(ctx).Model(&v1.Office{}).Where(cond, value)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, errors.WithCode(code.ErrDatabase, "机构唯一性检查失败: %v", err)
	}
	return count > 0, nil
}

func (o *Offices) Create(ctx context.Context, office *v1.Office) error {
	if err := o.db.WithContext(ctx).Create(office).Error; err != nil {
		return err
	}
	return nil
}

// Update 保存全部字段，hierarchy 由调用方维护.
func (o *Offices) Update(ctx context.Context, office *v1.Office) error {
	return o.db.WithContext(ctx).Save(office).Error
}

// ReplaceHierarchyPrefix 逐行改写下级机构的路径，兼容不同方言.
func (o *Offices) ReplaceHierarchyPrefix(ctx context.Context, oldPrefix, newPrefix string) (int64, error) {
	var descendants []v1.Office
	err := o.db.WithContext(ctx).
		Where("hierarchy LIKE ? AND hierarchy <> ?", oldPrefix+"%", oldPrefix).
		Find(&descendants).Error
	if err != nil {
		return 0, errors.WithCode(code.ErrDatabase, "查询下级机构失败: %v", err)
	}
	for _, d := range descendants {
		h := newPrefix + strings.TrimPrefix(d.Hierarchy, oldPrefix)
		if err := o.db.WithContext(ctx).Model(&v1.Office{}).Where("id = ?", d.ID).
			Update("hierarchy", h).Error; err != nil {
			return 0, errors.WithCode(code.ErrDatabase, "更新机构层级失败: %v", err)
		}
	}
	return int64(len(descendants)), nil
}

func (o *Offices) GetAddress(ctx context.Context, officeID int64) (*v1.OfficeAddress, error) {
	var addr v1.OfficeAddress
	err := o.db.WithContext(ctx).Where("office_id = ?", officeID).First(&addr).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.WithCode(code.ErrDatabase, "查询机构地址失败: %v", err)
	}
	return &addr, nil
}

func (o *Offices) SaveAddress(ctx context.Context, address *v1.OfficeAddress) error {
	err := o.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "office_id"}},
		UpdateAll: true,
	}).Create(address).Error
	if err != nil {
		return errors.WithCode(code.ErrDatabase, "保存机构地址失败: %v", err)
	}
	return nil
}
