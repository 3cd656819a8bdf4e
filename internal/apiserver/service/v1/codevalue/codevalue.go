// Package codevalue 代码值查询，经 redis 缓存.
package codevalue

import (
	"context"

	"github.com/jinzhu/copier"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

type CodeValueSrv interface {
	// RetrieveCodeValuesByCode 按 position 排序，代码不存在时返回空列表.
	RetrieveCodeValuesByCode(ctx context.Context, codeName string) ([]v1.CodeValueData, error)
	RetrieveCodeValue(ctx context.Context, id int64) (*v1.CodeValueData, error)
	// InvalidateCache codeName 为空时清空全部代码值缓存.
	InvalidateCache(ctx context.Context, codeName string)
}

type CodeValueService struct {
	Store interfaces.Factory
	Cache *cache.Store
}

var _ CodeValueSrv = (*CodeValueService)(nil)

func NewCodeValueService(store interfaces.Factory, c *cache.Store) *CodeValueService {
	return &CodeValueService{Store: store, Cache: c}
}

func (s *CodeValueService) RetrieveCodeValuesByCode(ctx context.Context, codeName string) ([]v1.CodeValueData, error) {
	return cache.GetOrLoad(ctx, s.Cache, cache.CodeValueKey(codeName), func(ctx context.Context) ([]v1.CodeValueData, error) {
		values, err := s.Store.CodeValues().ListByCodeName(ctx, codeName)
		if err != nil {
			return nil, err
		}
		return toData(values)
	})
}

func (s *CodeValueService) RetrieveCodeValue(ctx context.Context, id int64) (*v1.CodeValueData, error) {
	cv, err := s.Store.CodeValues().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data := v1.CodeValueData{ID: cv.ID, Name: cv.Value, Position: cv.Position, Description: cv.Description}
	return &data, nil
}

func (s *CodeValueService) InvalidateCache(ctx context.Context, codeName string) {
	if codeName == "" {
		s.Cache.DeletePattern(ctx, cache.CodeValuePattern())
		return
	}
	s.Cache.Delete(ctx, cache.CodeValueKey(codeName))
}

func toData(values []v1.CodeValue) ([]v1.CodeValueData, error) {
	out := make([]v1.CodeValueData, 0, len(values))
	for _, cv := range values {
		var d v1.CodeValueData
		if err := copier.Copy(&d, &cv); err != nil {
			return nil, errors.WithCode(code.ErrEncodingFailed, "转换代码值失败: %v", err)
		}
		d.Name = cv.Value
		out = append(out, d)
	}
	return out, nil
}
