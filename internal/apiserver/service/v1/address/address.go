// Package address 国家、省、城市字典.
package address

import (
	"context"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
)

type AddressSrv interface {
	RetrieveCityDetails(ctx context.Context) ([]v1.AddressData, error)
	RetrieveStateDetails(ctx context.Context) ([]v1.AddressData, error)
	RetrieveCountryDetails(ctx context.Context) ([]v1.AddressData, error)
	// RegionName 取不到时返回空串.
	RegionName(ctx context.Context, id *int64) string
	InvalidateCache(ctx context.Context)
}

type AddressService struct {
	Store interfaces.Factory
	Cache *cache.Store
}

var _ AddressSrv = (*AddressService)(nil)

func NewAddressService(store interfaces.Factory, c *cache.Store) *AddressService {
	return &AddressService{Store: store, Cache: c}
}

func (s *AddressService) RetrieveCityDetails(ctx context.Context) ([]v1.AddressData, error) {
	return s.retrieve(ctx, v1.AddressTypeCity)
}

func (s *AddressService) RetrieveStateDetails(ctx context.Context) ([]v1.AddressData, error) {
	return s.retrieve(ctx, v1.AddressTypeState)
}

func (s *AddressService) RetrieveCountryDetails(ctx context.Context) ([]v1.AddressData, error) {
	return s.retrieve(ctx, v1.AddressTypeCountry)
}

func (s *AddressService) RegionName(ctx context.Context, id *int64) string {
	if id == nil {
		return ""
	}
	r, err := s.Store.Addresses().GetRegion(ctx, *id)
	if err != nil {
		return ""
	}
	return r.Name
}

func (s *AddressService) InvalidateCache(ctx context.Context) {
	s.Cache.Delete(ctx,
		cache.AddressKey(v1.AddressTypeCity),
		cache.AddressKey(v1.AddressTypeState),
		cache.AddressKey(v1.AddressTypeCountry))
}

func (s *AddressService) retrieve(ctx context.Context, regionType string) ([]v1.AddressData, error) {
	return cache.GetOrLoad(ctx, s.Cache, cache.AddressKey(regionType), func(ctx context.Context) ([]v1.AddressData, error) {
		regions, err := s.Store.Addresses().ListRegions(ctx, regionType)
		if err != nil {
			return nil, err
		}
		out := make([]v1.AddressData, 0, len(regions))
		for _, r := range regions {
			out = append(out, v1.AddressData{ID: r.ID, Code: r.Code, Name: r.Name, ParentID: r.ParentID})
		}
		return out, nil
	})
}
