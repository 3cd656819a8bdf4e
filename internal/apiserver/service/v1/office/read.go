package office

import (
	"context"
	"time"

	"github.com/samber/lo"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

func (s *OfficeService) RetrieveAllOffices(ctx context.Context) ([]v1.OfficeData, error) {
	if err := s.Security.ValidateHasReadPermission(ctx, v1.OfficeResourceName); err != nil {
		return nil, err
	}
	user, err := s.Security.AuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.officesUnder(ctx, user.OfficeHierarchy)
}

func (s *OfficeService) RetrieveOffice(ctx context.Context, id int64) (*v1.OfficeData, error) {
	if err := s.Security.ValidateHasReadPermission(ctx, v1.OfficeResourceName); err != nil {
		return nil, err
	}
	data, err := cache.GetOrLoad(ctx, s.Cache, cache.OfficeKey(id), func(ctx context.Context) (*v1.OfficeData, error) {
		office, err := s.Store.Offices().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		d, err := s.toData(ctx, *office, nil)
		if err != nil {
			return nil, err
		}
		addr, err := s.Store.Offices().GetAddress(ctx, id)
		if err != nil {
			return nil, err
		}
		d.Address = s.addressData(ctx, addr)
		return &d, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.Security.ValidateAccessToOffice(ctx, data.Hierarchy); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *OfficeService) RetrieveNewOfficeTemplate(ctx context.Context) (*v1.OfficeData, error) {
	offices, err := s.RetrieveAllOffices(ctx)
	if err != nil {
		return nil, err
	}
	types, err := s.CodeValues.RetrieveCodeValuesByCode(ctx, v1.OfficeTypeCode)
	if err != nil {
		return nil, err
	}
	cities, err := s.Addresses.RetrieveCityDetails(ctx)
	if err != nil {
		return nil, err
	}
	return &v1.OfficeData{
		OpeningDate:    jsoncommand.FormatLocalDate(time.Now()),
		AllowedParents: lo.Map(offices, func(o v1.OfficeData, _ int) v1.OfficeData { return v1.OfficeDropdownData(o) }),
		OfficeTypes:    types,
		CitiesData:     cities,
	}, nil
}

// RetrieveWithTemplate 可选上级排除机构自身及其下级.
func (s *OfficeService) RetrieveWithTemplate(ctx context.Context, office *v1.OfficeData) (*v1.OfficeData, error) {
	offices, err := s.RetrieveAllOffices(ctx)
	if err != nil {
		return nil, err
	}
	out := *office
	out.AllowedParents = lo.FilterMap(offices, func(o v1.OfficeData, _ int) (v1.OfficeData, bool) {
		if o.ID == office.ID || (len(o.Hierarchy) > len(office.Hierarchy) && o.Hierarchy[:len(office.Hierarchy)] == office.Hierarchy) {
			return v1.OfficeData{}, false
		}
		return v1.OfficeDropdownData(o), true
	})
	if out.OfficeTypes, err = s.CodeValues.RetrieveCodeValuesByCode(ctx, v1.OfficeTypeCode); err != nil {
		return nil, err
	}
	if out.CountryData, err = s.Addresses.RetrieveCountryDetails(ctx); err != nil {
		return nil, err
	}
	if out.StatesData, err = s.Addresses.RetrieveStateDetails(ctx); err != nil {
		return nil, err
	}
	if out.CitiesData, err = s.Addresses.RetrieveCityDetails(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *OfficeService) officesUnder(ctx context.Context, hierarchy string) ([]v1.OfficeData, error) {
	return cache.GetOrLoad(ctx, s.Cache, cache.OfficeTreeKey(hierarchy), func(ctx context.Context) ([]v1.OfficeData, error) {
		offices, err := s.Store.Offices().ListUnderHierarchy(ctx, hierarchy)
		if err != nil {
			return nil, err
		}
		names := lo.SliceToMap(offices, func(o v1.Office) (int64, string) { return o.ID, o.Name })
		out := make([]v1.OfficeData, 0, len(offices))
		for _, o := range offices {
			d, err := s.toData(ctx, o, names)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	})
}

// toData names 中找不到上级时单独查询.
func (s *OfficeService) toData(ctx context.Context, o v1.Office, names map[int64]string) (v1.OfficeData, error) {
	d := v1.OfficeData{
		ID:            o.ID,
		Name:          o.Name,
		NameDecorated: v1.DecorateName(o.Name, o.Hierarchy),
		ExternalID:    o.ExternalID,
		OpeningDate:   jsoncommand.FormatLocalDate(o.OpeningDate),
		Hierarchy:     o.Hierarchy,
		ParentID:      o.ParentID,
		OfficeType:    o.OfficeType,
	}
	if o.ParentID != nil {
		name, ok := names[*o.ParentID]
		if !ok {
			parent, err := s.Store.Offices().Get(ctx, *o.ParentID)
			if err != nil {
				return d, err
			}
			name = parent.Name
		}
		d.ParentName = name
	}
	if o.OfficeType != nil {
		types, err := s.CodeValues.RetrieveCodeValuesByCode(ctx, v1.OfficeTypeCode)
		if err != nil {
			return d, err
		}
		if t, ok := lo.Find(types, func(cv v1.CodeValueData) bool { return cv.ID == *o.OfficeType }); ok {
			d.OfficeTypeName = t.Name
		} else {
			log.L(ctx).Warnf("机构 %d 的类型 %d 不在代码 %s 中", o.ID, *o.OfficeType, v1.OfficeTypeCode)
		}
	}
	return d, nil
}

func (s *OfficeService) addressData(ctx context.Context, a *v1.OfficeAddress) *v1.OfficeAddressData {
	if a == nil {
		return nil
	}
	return &v1.OfficeAddressData{
		AddressName: a.AddressName,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.CityID,
		CityName:    s.Addresses.RegionName(ctx, a.CityID),
		State:       a.StateID,
		StateName:   s.Addresses.RegionName(ctx, a.StateID),
		Country:     a.CountryID,
		CountryName: s.Addresses.RegionName(ctx, a.CountryID),
		Zip:         a.Zip,
		PhoneNumber: a.PhoneNumber,
		Email:       a.Email,
	}
}
