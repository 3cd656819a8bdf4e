package office

import (
	"context"

	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/jsoncommand"
)

var addressParameters = []string{
	ParamAddressName, ParamLine1, ParamLine2, ParamCity, ParamState,
	ParamCountry, ParamZip, ParamPhoneNumber, ParamEmail,
}

func hasAddress(cmd *jsoncommand.JsonCommand) bool {
	for _, p := range addressParameters {
		if cmd.ParameterExists(p) {
			return true
		}
	}
	return false
}

// applyAddress 把请求中的地址字段合并到 addr，返回有变化的字段.
func applyAddress(ctx context.Context, tx interfaces.Factory, cmd *jsoncommand.JsonCommand,
	f *officeForm, addr *v1.OfficeAddress,
) (map[string]interface{}, error) {
	changes := map[string]interface{}{}
	for _, field := range []struct {
		name   string
		target **string
	}{
		{ParamAddressName, &addr.AddressName},
		{ParamLine1, &addr.Line1},
		{ParamLine2, &addr.Line2},
		{ParamZip, &addr.Zip},
		{ParamPhoneNumber, &addr.PhoneNumber},
		{ParamEmail, &addr.Email},
	} {
		if cmd.IsChangeInString(field.name, deref(*field.target)) {
			*field.target = emptyToNil(cmd.StringPtr(field.name))
			changes[field.name] = deref(*field.target)
		}
	}
	for _, region := range []struct {
		name       string
		regionType string
		value      *int64
		target     **int64
	}{
		{ParamCity, v1.AddressTypeCity, f.CityID, &addr.CityID},
		{ParamState, v1.AddressTypeState, f.StateID, &addr.StateID},
		{ParamCountry, v1.AddressTypeCountry, f.CountryID, &addr.CountryID},
	} {
		if !cmd.IsChangeInLong(region.name, *region.target) {
			continue
		}
		if region.value != nil {
			r, err := tx.Addresses().GetRegion(ctx, *region.value)
			if err != nil {
				return nil, err
			}
			if r.RegionType != region.regionType {
				return nil, errors.WithCode(code.ErrCodeValueNotFound,
					"Address region %d is not a %s", *region.value, region.regionType)
			}
		}
		*region.target = region.value
		changes[region.name] = region.value
	}
	return changes, nil
}
