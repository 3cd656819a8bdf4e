package address

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
)

func TestListRegions(t *testing.T) {
	gdb := storetest.NewDB(t)
	country := v1.AddressRegion{RegionType: v1.AddressTypeCountry, Code: "IN", Name: "India"}
	require.NoError(t, gdb.Create(&country).Error)
	state := v1.AddressRegion{RegionType: v1.AddressTypeState, Code: "TS", Name: "Telangana", ParentID: &country.ID}
	require.NoError(t, gdb.Create(&state).Error)
	for _, c := range []v1.AddressRegion{
		{RegionType: v1.AddressTypeCity, Code: "WGL", Name: "Warangal", ParentID: &state.ID},
		{RegionType: v1.AddressTypeCity, Code: "HYD", Name: "Hyderabad", ParentID: &state.ID},
	} {
		c := c
		require.NoError(t, gdb.Create(&c).Error)
	}

	s := NewAddresses(gdb)
	ctx := context.Background()
	cities, err := s.ListRegions(ctx, v1.AddressTypeCity)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "Hyderabad", cities[0].Name)
	assert.Equal(t, state.ID, *cities[0].ParentID)

	got, err := s.GetRegion(ctx, country.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN", got.Code)
}
