package address

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/cache"
)

func TestRetrieveRegions(t *testing.T) {
	db := storetest.NewDB(t)
	country := v1.AddressRegion{RegionType: v1.AddressTypeCountry, Code: "CN", Name: "China"}
	require.NoError(t, db.Create(&country).Error)
	state := v1.AddressRegion{RegionType: v1.AddressTypeState, Code: "ZJ", Name: "Zhejiang", ParentID: &country.ID}
	require.NoError(t, db.Create(&state).Error)
	require.NoError(t, db.Create(&v1.AddressRegion{RegionType: v1.AddressTypeCity, Code: "HZ", Name: "Hangzhou", ParentID: &state.ID}).Error)

	s := NewAddressService(store.NewDatastore(db), cache.New(nil, "address", 0))
	ctx := context.Background()

	cities, err := s.RetrieveCityDetails(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "Hangzhou", cities[0].Name)
	assert.Equal(t, state.ID, *cities[0].ParentID)

	states, err := s.RetrieveStateDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ZJ", states[0].Code)

	countries, err := s.RetrieveCountryDetails(ctx)
	require.NoError(t, err)
	assert.Nil(t, countries[0].ParentID)

	assert.Equal(t, "Zhejiang", s.RegionName(ctx, &state.ID))
	assert.Equal(t, "", s.RegionName(ctx, nil))
	s.InvalidateCache(ctx)
}
