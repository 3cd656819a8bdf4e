package bloomfilter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/options"
)

func TestNameFilter(t *testing.T) {
	names := []string{"extra_details", "client_kyc"}
	f := New(options.NewBloomFilterOptions(), func(context.Context) ([]string, error) { return names, nil })

	// 未加载前不拦截
	assert.True(t, f.MightContain("anything"))

	require.NoError(t, f.Rebuild(context.Background()))
	assert.True(t, f.MightContain("extra_details"))
	assert.False(t, f.MightContain("never_registered_table"))
	assert.False(t, f.LastUpdate().IsZero())

	f.Add("loan_extra")
	assert.True(t, f.MightContain("loan_extra"))
	f.Stop()
	f.Stop()
}

func TestNameFilterDisabled(t *testing.T) {
	opts := options.NewBloomFilterOptions()
	opts.Enabled = false
	f := New(opts, nil)
	require.NoError(t, f.Rebuild(context.Background()))
	assert.True(t, f.MightContain("x"))

	var nilFilter *NameFilter
	assert.True(t, nilFilter.MightContain("x"))
}
