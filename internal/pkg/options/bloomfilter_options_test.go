package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBloomFilterOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *BloomFilterOptions)
		errs   int
	}{
		{"defaults", func(*BloomFilterOptions) {}, 0},
		{"load once", func(o *BloomFilterOptions) { o.RebuildInterval = 0 }, 0},
		{"rebuild too often", func(o *BloomFilterOptions) { o.RebuildInterval = time.Second }, 1},
		{"negative interval", func(o *BloomFilterOptions) { o.RebuildInterval = -time.Minute }, 1},
		{"zero capacity", func(o *BloomFilterOptions) { o.Capacity = 0 }, 1},
		{"rate too high", func(o *BloomFilterOptions) { o.FalsePositiveRate = 0.5 }, 1},
		{"all wrong", func(o *BloomFilterOptions) {
			o.Capacity = 0
			o.FalsePositiveRate = 0
			o.RebuildInterval = time.Second
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewBloomFilterOptions()
			tt.modify(o)
			assert.Len(t, o.Validate(), tt.errs)
		})
	}
}

func TestBloomFilterOptionsFlags(t *testing.T) {
	o := NewBloomFilterOptions()
	fs := pflag.NewFlagSet("bloom", pflag.ContinueOnError)
	o.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--bloom-filter.enabled=false",
		"--bloom-filter.rebuild-interval=30m",
	}))
	assert.False(t, o.Enabled)
	assert.Equal(t, 30*time.Minute, o.RebuildInterval)

	o.Capacity = 0
	o.FalsePositiveRate = 0
	o.Complete()
	assert.Empty(t, o.Validate())
}
