package options

import (
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
)

const (
	defaultNameFilterCapacity = 10000
	defaultNameFilterFPRate   = 0.001
	defaultNameFilterRebuild  = 10 * time.Minute
)

// BloomFilterOptions 已注册数据表名的预判过滤器.
type BloomFilterOptions struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Capacity 预计的数据表数量，实际数量更多时按实际数量重建
	Capacity          uint    `json:"capacity"            mapstructure:"capacity"`
	FalsePositiveRate float64 `json:"false-positive-rate" mapstructure:"false-positive-rate"`
	// RebuildInterval 从 x_registered_table 重建的周期，0 表示只在启动时加载
	RebuildInterval time.Duration `json:"rebuild-interval" mapstructure:"rebuild-interval"`
}

func NewBloomFilterOptions() *BloomFilterOptions {
	return &BloomFilterOptions{
		Enabled:           true,
		Capacity:          defaultNameFilterCapacity,
		FalsePositiveRate: defaultNameFilterFPRate,
		RebuildInterval:   defaultNameFilterRebuild,
	}
}

func (o *BloomFilterOptions) Complete() {
	if o.Capacity == 0 {
		o.Capacity = defaultNameFilterCapacity
	}
	if o.FalsePositiveRate == 0 {
		o.FalsePositiveRate = defaultNameFilterFPRate
	}
}

func (o *BloomFilterOptions) Validate() []error {
	errs := field.ErrorList{}
	path := field.NewPath("bloom-filter")
	if o.Capacity == 0 || o.Capacity > 1000000 {
		errs = append(errs, field.Invalid(path.Child("capacity"), o.Capacity, "必须在1到1000000之间"))
	}
	if o.FalsePositiveRate < 0.0001 || o.FalsePositiveRate > 0.1 {
		errs = append(errs, field.Invalid(path.Child("false-positive-rate"), o.FalsePositiveRate, "必须在0.0001到0.1之间"))
	}
	if o.RebuildInterval < 0 || (o.RebuildInterval > 0 && o.RebuildInterval < time.Minute) {
		errs = append(errs, field.Invalid(path.Child("rebuild-interval"), o.RebuildInterval, "为0或不小于1分钟"))
	}
	agg := errs.ToAggregate()
	if agg == nil {
		return nil
	}
	return agg.Errors()
}

func (o *BloomFilterOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "bloom-filter.enabled", o.Enabled,
		"关闭后数据表名的存在性判断全部查库")
	fs.UintVar(&o.Capacity, "bloom-filter.capacity", o.Capacity, "预计的数据表数量")
	fs.Float64Var(&o.FalsePositiveRate, "bloom-filter.false-positive-rate", o.FalsePositiveRate, "可接受的误判率")
	fs.DurationVar(&o.RebuildInterval, "bloom-filter.rebuild-interval", o.RebuildInterval,
		"从数据库重建过滤器的周期，0表示只在启动时加载")
}
