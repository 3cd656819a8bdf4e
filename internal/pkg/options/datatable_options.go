package options

import (
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
)

// DatatableOptions 扩展数据表相关配置.
type DatatableOptions struct {
	// AllowedAppTables 允许挂接扩展数据表的核心表
	AllowedAppTables []string `json:"allowed-app-tables" mapstructure:"allowed-app-tables"`
	// DDLLockTTL 结构变更锁的持有上限
	DDLLockTTL time.Duration `json:"ddl-lock-ttl" mapstructure:"ddl-lock-ttl"`
	// CacheTTL 已注册数据表描述在redis中的缓存时间
	CacheTTL time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`
}

func NewDatatableOptions() *DatatableOptions {
	return &DatatableOptions{
		AllowedAppTables: []string{"m_client", "m_group", "m_center", "m_loan", "m_office", "m_savings_account", "m_product_loan"},
		DDLLockTTL:       60 * time.Second,
		CacheTTL:         10 * time.Minute,
	}
}

// IsAllowed 判断应用表是否允许挂接.
func (o *DatatableOptions) IsAllowed(appTable string) bool {
	for _, t := range o.AllowedAppTables {
		if t == appTable {
			return true
		}
	}
	return false
}

func (o *DatatableOptions) Validate() []error {
	errs := field.ErrorList{}
	path := field.NewPath("datatable")
	if len(o.AllowedAppTables) == 0 {
		errs = append(errs, field.Required(path.Child("allowed-app-tables"), "至少允许一个应用表"))
	}
	if o.DDLLockTTL <= 0 {
		errs = append(errs, field.Invalid(path.Child("ddl-lock-ttl"), o.DDLLockTTL, "必须大于0"))
	}
	if o.CacheTTL < 0 {
		errs = append(errs, field.Invalid(path.Child("cache-ttl"), o.CacheTTL, "不能为负数"))
	}
	agg := errs.ToAggregate()
	if agg == nil {
		return nil
	}
	return agg.Errors()
}

func (o *DatatableOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.AllowedAppTables, "datatable.allowed-app-tables", o.AllowedAppTables,
		"允许挂接扩展数据表的核心表")
	fs.DurationVar(&o.DDLLockTTL, "datatable.ddl-lock-ttl", o.DDLLockTTL, "数据表结构变更锁的超时时间")
	fs.DurationVar(&o.CacheTTL, "datatable.cache-ttl", o.CacheTTL, "已注册数据表描述的缓存时间，0表示不缓存")
}
