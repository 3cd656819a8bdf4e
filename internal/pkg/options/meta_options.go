package options

import (
	metav1 "github.com/maxiaolu1981/cretem/nexuscore/component-base/meta/v1"
	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
)

// MetaOptions 列表接口的分页默认值（审计、待审核命令）.
type MetaOptions struct {
	ListOptions *metav1.ListOptions
	// MaxLimit 单页上限，请求超过时截断
	MaxLimit int64 `json:"maxLimit" mapstructure:"maxLimit"`
}

func NewMetaOptions() *MetaOptions {
	timeout := int64(60)
	offset := int64(0)
	limit := int64(50)
	return &MetaOptions{
		ListOptions: &metav1.ListOptions{
			TimeoutSeconds: &timeout,
			Offset:         &offset,
			Limit:          &limit,
		},
		MaxLimit: 200,
	}
}

// Complete 填充默认值
func (o *MetaOptions) Complete() {
	if o.ListOptions == nil {
		o.ListOptions = &metav1.ListOptions{}
	}
	if o.ListOptions.TimeoutSeconds == nil {
		timeout := int64(60)
		o.ListOptions.TimeoutSeconds = &timeout
	}
	if o.ListOptions.Offset == nil {
		offset := int64(0)
		o.ListOptions.Offset = &offset
	}
	if o.ListOptions.Limit == nil {
		limit := int64(50)
		o.ListOptions.Limit = &limit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 200
	}
	if o.ListOptions.APIVersion == "" {
		o.ListOptions.APIVersion = "v1"
	}
}

// Validate 验证 MetaOptions 的参数有效性
func (o *MetaOptions) Validate() []error {
	errs := field.ErrorList{}
	path := field.NewPath("meta")
	if o.ListOptions != nil {
		if o.ListOptions.TimeoutSeconds != nil && *o.ListOptions.TimeoutSeconds < 0 {
			errs = append(errs, field.Invalid(path.Child("timeout"), *o.ListOptions.TimeoutSeconds, "超时时间不能为负数"))
		}
		if o.ListOptions.Offset != nil && *o.ListOptions.Offset < 0 {
			errs = append(errs, field.Invalid(path.Child("offset"), *o.ListOptions.Offset, "分页偏移量不能为负数"))
		}
		if o.ListOptions.Limit != nil && (*o.ListOptions.Limit < 0 || *o.ListOptions.Limit > o.MaxLimit) {
			errs = append(errs, field.Invalid(path.Child("limit"), *o.ListOptions.Limit, "每页条数必须在0到maxLimit之间"))
		}
	}
	agg := errs.ToAggregate()
	if agg == nil {
		return nil
	}
	return agg.Errors()
}

// Page 将请求中的分页参数归一化：缺省取默认值，超过上限截断.
func (o *MetaOptions) Page(offset, limit *int64) (int, int) {
	off, lim := *o.ListOptions.Offset, *o.ListOptions.Limit
	if offset != nil && *offset >= 0 {
		off = *offset
	}
	if limit != nil && *limit > 0 {
		lim = *limit
	}
	if lim > o.MaxLimit {
		lim = o.MaxLimit
	}
	return int(off), int(lim)
}

// AddFlags 将 MetaOptions 的参数添加到命令行标志集中
func (o *MetaOptions) AddFlags(fs *pflag.FlagSet) {
	if o == nil || fs == nil {
		return
	}
	o.Complete()
	fs.Int64Var(o.ListOptions.TimeoutSeconds, "meta.timeout", *o.ListOptions.TimeoutSeconds, "查询超时时间（秒），0表示不超时")
	fs.Int64Var(o.ListOptions.Offset, "meta.offset", *o.ListOptions.Offset, "默认分页偏移量")
	fs.Int64Var(o.ListOptions.Limit, "meta.limit", *o.ListOptions.Limit, "默认每页条数")
	fs.Int64Var(&o.MaxLimit, "meta.max-limit", o.MaxLimit, "每页条数上限")
}
