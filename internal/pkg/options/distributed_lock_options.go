package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// 业务锁名称
const (
	LockDatatableDDL = "datatable:ddl"
)

// DistributedLockOptions 分布式锁全局配置入口
// 统一管理分布式锁的全局开关、默认行为，以及各业务的差异化配置
type DistributedLockOptions struct {
	// Enabled 全局总开关，false 时只使用进程内锁（开发环境常用）
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// DefaultTimeout 全局默认锁超时时间，防止进程崩溃导致死锁
	DefaultTimeout time.Duration `json:"default-timeout" mapstructure:"default-timeout"`

	// DefaultRetry 获取锁失败时的重试策略
	DefaultRetry *RetryOptions `json:"default-retry" mapstructure:"default-retry"`

	// KeyPrefix 锁键统一前缀
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Business 按业务名称配置差异化策略
	Business map[string]*BusinessLockOptions `json:"business" mapstructure:"business"`

	// RedisDownAction Redis不可用时的动作
	// "local"=退化为进程内锁，"fail"=直接返回失败
	RedisDownAction string `json:"redis-down-action" mapstructure:"redis-down-action"`
}

// RetryOptions 锁操作重试配置
type RetryOptions struct {
	// MaxCount 最大重试次数，0=不重试
	MaxCount int `json:"max-count" mapstructure:"max-count"`

	// Interval 重试间隔时间
	Interval time.Duration `json:"interval" mapstructure:"interval"`

	// BackoffType "fixed"=固定间隔，"exponential"=指数退避
	BackoffType string `json:"backoff-type" mapstructure:"backoff-type"`
}

// BusinessLockOptions 业务级锁配置
type BusinessLockOptions struct {
	// Timeout 覆盖全局DefaultTimeout
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Retry 为nil则使用全局配置
	Retry *RetryOptions `json:"retry" mapstructure:"retry"`
}

// NewDistributedLockOptions 创建分布式锁配置的默认实例
func NewDistributedLockOptions() *DistributedLockOptions {
	return &DistributedLockOptions{
		Enabled:        true,
		DefaultTimeout: 5 * time.Second,
		DefaultRetry: &RetryOptions{
			MaxCount:    3,
			Interval:    100 * time.Millisecond,
			BackoffType: "fixed",
		},
		KeyPrefix: "obs:lock:",
		Business: map[string]*BusinessLockOptions{
			// DDL 可能较慢，锁持有时间放宽
			LockDatatableDDL: {
				Timeout: 60 * time.Second,
				Retry: &RetryOptions{
					MaxCount:    10,
					Interval:    200 * time.Millisecond,
					BackoffType: "exponential",
				},
			},
		},
		RedisDownAction: "local",
	}
}

// Complete 补全配置选项
func (d *DistributedLockOptions) Complete() {
	if d.DefaultTimeout <= 0 {
		d.DefaultTimeout = 5 * time.Second
	}
	if d.DefaultRetry == nil {
		d.DefaultRetry = &RetryOptions{}
	}
	if d.DefaultRetry.Interval <= 0 {
		d.DefaultRetry.Interval = 100 * time.Millisecond
	}
	if d.DefaultRetry.BackoffType == "" {
		d.DefaultRetry.BackoffType = "fixed"
	}
	if d.KeyPrefix == "" {
		d.KeyPrefix = "obs:lock:"
	}
	if d.RedisDownAction == "" {
		d.RedisDownAction = "local"
	}
	if d.Business == nil {
		d.Business = map[string]*BusinessLockOptions{}
	}
}

// Validate 检查所有配置项是否符合规则，返回所有错误（不中断）
func (d *DistributedLockOptions) Validate() []error {
	var errors []error

	if d.DefaultTimeout <= 0 {
		errors = append(errors, fmt.Errorf("分布式锁默认超时时间必须大于0"))
	}
	validateRetry := func(name string, r *RetryOptions) {
		if r == nil {
			return
		}
		if r.MaxCount < 0 {
			errors = append(errors, fmt.Errorf("%s重试次数不能为负数", name))
		}
		if r.MaxCount > 0 && r.Interval <= 0 {
			errors = append(errors, fmt.Errorf("%s重试次数>0时，重试间隔必须大于0", name))
		}
		if r.BackoffType != "fixed" && r.BackoffType != "exponential" {
			errors = append(errors, fmt.Errorf("%s重试策略必须为'fixed'或'exponential'", name))
		}
	}
	validateRetry("默认", d.DefaultRetry)
	for name, business := range d.Business {
		if business.Timeout < 0 {
			errors = append(errors, fmt.Errorf("业务[%s]锁超时时间不能为负数", name))
		}
		validateRetry(fmt.Sprintf("业务[%s]", name), business.Retry)
	}
	if d.RedisDownAction != "local" && d.RedisDownAction != "fail" {
		errors = append(errors, fmt.Errorf("Redis不可用时动作必须为'local'或'fail'"))
	}
	return errors
}

// Resolve 返回业务实际生效的超时与重试配置
func (d *DistributedLockOptions) Resolve(business string) (time.Duration, RetryOptions) {
	timeout, retry := d.DefaultTimeout, *d.DefaultRetry
	if b, ok := d.Business[business]; ok && b != nil {
		if b.Timeout > 0 {
			timeout = b.Timeout
		}
		if b.Retry != nil {
			retry = *b.Retry
		}
	}
	return timeout, retry
}

// AddFlags 支持通过命令行参数（如--distributed-lock.enabled=true）覆盖配置文件
func (d *DistributedLockOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&d.Enabled, "distributed-lock.enabled", d.Enabled, "是否启用分布式锁")
	fs.DurationVar(&d.DefaultTimeout, "distributed-lock.default-timeout", d.DefaultTimeout,
		"全局默认锁超时时间（如5s）")
	fs.IntVar(&d.DefaultRetry.MaxCount, "distributed-lock.default-retry.max-count", d.DefaultRetry.MaxCount,
		"全局默认锁重试次数")
	fs.DurationVar(&d.DefaultRetry.Interval, "distributed-lock.default-retry.interval", d.DefaultRetry.Interval,
		"全局默认锁重试间隔")
	fs.StringVar(&d.DefaultRetry.BackoffType, "distributed-lock.default-retry.backoff-type", d.DefaultRetry.BackoffType,
		"全局默认重试策略（fixed/exponential）")
	fs.StringVar(&d.KeyPrefix, "distributed-lock.key-prefix", d.KeyPrefix, "锁键前缀")
	fs.StringVar(&d.RedisDownAction, "distributed-lock.redis-down-action", d.RedisDownAction,
		"Redis不可用时的动作（local/fail）")
}
