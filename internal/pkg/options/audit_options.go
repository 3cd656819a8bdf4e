package options

import (
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
)

// AuditOptions 控制审计功能的开关与落地方式。
type AuditOptions struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	BufferSize      int           `json:"bufferSize" mapstructure:"bufferSize"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" mapstructure:"shutdownTimeout"`
	LogFile         string        `json:"logFile" mapstructure:"logFile"`
	EnableMetrics   bool          `json:"enableMetrics" mapstructure:"enableMetrics"`
	// RecentBuffer 内存中保留的最近事件数，供管理接口查看
	RecentBuffer int `json:"recentBuffer" mapstructure:"recentBuffer"`
}

func NewAuditOptions() *AuditOptions {
	return &AuditOptions{
		Enabled:         true,
		BufferSize:      512,
		ShutdownTimeout: 5 * time.Second,
		LogFile:         "log/audit.log",
		EnableMetrics:   true,
		RecentBuffer:    256,
	}
}

func (o *AuditOptions) Complete() {
	if o.BufferSize <= 0 {
		o.BufferSize = 512
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 5 * time.Second
	}
	if o.LogFile == "" {
		o.LogFile = "log/audit.log"
	}
	if o.RecentBuffer <= 0 {
		o.RecentBuffer = 256
	}
}

func (o *AuditOptions) Validate() []error {
	if o.Enabled && o.BufferSize < 0 {
		return []error{field.Invalid(field.NewPath("audit", "bufferSize"), o.BufferSize, "缓冲队列大小不能为负数")}
	}
	return nil
}

func (o *AuditOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "audit.enabled", o.Enabled, "是否开启审计功能")
	fs.IntVar(&o.BufferSize, "audit.buffer-size", o.BufferSize, "审计事件缓冲队列大小")
	fs.DurationVar(&o.ShutdownTimeout, "audit.shutdown-timeout", o.ShutdownTimeout, "服务退出时等待审计队列耗尽的超时时间")
	fs.StringVar(&o.LogFile, "audit.log-file", o.LogFile, "审计文件落地路径(JSON Lines)")
	fs.BoolVar(&o.EnableMetrics, "audit.enable-metrics", o.EnableMetrics, "是否将审计事件写入指标监控")
	fs.IntVar(&o.RecentBuffer, "audit.recent-buffer", o.RecentBuffer, "内存中保留的最近审计事件数")
}
