package options

import (
	"time"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/validation/field"
	"github.com/spf13/pflag"
)

// CommandOptions 命令处理相关配置.
type CommandOptions struct {
	// MakerCheckerEnabled 全局复核开关，还需权限本身开启复核才生效
	MakerCheckerEnabled bool `json:"maker-checker-enabled" mapstructure:"maker-checker-enabled"`
	// PublishEvents 命令处理完成后是否发布事件
	PublishEvents bool `json:"publish-events" mapstructure:"publish-events"`
	// PublishTimeout 单个事件的投递等待上限
	PublishTimeout time.Duration `json:"publish-timeout" mapstructure:"publish-timeout"`
}

func NewCommandOptions() *CommandOptions {
	return &CommandOptions{
		MakerCheckerEnabled: false,
		PublishEvents:       true,
		PublishTimeout:      3 * time.Second,
	}
}

func (o *CommandOptions) Validate() []error {
	if o.PublishEvents && o.PublishTimeout <= 0 {
		return []error{field.Invalid(field.NewPath("command", "publish-timeout"), o.PublishTimeout, "必须大于0")}
	}
	return nil
}

func (o *CommandOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.MakerCheckerEnabled, "command.maker-checker-enabled", o.MakerCheckerEnabled,
		"是否启用全局复核（maker-checker）")
	fs.BoolVar(&o.PublishEvents, "command.publish-events", o.PublishEvents, "命令处理完成后是否发布事件")
	fs.DurationVar(&o.PublishTimeout, "command.publish-timeout", o.PublishTimeout, "事件投递等待上限")
}
