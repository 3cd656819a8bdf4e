package log

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

const (
	flagLevel            = "log.level"
	flagFormat           = "log.format"
	flagEnableColor      = "log.enable-color"
	flagDisableCaller    = "log.disable-caller"
	flagOutputPaths      = "log.output-paths"
	flagErrorOutputPaths = "log.error-output-paths"
	flagDevelopment      = "log.development"
	flagName             = "log.name"

	consoleFormat = "console"
	jsonFormat    = "json"
)

// Options 日志配置项，映射配置文件中的 log 节点.
type Options struct {
	Level            string   `json:"level"              mapstructure:"level"`
	Format           string   `json:"format"             mapstructure:"format"`
	EnableColor      bool     `json:"enable-color"       mapstructure:"enable-color"`
	DisableCaller    bool     `json:"disable-caller"     mapstructure:"disable-caller"`
	OutputPaths      []string `json:"output-paths"       mapstructure:"output-paths"`
	ErrorOutputPaths []string `json:"error-output-paths" mapstructure:"error-output-paths"`
	Development      bool     `json:"development"        mapstructure:"development"`
	Name             string   `json:"name"               mapstructure:"name"`
}

// NewOptions 返回默认日志配置：info 级别，console 格式，输出到标准输出.
func NewOptions() *Options {
	return &Options{
		Level:            zapcore.InfoLevel.String(),
		Format:           consoleFormat,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

func (o *Options) Validate() []error {
	var errs []error

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(o.Level)); err != nil {
		errs = append(errs, err)
	}

	format := strings.ToLower(o.Format)
	if format != consoleFormat && format != jsonFormat {
		errs = append(errs, fmt.Errorf("不支持的日志格式: %q", o.Format))
	}

	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, flagLevel, o.Level, "最低日志输出级别 `LEVEL`.")
	fs.StringVar(&o.Format, flagFormat, o.Format, "日志输出格式 `FORMAT`，支持 console 或 json.")
	fs.BoolVar(&o.EnableColor, flagEnableColor, o.EnableColor, "console 格式下是否输出 ansi 颜色.")
	fs.BoolVar(&o.DisableCaller, flagDisableCaller, o.DisableCaller, "不在日志中输出调用位置.")
	fs.StringSliceVar(&o.OutputPaths, flagOutputPaths, o.OutputPaths, "日志输出路径.")
	fs.StringSliceVar(&o.ErrorOutputPaths, flagErrorOutputPaths, o.ErrorOutputPaths, "错误日志输出路径.")
	fs.BoolVar(&o.Development, flagDevelopment, o.Development, "开发模式，DPanic 级别会触发 panic.")
	fs.StringVar(&o.Name, flagName, o.Name, "日志器名称.")
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)
	return string(data)
}
