package server

import (
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
)

// Config GenericAPIServer 的构建配置.
type Config struct {
	Options *options.Options
}

func NewConfig(opts *options.Options) *Config {
	return &Config{Options: opts}
}

type CompleteConfig struct {
	*Config
}

// Complete 补全默认值，调用方通常已经执行过 Options.Complete.
func (c *Config) Complete() *CompleteConfig {
	if c.Options == nil {
		c.Options = options.NewOptions()
	}
	_ = c.Options.Complete()
	return &CompleteConfig{c}
}

func (c *CompleteConfig) New() (*GenericAPIServer, error) {
	return NewGenericAPIServer(c.Options)
}
