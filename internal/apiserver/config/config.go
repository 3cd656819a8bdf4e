// Package config 保存 apiserver 最终运行所需的配置.
package config

import "github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"

// Config 嵌入 options.Options，存储服务最终运行所需的全部配置项.
type Config struct {
	*options.Options
}

// CreateConfigFromOptions 基于命令行或配置文件解析得到的选项创建运行配置.
func CreateConfigFromOptions(opts *options.Options) (*Config, error) {
	return &Config{opts}, nil
}
