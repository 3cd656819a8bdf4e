/*
obs-apiserver 主入口：
解析命令行参数 → options.NewOptions()
创建应用实例 → app.NewApp()
转换配置 → config.CreateConfigFromOptions()
运行服务器 → Run(cfg)
*/
package apiserver

import (
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/config"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/app"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

const commandDesc = `obs API 服务器提供机构、数据表与命令审核接口。
所有写操作经过命令源：校验权限、按需进入复核流程、在事务内执行并记录审计，
提交后通过 kafka 通知其他实例清理缓存。`

func NewApp(basename string) *app.App {
	opts := options.NewOptions()
	application := app.NewApp("obs API Server",
		basename,
		app.WithOptions(opts),
		app.WithDescription(commandDesc),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		log.Init(opts.Log)
		defer log.Flush()

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}
		return Run(cfg)
	}
}
