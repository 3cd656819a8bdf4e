package apiserver

import (
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/config"
)

// Run 创建服务器并阻塞运行，直到收到退出信号.
func Run(cfg *config.Config) error {
	apiServer, err := createAPIServer(cfg)
	if err != nil {
		return err
	}
	return apiServer.PrepareRun().Run()
}
