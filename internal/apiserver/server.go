package apiserver

import (
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/config"
	genericapiserver "github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/server"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

type apiServer struct {
	genericAPIServer *genericapiserver.GenericAPIServer
}

type preparedAPIServer struct {
	*apiServer
}

func (a *apiServer) PrepareRun() preparedAPIServer {
	log.Infof("路由注册完成，共 %d 条", len(a.genericAPIServer.Routes()))
	return preparedAPIServer{a}
}

func (p preparedAPIServer) Run() error {
	return p.genericAPIServer.Run()
}

func createAPIServer(cfg *config.Config) (*apiServer, error) {
	genericServer, err := genericapiserver.NewConfig(cfg.Options).Complete().New()
	if err != nil {
		return nil, err
	}
	return &apiServer{genericAPIServer: genericServer}, nil
}
