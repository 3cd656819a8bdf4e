package main

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/maxiaolu1981/cretem/nexuscore/component-base/version"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver"
	_ "github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func main() {
	if len(os.Getenv("GOMAXPROCS")) == 0 {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}
	debug.SetGCPercent(100)
	debug.SetMemoryLimit(2 << 30)

	version.CheckVersionAndExit()
	apiserver.NewApp("obs-apiserver").Run()
}
