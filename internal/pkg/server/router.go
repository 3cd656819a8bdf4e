/*
路由：
 1. 系统路由 /healthz /version /metrics，开启 profiling 时 /debug/pprof
 2. 认证路由 POST /login /refresh /logout
 3. 管理路由 /admin，见 admin.go
 4. 业务路由 /v1，Basic 或 Bearer 自动认证
    /offices /datatables /surveys /makercheckers /audits
*/
package server

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/component-base/version"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/control/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/control/v1/datatable"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/control/v1/office"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/auth/keys"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware/common"
)

func (g *GenericAPIServer) installRoutes() {
	// 系统路由（最先注册，无需认证）
	g.installSystemRoutes()
	g.installAuthRoutes()
	g.installAdminRoutes()
	g.installAPIRoutes()
}

func (g *GenericAPIServer) installSystemRoutes() {
	if g.options.ServerRunOptions.Healthz {
		g.GET("/healthz", func(c *gin.Context) {
			core.WriteResponse(c, nil, map[string]string{"status": "ok"})
		})
	}
	if g.options.FeatureOptions.EnableMetrics {
		prometheus := ginprometheus.NewPrometheus("gin")
		// 路径参数合并，避免 id 造成标签爆炸
		prometheus.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if p := c.FullPath(); p != "" {
				return p
			}
			return "unknown"
		}
		prometheus.Use(g.Engine)
	}
	if g.options.FeatureOptions.EnableProfiling {
		pprof.Register(g.Engine)
	}
	g.GET("/version", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(version.Get().ToJSON()))
	})
}

func (g *GenericAPIServer) installAuthRoutes() {
	limiter := common.LoginRateLimiter(g.redis, keys.LoginLimitPrefix(), g.loginLimit.Get)
	g.POST("/login", limiter, requireCredentials, g.jwt.LoginHandler)
	g.POST("/refresh", g.refreshGuard, g.jwt.RefreshHandler)
	g.POST("/logout", g.jwt.MiddlewareFunc(), middleware.UserContext(), g.logout)
}

func (g *GenericAPIServer) installAPIRoutes() {
	g.NoRoute(func(c *gin.Context) {
		core.WriteResponse(c, errors.WithCode(code.ErrPageNotFound, "Page not found: %s %s",
			c.Request.Method, c.Request.URL.Path), nil)
	})

	auto := g.newAutoAuth()
	v1 := g.Group("/v1", audit.Middleware(), auto.AuthFunc(), middleware.UserContext())
	{
		officeController := office.NewOfficeController(g.service)
		offices := v1.Group("/offices")
		{
			offices.GET("", officeController.List)
			offices.GET("/template", officeController.Template)
			offices.POST("", officeController.Create)
			offices.GET("/:officeId", officeController.Get)
			offices.PUT("/:officeId", officeController.Update)
		}

		datatableController := datatable.NewDatatableController(g.service)
		datatables := v1.Group("/datatables")
		{
			datatables.GET("", datatableController.List)
			datatables.POST("", datatableController.Create)
			datatables.POST("/register/:datatable/:apptable", datatableController.Register)
			datatables.POST("/deregister/:datatable", datatableController.Deregister)
			datatables.GET("/:datatable", datatableController.Get)
			datatables.PUT("/:datatable", datatableController.Update)
			datatables.DELETE("/:datatable", datatableController.Delete)

			datatables.GET("/:datatable/:apptableId", datatableController.GetEntries)
			datatables.POST("/:datatable/:apptableId", datatableController.CreateEntry)
			datatables.PUT("/:datatable/:apptableId", datatableController.UpdateEntryOneToOne)
			datatables.DELETE("/:datatable/:apptableId", datatableController.DeleteEntries)

			datatables.GET("/:datatable/:apptableId/:datatableId", datatableController.GetEntry)
			datatables.PUT("/:datatable/:apptableId/:datatableId", datatableController.UpdateEntryOneToMany)
			datatables.DELETE("/:datatable/:apptableId/:datatableId", datatableController.DeleteEntry)
		}
		v1.POST("/surveys/:datatable/:apptableId", datatableController.CreateSurveyEntry)

		commandController := commandsource.NewCommandSourceController(g.service, g.options)
		makercheckers := v1.Group("/makercheckers")
		{
			makercheckers.GET("", commandController.ListPending)
			makercheckers.POST("/:auditId", commandController.Action)
			makercheckers.DELETE("/:auditId", commandController.Delete)
		}
		audits := v1.Group("/audits")
		{
			audits.GET("", commandController.ListAudits)
			audits.GET("/:auditId", commandController.GetAudit)
		}
	}
}

// requireCredentials 没有 Basic 头时请求体必须是 JSON.
func requireCredentials(c *gin.Context) {
	if strings.HasPrefix(c.GetHeader("Authorization"), "Basic ") {
		c.Next()
		return
	}
	if !strings.HasPrefix(strings.ToLower(c.ContentType()), "application/json") {
		core.WriteResponse(c, errors.WithCode(code.ErrUnsupportedMediaType,
			"登录请求需要 Basic 认证头或 application/json 请求体"), nil)
		return
	}
	c.Next()
}
