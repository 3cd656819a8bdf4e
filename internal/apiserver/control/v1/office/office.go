// Package office 机构接口：查询、模板以及通过命令源创建和修改机构.
package office

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	srvv1 "github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/apihelper"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/serializer"
	"github.com/maxiaolu1981/cretem/obs-mini/pkg/log"
)

var responseParameters = serializer.ParameterSet(v1.OfficeResponseParameters...)

type OfficeController struct {
	srv srvv1.ServiceManager
}

func NewOfficeController(srv srvv1.ServiceManager) *OfficeController {
	return &OfficeController{srv: srv}
}

// List GET /v1/offices
func (o *OfficeController) List(c *gin.Context) {
	settings := apihelper.Process(c.Request.URL.Query())
	offices, err := o.srv.Offices().RetrieveAllOffices(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, settings, offices, responseParameters)
}

// Template GET /v1/offices/template
func (o *OfficeController) Template(c *gin.Context) {
	settings := apihelper.Process(c.Request.URL.Query())
	office, err := o.srv.Offices().RetrieveNewOfficeTemplate(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, settings, office, responseParameters)
}

// Get GET /v1/offices/:officeId，template=true 时附带可选上级、机构类型和地区.
func (o *OfficeController) Get(c *gin.Context) {
	id, err := core.PathID(c, "officeId")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	settings := apihelper.Process(c.Request.URL.Query())
	ctx := c.Request.Context()
	office, err := o.srv.Offices().RetrieveOffice(ctx, id)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	if settings.Template {
		if office, err = o.srv.Offices().RetrieveWithTemplate(ctx, office); err != nil {
			core.WriteResponse(c, err, nil)
			return
		}
	}
	core.WriteSerialized(c, settings, office, responseParameters)
}

// Create POST /v1/offices
func (o *OfficeController) Create(c *gin.Context) {
	body, err := core.ReadBody(c)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	w := commandsource.NewCommandWrapperBuilder().CreateOffice().WithJSON(body).Build()
	o.logCommand(c, w)
}

// Update PUT /v1/offices/:officeId
func (o *OfficeController) Update(c *gin.Context) {
	id, err := core.PathID(c, "officeId")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	body, err := core.ReadBody(c)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	w := commandsource.NewCommandWrapperBuilder().UpdateOffice(id).WithJSON(body).Build()
	o.logCommand(c, w)
}

func (o *OfficeController) logCommand(c *gin.Context, w *commandsource.CommandWrapper) {
	result, err := o.srv.Commands().LogCommandSource(c.Request.Context(), w)
	if err != nil {
		log.L(c).Debugw("机构命令未执行", "action", w.ActionName, "error", err)
		core.WriteResponse(c, err, nil)
		return
	}
	settings := apihelper.Process(c.Request.URL.Query())
	core.WriteSerialized(c, settings, result, nil)
}
