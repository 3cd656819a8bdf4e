// Package datatable 数据表接口：表结构维护、注册以及数据行的增删改查.
package datatable

import (
	"strings"

	"github.com/gin-gonic/gin"

	srvv1 "github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/apihelper"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
)

type DatatableController struct {
	srv srvv1.ServiceManager
}

func NewDatatableController(srv srvv1.ServiceManager) *DatatableController {
	return &DatatableController{srv: srv}
}

// List GET /v1/datatables?apptable=
func (d *DatatableController) List(c *gin.Context) {
	settings := apihelper.Process(c.Request.URL.Query())
	tables, err := d.srv.Datatables().RetrieveDatatableNames(c.Request.Context(), strings.TrimSpace(c.Query("apptable")))
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, settings, tables, nil)
}

// Get GET /v1/datatables/:datatable
func (d *DatatableController) Get(c *gin.Context) {
	settings := apihelper.Process(c.Request.URL.Query())
	table, err := d.srv.Datatables().RetrieveSingleDatatable(c.Request.Context(), c.Param("datatable"))
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, settings, table, nil)
}

// Create POST /v1/datatables
func (d *DatatableController) Create(c *gin.Context) {
	d.withBody(c, func(b *commandsource.CommandWrapperBuilder) *commandsource.CommandWrapperBuilder {
		return b.CreateDatatable()
	})
}

// Update PUT /v1/datatables/:datatable
func (d *DatatableController) Update(c *gin.Context) {
	d.withBody(c, func(b *commandsource.CommandWrapperBuilder) *commandsource.CommandWrapperBuilder {
		return b.UpdateDatatable(c.Param("datatable"))
	})
}

// Delete DELETE /v1/datatables/:datatable
func (d *DatatableController) Delete(c *gin.Context) {
	w := commandsource.NewCommandWrapperBuilder().DeleteDatatable(c.Param("datatable")).Build()
	d.logCommand(c, w)
}

// Register POST /v1/datatables/register/:datatable/:apptable
func (d *DatatableController) Register(c *gin.Context) {
	d.withBody(c, func(b *commandsource.CommandWrapperBuilder) *commandsource.CommandWrapperBuilder {
		return b.RegisterDatatable(c.Param("datatable"), c.Param("apptable"))
	})
}

// Deregister POST /v1/datatables/deregister/:datatable
func (d *DatatableController) Deregister(c *gin.Context) {
	d.withBody(c, func(b *commandsource.CommandWrapperBuilder) *commandsource.CommandWrapperBuilder {
		return b.DeregisterDatatable(c.Param("datatable"))
	})
}

// withBody 读取请求体后交给 build 组装命令.
func (d *DatatableController) withBody(c *gin.Context,
	build func(*commandsource.CommandWrapperBuilder) *commandsource.CommandWrapperBuilder,
) {
	body, err := core.ReadBody(c)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	w := build(commandsource.NewCommandWrapperBuilder().WithJSON(body)).Build()
	d.logCommand(c, w)
}

func (d *DatatableController) logCommand(c *gin.Context, w *commandsource.CommandWrapper) {
	result, err := d.srv.Commands().LogCommandSource(c.Request.Context(), w)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, apihelper.Process(c.Request.URL.Query()), result, nil)
}
