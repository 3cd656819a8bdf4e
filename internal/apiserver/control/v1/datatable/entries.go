package datatable

import (
	"github.com/gin-gonic/gin"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/apihelper"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
)

// GetEntries GET /v1/datatables/:datatable/:apptableId?order=
func (d *DatatableController) GetEntries(c *gin.Context) {
	d.retrieve(c, false)
}

// GetEntry GET /v1/datatables/:datatable/:apptableId/:datatableId
func (d *DatatableController) GetEntry(c *gin.Context) {
	d.retrieve(c, true)
}

func (d *DatatableController) retrieve(c *gin.Context, single bool) {
	appTableID, err := core.PathID(c, "apptableId")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	var id int64
	if single {
		if id, err = core.PathID(c, "datatableId"); err != nil {
			core.WriteResponse(c, err, nil)
			return
		}
	}
	settings := apihelper.Process(c.Request.URL.Query())
	data, err := d.srv.Datatables().RetrieveDataTableGenericResultSet(c.Request.Context(),
		c.Param("datatable"), appTableID, c.Query("order"), id)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, settings, data, nil)
}

// CreateEntry POST /v1/datatables/:datatable/:apptableId
func (d *DatatableController) CreateEntry(c *gin.Context) {
	d.entryCommand(c, false, func(b *commandsource.CommandWrapperBuilder, dt string, appTableID, _ int64) {
		b.CreateDatatableEntry(dt, appTableID)
	})
}

// UpdateEntryOneToOne PUT /v1/datatables/:datatable/:apptableId
func (d *DatatableController) UpdateEntryOneToOne(c *gin.Context) {
	d.entryCommand(c, false, func(b *commandsource.CommandWrapperBuilder, dt string, appTableID, _ int64) {
		b.UpdateDatatableEntryOneToOne(dt, appTableID)
	})
}

// UpdateEntryOneToMany PUT /v1/datatables/:datatable/:apptableId/:datatableId
func (d *DatatableController) UpdateEntryOneToMany(c *gin.Context) {
	d.entryCommand(c, true, func(b *commandsource.CommandWrapperBuilder, dt string, appTableID, id int64) {
		b.UpdateDatatableEntryOneToMany(dt, appTableID, id)
	})
}

// DeleteEntries DELETE /v1/datatables/:datatable/:apptableId
func (d *DatatableController) DeleteEntries(c *gin.Context) {
	d.entryCommand(c, false, func(b *commandsource.CommandWrapperBuilder, dt string, appTableID, _ int64) {
		b.DeleteDatatableEntries(dt, appTableID)
	})
}

// DeleteEntry DELETE /v1/datatables/:datatable/:apptableId/:datatableId
func (d *DatatableController) DeleteEntry(c *gin.Context) {
	d.entryCommand(c, true, func(b *commandsource.CommandWrapperBuilder, dt string, appTableID, id int64) {
		b.DeleteDatatableEntry(dt, appTableID, id)
	})
}

// CreateSurveyEntry POST /v1/surveys/:datatable/:apptableId
func (d *DatatableController) CreateSurveyEntry(c *gin.Context) {
	d.entryCommand(c, false, func(b *commandsource.CommandWrapperBuilder, dt string, appTableID, _ int64) {
		b.CreatePPIEntry(dt, appTableID)
	})
}

func (d *DatatableController) entryCommand(c *gin.Context, withID bool,
	build func(b *commandsource.CommandWrapperBuilder, datatable string, appTableID, datatableID int64),
) {
	appTableID, err := core.PathID(c, "apptableId")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	var id int64
	if withID {
		if id, err = core.PathID(c, "datatableId"); err != nil {
			core.WriteResponse(c, err, nil)
			return
		}
	}
	body, err := core.ReadBody(c)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	b := commandsource.NewCommandWrapperBuilder().WithJSON(body)
	build(b, c.Param("datatable"), appTableID, id)
	d.logCommand(c, b.Build())
}
