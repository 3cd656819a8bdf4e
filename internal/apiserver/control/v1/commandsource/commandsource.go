// Package commandsource 命令审核接口：待复核命令的复核、拒绝、删除以及审计查询.
package commandsource

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	metav1 "github.com/maxiaolu1981/cretem/nexuscore/component-base/meta/v1"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	srvv1 "github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/interfaces"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/apihelper"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
)

const (
	commandApprove = "approve"
	commandReject  = "reject"
)

type CommandSourceController struct {
	srv  srvv1.ServiceManager
	opts *options.Options
}

func NewCommandSourceController(srv srvv1.ServiceManager, opts *options.Options) *CommandSourceController {
	return &CommandSourceController{srv: srv, opts: opts}
}

// ListPending GET /v1/makercheckers
func (m *CommandSourceController) ListPending(c *gin.Context) {
	filter, err := m.filterOf(c)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	settings := apihelper.Process(c.Request.URL.Query())
	list, err := m.srv.Commands().RetrievePending(c.Request.Context(), filter, settings.IncludeJSON)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, settings, list, nil)
}

// Action POST /v1/makercheckers/:auditId?command=approve|reject
func (m *CommandSourceController) Action(c *gin.Context) {
	id, err := core.PathID(c, "auditId")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	cmds := m.srv.Commands()
	ctx := c.Request.Context()
	switch strings.ToLower(c.Query("command")) {
	case commandApprove:
		result, err := cmds.ApproveEntry(ctx, id)
		core.WriteResponse(c, err, result)
	case commandReject:
		result, err := cmds.RejectEntry(ctx, id)
		core.WriteResponse(c, err, result)
	default:
		core.WriteResponse(c, errors.WithCode(code.ErrUnsupportedCommand,
			"Unrecognized query string param command: %s", c.Query("command")), nil)
	}
}

// Delete DELETE /v1/makercheckers/:auditId
func (m *CommandSourceController) Delete(c *gin.Context) {
	id, err := core.PathID(c, "auditId")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	result, err := m.srv.Commands().DeleteEntry(c.Request.Context(), id)
	core.WriteResponse(c, err, result)
}

// ListAudits GET /v1/audits?offset=&limit=
func (m *CommandSourceController) ListAudits(c *gin.Context) {
	filter, err := m.filterOf(c)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	if raw := c.Query("processingResult"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			core.WriteResponse(c, errors.WithCode(code.ErrValidation, "processingResult 不是整数: %s", raw), nil)
			return
		}
		filter.Statuses = []int{status}
	}
	settings := apihelper.Process(c.Request.URL.Query())
	list, err := m.srv.Commands().RetrieveAudits(c.Request.Context(), filter, settings.IncludeJSON)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, settings, list, nil)
}

// GetAudit GET /v1/audits/:auditId
func (m *CommandSourceController) GetAudit(c *gin.Context) {
	id, err := core.PathID(c, "auditId")
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	data, err := m.srv.Commands().RetrieveAudit(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, err, nil)
		return
	}
	core.WriteSerialized(c, apihelper.Process(c.Request.URL.Query()), data, nil)
}

func (m *CommandSourceController) filterOf(c *gin.Context) (interfaces.CommandFilter, error) {
	var page metav1.ListOptions
	if err := c.ShouldBindQuery(&page); err != nil {
		return interfaces.CommandFilter{}, errors.WithCode(code.ErrBind, "分页参数错误: %s", err.Error())
	}
	resourceID, err := core.QueryInt64(c, "resourceId")
	if err != nil {
		return interfaces.CommandFilter{}, err
	}
	makerID, err := core.QueryInt64(c, "makerId")
	if err != nil {
		return interfaces.CommandFilter{}, err
	}
	offset, limit := m.opts.MetaOptions.Page(page.Offset, page.Limit)
	return interfaces.CommandFilter{
		ActionName: strings.ToUpper(strings.TrimSpace(c.Query("actionName"))),
		EntityName: strings.TrimSpace(c.Query("entityName")),
		ResourceID: resourceID,
		MakerID:    makerID,
		Offset:     offset,
		Limit:      limit,
	}, nil
}
