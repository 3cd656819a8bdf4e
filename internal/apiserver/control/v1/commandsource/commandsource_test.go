package commandsource

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/control/v1/controltest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1/commandsource"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/userctx"
)

func newEnv(t *testing.T) *controltest.Env {
	t.Helper()
	e := controltest.New(t, true)
	ctrl := NewCommandSourceController(e.Service, e.Options)
	makercheckers := e.V1.Group("/makercheckers")
	makercheckers.GET("", ctrl.ListPending)
	makercheckers.POST("/:auditId", ctrl.Action)
	makercheckers.DELETE("/:auditId", ctrl.Delete)
	audits := e.V1.Group("/audits")
	audits.GET("", ctrl.ListAudits)
	audits.GET("/:auditId", ctrl.GetAudit)
	return e
}

// submit 以管理员身份提交一个待复核的建机构命令.
func submit(t *testing.T, e *controltest.Env, name string) int64 {
	t.Helper()
	ctx := userctx.WithUsername(context.Background(), controltest.AdminUsername)
	w := commandsource.NewCommandWrapperBuilder().CreateOffice().
		WithJSON(`{"name":"` + name + `","parentId":1,"openingDate":[2020,1,1]}`).Build()
	res, err := e.Service.Commands().LogCommandSource(ctx, w)
	require.NoError(t, err)
	require.True(t, res.RollbackTransaction)
	return res.CommandID
}

func TestMakerCheckerRoutes(t *testing.T) {
	e := newEnv(t)
	approved := submit(t, e, "Approved")
	rejected := submit(t, e, "Rejected")
	dropped := submit(t, e, "Dropped")

	var pending v1.CommandSourceList
	controltest.Decode(t, e.Do(http.MethodGet, "/v1/makercheckers?entityName=OFFICE", ""), &pending)
	assert.EqualValues(t, 3, pending.TotalFilteredRecords)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		code   int
	}{
		{"unknown command", http.MethodPost, fmt.Sprintf("/v1/makercheckers/%d?command=close", approved), http.StatusBadRequest, code.ErrUnsupportedCommand},
		{"approve", http.MethodPost, fmt.Sprintf("/v1/makercheckers/%d?command=approve", approved), http.StatusOK, 0},
		{"approve twice", http.MethodPost, fmt.Sprintf("/v1/makercheckers/%d?command=approve", approved), http.StatusConflict, code.ErrCommandNotPending},
		{"reject", http.MethodPost, fmt.Sprintf("/v1/makercheckers/%d?command=REJECT", rejected), http.StatusOK, 0},
		{"delete rejected", http.MethodDelete, fmt.Sprintf("/v1/makercheckers/%d", rejected), http.StatusConflict, code.ErrCommandNotPending},
		{"delete pending", http.MethodDelete, fmt.Sprintf("/v1/makercheckers/%d", dropped), http.StatusOK, 0},
		{"unknown audit", http.MethodGet, "/v1/audits/999", http.StatusNotFound, code.ErrCommandNotFound},
		{"bad audit id", http.MethodGet, "/v1/audits/0", http.StatusBadRequest, code.ErrValidation},
		{"bad page", http.MethodGet, "/v1/makercheckers?offset=abc", http.StatusBadRequest, code.ErrBind},
		{"bad processing result", http.MethodGet, "/v1/audits?processingResult=x", http.StatusBadRequest, code.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.Do(tt.method, tt.path, "")
			if tt.code == 0 {
				assert.Equal(t, tt.status, w.Code, w.Body.String())
				return
			}
			resp := controltest.ErrorOf(t, w, tt.status)
			assert.Equal(t, tt.code, resp.Code)
		})
	}

	var audits v1.CommandSourceList
	controltest.Decode(t, e.Do(http.MethodGet, "/v1/audits", ""), &audits)
	require.EqualValues(t, 1, audits.TotalFilteredRecords)
	assert.Equal(t, approved, audits.PageItems[0].ID)
	assert.Equal(t, controltest.AdminUsername, audits.PageItems[0].Checker)

	controltest.Decode(t, e.Do(http.MethodGet, fmt.Sprintf("/v1/audits?processingResult=%d", v1.CommandRejected), ""), &audits)
	require.EqualValues(t, 1, audits.TotalFilteredRecords)
	assert.Equal(t, rejected, audits.PageItems[0].ID)

	var one v1.CommandSourceData
	controltest.Decode(t, e.Do(http.MethodGet, fmt.Sprintf("/v1/audits/%d", approved), ""), &one)
	assert.Equal(t, "CREATE", one.ActionName)
	assert.Equal(t, map[string]interface{}{"name": "Approved", "parentId": float64(1), "openingDate": []interface{}{float64(2020), float64(1), float64(1)}}, one.CommandAsJSON)

	controltest.Decode(t, e.Do(http.MethodGet, "/v1/makercheckers", ""), &pending)
	assert.Zero(t, pending.TotalFilteredRecords)
}
