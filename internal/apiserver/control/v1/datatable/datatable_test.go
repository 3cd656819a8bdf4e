package datatable

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/control/v1/controltest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func newEnv(t *testing.T) *controltest.Env {
	t.Helper()
	e := controltest.New(t, false)
	ctrl := NewDatatableController(e.Service)
	datatables := e.V1.Group("/datatables")
	datatables.GET("", ctrl.List)
	datatables.POST("", ctrl.Create)
	datatables.POST("/deregister/:datatable", ctrl.Deregister)
	datatables.GET("/:datatable", ctrl.Get)
	datatables.DELETE("/:datatable", ctrl.Delete)
	datatables.GET("/:datatable/:apptableId", ctrl.GetEntries)
	datatables.POST("/:datatable/:apptableId", ctrl.CreateEntry)
	datatables.PUT("/:datatable/:apptableId", ctrl.UpdateEntryOneToOne)
	datatables.DELETE("/:datatable/:apptableId", ctrl.DeleteEntries)
	return e
}

const visitsTable = `{"datatableName":"visits","apptableName":"m_office",
	"columns":[{"name":"note","type":"String","length":20}]}`

func TestDatatableRoutes(t *testing.T) {
	e := newEnv(t)

	var created v1.CommandProcessingResult
	controltest.Decode(t, e.Do(http.MethodPost, "/v1/datatables", visitsTable), &created)
	assert.Equal(t, "visits", created.ResourceIdentifier)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   int
	}{
		{"list", http.MethodGet, "/v1/datatables?apptable=m_office", "", http.StatusOK, 0},
		{"get", http.MethodGet, "/v1/datatables/visits", "", http.StatusOK, 0},
		{"unregistered", http.MethodGet, "/v1/datatables/missing", "", http.StatusNotFound, code.ErrDatatableNotFound},
		{"duplicate", http.MethodPost, "/v1/datatables", visitsTable, http.StatusForbidden, code.ErrDatatableAlreadyExist},
		{
			"core entity name", http.MethodPost, "/v1/datatables",
			`{"datatableName":"OFFICE","apptableName":"m_office","columns":[{"name":"note","type":"Text"}]}`,
			http.StatusForbidden, code.ErrDatatableNameReserved,
		},
		{"create entry", http.MethodPost, "/v1/datatables/visits/1", `{"note":"hello"}`, http.StatusOK, 0},
		{
			"second one-to-one entry", http.MethodPost, "/v1/datatables/visits/1", `{"note":"again"}`,
			http.StatusForbidden, code.ErrDatatableEntryAlreadyExist,
		},
		{"update entry", http.MethodPut, "/v1/datatables/visits/1", `{"note":"bye"}`, http.StatusOK, 0},
		{"bad apptable id", http.MethodGet, "/v1/datatables/visits/abc", "", http.StatusBadRequest, code.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.Do(tt.method, tt.path, tt.body)
			if tt.code == 0 {
				assert.Equal(t, tt.status, w.Code, w.Body.String())
				return
			}
			resp := controltest.ErrorOf(t, w, tt.status)
			assert.Equal(t, tt.code, resp.Code)
		})
	}

	var rows v1.GenericResultsetData
	controltest.Decode(t, e.Do(http.MethodGet, "/v1/datatables/visits/1", ""), &rows)
	require.Len(t, rows.Data, 1)
	assert.Contains(t, rows.Data[0].Row, "bye")

	controltest.Decode(t, e.Do(http.MethodDelete, "/v1/datatables/visits/1", ""), &created)
	controltest.Decode(t, e.Do(http.MethodDelete, "/v1/datatables/visits", ""), &created)
	controltest.ErrorOf(t, e.Do(http.MethodGet, "/v1/datatables/visits", ""), http.StatusNotFound)
}

func TestDeregisterUnknownDatatable(t *testing.T) {
	e := newEnv(t)

	resp := controltest.ErrorOf(t, e.Do(http.MethodPost, "/v1/datatables/deregister/ghost", ""), http.StatusNotFound)
	assert.Equal(t, code.ErrDatatableNotFound, resp.Code)
}
