package office

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/maxiaolu1981/cretem/obs-mini/api/apiserver/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/control/v1/controltest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func newEnv(t *testing.T, makerChecker bool) *controltest.Env {
	t.Helper()
	e := controltest.New(t, makerChecker)
	ctrl := NewOfficeController(e.Service)
	offices := e.V1.Group("/offices")
	offices.GET("", ctrl.List)
	offices.GET("/template", ctrl.Template)
	offices.POST("", ctrl.Create)
	offices.GET("/:officeId", ctrl.Get)
	offices.PUT("/:officeId", ctrl.Update)
	return e
}

func TestOfficeRoutes(t *testing.T) {
	e := newEnv(t, false)

	w := e.Do(http.MethodPost, "/v1/offices", `{"name":"Branch A","parentId":1,"openingDate":[2020,1,1]}`)
	var created v1.CommandProcessingResult
	controltest.Decode(t, w, &created)
	require.NotZero(t, created.ResourceID)
	assert.NotZero(t, created.CommandID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   int
	}{
		{"list", http.MethodGet, "/v1/offices", "", http.StatusOK, 0},
		{"template", http.MethodGet, "/v1/offices/template", "", http.StatusOK, 0},
		{"get", http.MethodGet, fmt.Sprintf("/v1/offices/%d", created.ResourceID), "", http.StatusOK, 0},
		{"get with template", http.MethodGet, "/v1/offices/1?template=true", "", http.StatusOK, 0},
		{"unknown office", http.MethodGet, "/v1/offices/404", "", http.StatusNotFound, code.ErrOfficeNotFound},
		{"bad id", http.MethodGet, "/v1/offices/abc", "", http.StatusBadRequest, code.ErrValidation},
		{
			"duplicate name", http.MethodPost, "/v1/offices",
			`{"name":"Branch A","parentId":1,"openingDate":[2020,1,1]}`,
			http.StatusForbidden, code.ErrOfficeDuplicateName,
		},
		{"malformed body", http.MethodPost, "/v1/offices", `{"name":`, http.StatusBadRequest, code.ErrInvalidJSON},
		{
			"rename", http.MethodPut, fmt.Sprintf("/v1/offices/%d", created.ResourceID),
			`{"name":"Branch B"}`, http.StatusOK, 0,
		},
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
			assert.NotEmpty(t, resp.Message)
		})
	}

	w = e.Do(http.MethodGet, fmt.Sprintf("/v1/offices/%d?fields=id,name", created.ResourceID), "")
	var got map[string]interface{}
	controltest.Decode(t, w, &got)
	assert.Equal(t, map[string]interface{}{"id": float64(created.ResourceID), "name": "Branch B"}, got)
}

func TestOfficeValidationErrors(t *testing.T) {
	e := newEnv(t, false)

	w := e.Do(http.MethodPost, "/v1/offices", `{"parentId":1,"openingDate":[2020,1,1]}`)
	resp := controltest.ErrorOf(t, w, http.StatusBadRequest)
	assert.Equal(t, code.ErrValidation, resp.Code)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "name", resp.Errors[0].ParameterName)
}

func TestOfficeRequiresUser(t *testing.T) {
	e := newEnv(t, false)
	e.User = ""

	resp := controltest.ErrorOf(t, e.Do(http.MethodGet, "/v1/offices", ""), http.StatusUnauthorized)
	assert.Equal(t, code.ErrTokenInvalid, resp.Code)
}

func TestOfficeCreatePendingApproval(t *testing.T) {
	e := newEnv(t, true)

	w := e.Do(http.MethodPost, "/v1/offices", `{"name":"Branch C","parentId":1,"openingDate":[2020,1,1]}`)
	var res v1.CommandProcessingResult
	controltest.Decode(t, w, &res)
	assert.True(t, res.RollbackTransaction)
	assert.Zero(t, res.ResourceID)

	var list []v1.OfficeData
	controltest.Decode(t, e.Do(http.MethodGet, "/v1/offices", ""), &list)
	assert.Len(t, list, 1)
}
