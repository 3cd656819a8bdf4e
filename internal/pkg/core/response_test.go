package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/maxiaolu1981/cretem/nexuscore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWriteResponseValidationError(t *testing.T) {
	b := validation.NewDataValidatorBuilder("office")
	b.Parameter("name").Value("").NotBlank()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/offices", nil)
	WriteResponse(c, b.ThrowIfAny(), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, code.ErrValidation, resp.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "name", resp.Errors[0].ParameterName)
}

func TestWriteResponsePermissionDenied(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/offices", nil)
	WriteResponse(c, errors.WithCode(code.ErrPermissionDenied, "User has no authority to view offices"), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp ErrResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "User has no authority to view offices", resp.Message)
	assert.Empty(t, resp.Errors)
}

func TestWriteResponsePlainError(t *testing.T) {
	status, resp := ErrorResponseOf(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotZero(t, resp.Code)
}

func TestWriteResponseSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	WriteResponse(c, nil, map[string]int{"officeId": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"officeId":1}`, w.Body.String())
}
