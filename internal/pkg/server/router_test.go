package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ginjwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
)

func TestRequireCredentials(t *testing.T) {
	engine := gin.New()
	engine.POST("/login", requireCredentials, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name        string
		contentType string
		basic       bool
		want        int
	}{
		{name: "basic", basic: true, want: http.StatusNoContent},
		{name: "json", contentType: "application/json; charset=utf-8", want: http.StatusNoContent},
		{name: "form", contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "none", want: http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			if tc.basic {
				req.SetBasicAuth("mifos", "password")
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestClassifyJWTError(t *testing.T) {
	assert.Equal(t, code.ErrExpired, classifyJWTError(ginjwt.ErrExpiredToken.Error()))
	assert.Equal(t, code.ErrMissingHeader, classifyJWTError(ginjwt.ErrEmptyAuthHeader.Error()))
	assert.Equal(t, code.ErrInvalidAuthHeader, classifyJWTError(ginjwt.ErrInvalidAuthHeader.Error()))
	assert.Equal(t, code.ErrPasswordIncorrect, classifyJWTError(ginjwt.ErrFailedAuthentication.Error()))
	assert.Equal(t, code.ErrTokenInvalid, classifyJWTError("token contains an invalid number of segments"))
}

func TestTokenExpiredOnly(t *testing.T) {
	assert.True(t, tokenExpiredOnly(&jwt.ValidationError{Errors: jwt.ValidationErrorExpired}))
	assert.False(t, tokenExpiredOnly(&jwt.ValidationError{Errors: jwt.ValidationErrorExpired | jwt.ValidationErrorSignatureInvalid}))
	assert.False(t, tokenExpiredOnly(&jwt.ValidationError{Errors: jwt.ValidationErrorMalformed}))
	assert.False(t, tokenExpiredOnly(ginjwt.ErrEmptyAuthHeader))
}

func TestLocalAddress(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", localAddress("0.0.0.0:8080"))
	assert.Equal(t, "127.0.0.1:8080", localAddress(":8080"))
	assert.Equal(t, "10.0.0.5:8080", localAddress("10.0.0.5:8080"))
	assert.Equal(t, "bad", localAddress("bad"))
}
