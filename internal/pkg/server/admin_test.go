package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAdminServer(mode, token string) (*GenericAPIServer, *gin.Engine) {
	opts := options.NewOptions()
	opts.ServerRunOptions.Mode = mode
	opts.ServerRunOptions.AdminToken = token
	g := &GenericAPIServer{
		options:    opts,
		loginLimit: &loginLimit{limit: 5, window: time.Minute},
	}
	engine := gin.New()
	admin := engine.Group("/admin", g.adminGuard)
	admin.GET("/ratelimit/login", g.getLoginLimit)
	admin.POST("/ratelimit/login", g.setLoginLimit)
	return g, engine
}

func TestAdminGuardToken(t *testing.T) {
	_, engine := newAdminServer(gin.ReleaseMode, "s3cret")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ratelimit/login", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/ratelimit/login", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":5`)
}

func TestAdminGuardLocalOnlyInRelease(t *testing.T) {
	_, engine := newAdminServer(gin.ReleaseMode, "")

	req := httptest.NewRequest(http.MethodGet, "/admin/ratelimit/login", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/ratelimit/login", nil)
	req.RemoteAddr = "127.0.0.1:4567"
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetLoginLimit(t *testing.T) {
	g, engine := newAdminServer(gin.DebugMode, "")

	body := strings.NewReader(`{"limit":20,"window":"30s"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/ratelimit/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	limit, window := g.loginLimit.Get()
	assert.Equal(t, 20, limit)
	assert.Equal(t, 30*time.Second, window)

	for _, raw := range []string{`{"limit":1,"window":"soon"}`, `{"limit":-1}`} {
		req = httptest.NewRequest(http.MethodPost, "/admin/ratelimit/login", strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
	limit, _ = g.loginLimit.Get()
	assert.Equal(t, 20, limit)
}
