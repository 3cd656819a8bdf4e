// Package controltest 控制器测试用的 gin 引擎，服务层接在 sqlite 上.
package controltest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/options"
	srvv1 "github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/service/v1"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/apiserver/store/storetest"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/audit"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/core"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware"
	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/middleware/common"
)

const AdminUsername = "mifos"

type Env struct {
	Engine  *gin.Engine
	V1      *gin.RouterGroup
	Service *srvv1.ServiceSrv
	Store   *store.Datastore
	Options *options.Options

	// User 之后的请求以该用户身份执行，空串表示未认证
	User string
}

func New(t *testing.T, makerChecker bool) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ds := store.NewDatastore(storetest.NewDB(t))
	am, err := audit.NewManager(audit.Config{
		Enabled:      true,
		Sinks:        []audit.Sink{audit.SinkFunc{SinkName: "discard"}},
		RecentBuffer: 16,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Shutdown(context.Background()) })

	opts := options.NewOptions()
	opts.CommandOptions.MakerCheckerEnabled = makerChecker
	srv, err := srvv1.NewService(ds, nil, opts, nil, am)
	require.NoError(t, err)

	e := &Env{Engine: gin.New(), Service: srv, Store: ds, Options: opts, User: AdminUsername}
	e.V1 = e.Engine.Group("/v1", func(c *gin.Context) {
		if e.User != "" {
			c.Set(common.UsernameKey, e.User)
		}
		c.Next()
	}, middleware.UserContext())
	return e
}

// Do 发送请求，body 非空时按 JSON 提交.
func (e *Env) Do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.Engine.ServeHTTP(w, req)
	return w
}

// Decode 解析成功响应.
func Decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// ErrorOf 解析错误响应并校验状态码.
func ErrorOf(t *testing.T, w *httptest.ResponseRecorder, status int) core.ErrResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	var resp core.ErrResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
