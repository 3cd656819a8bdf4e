// Package framework 为 obs-apiserver 端到端测试提供 HTTP 客户端和结果记录.
package framework

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// APIResponse 保存状态码及原始响应体，出错时解析出 code/message.
type APIResponse struct {
	Code       int             `json:"code"`
	Message    string          `json:"message"`
	Errors     json.RawMessage `json:"errors"`
	Raw        json.RawMessage `json:"-"`
	httpStatus int
}

func (r *APIResponse) HTTPStatus() int {
	if r == nil {
		return 0
	}
	return r.httpStatus
}

// Decode 把原始响应体解到 v.
func (r *APIResponse) Decode(v any) error {
	if r == nil || len(r.Raw) == 0 {
		return fmt.Errorf("empty response")
	}
	return json.Unmarshal(r.Raw, v)
}

type LoginResult struct {
	Username      string   `json:"username"`
	UserID        int64    `json:"userId"`
	OfficeID      int64    `json:"officeId"`
	Authenticated bool     `json:"authenticated"`
	Token         string   `json:"token"`
	Expire        string   `json:"expire"`
	Permissions   []string `json:"permissions"`
}

type Env struct {
	BaseURL        string
	AdminUsername  string
	AdminPassword  string
	AdminToken     string
	Client         *http.Client
	OutputRoot     string
	adminTokenOnce sync.Once
	adminTokenErr  error
}

const (
	defaultBaseURL   = "http://127.0.0.1:8080"
	defaultAdminUser = "mifos"
	defaultAdminPass = "password"
	requestTimeout   = 30 * time.Second
)

// Enabled 是否设置了 OBS_APISERVER_E2E.
func Enabled() bool {
	return os.Getenv("OBS_APISERVER_E2E") != ""
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	if !Enabled() {
		t.Fatalf("OBS_APISERVER_E2E not set")
	}

	env := &Env{
		BaseURL:       strings.TrimRight(getenv("OBS_APISERVER_BASEURL", defaultBaseURL), "/"),
		AdminUsername: getenv("OBS_APISERVER_ADMIN_USER", defaultAdminUser),
		AdminPassword: getenv("OBS_APISERVER_ADMIN_PASS", defaultAdminPass),
		Client:        &http.Client{Timeout: requestTimeout},
		OutputRoot:    "output",
	}
	if err := os.MkdirAll(env.OutputRoot, 0o755); err != nil {
		t.Fatalf("create output root: %v", err)
	}
	return env
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e *Env) newRequest(method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, e.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (e *Env) do(req *http.Request) (*APIResponse, error) {
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	apiResp := APIResponse{Raw: raw, httpStatus: resp.StatusCode}
	// 成功响应可能是数组，只有错误体需要解析 code
	if resp.StatusCode >= http.StatusBadRequest && len(raw) > 0 {
		if err := json.Unmarshal(raw, &apiResp); err != nil {
			return nil, fmt.Errorf("decode api response: %w: %s", err, string(raw))
		}
	}
	return &apiResp, nil
}

// Login 以 JSON 请求体登录.
func (e *Env) Login(username, password string) (*LoginResult, *APIResponse, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, nil, err
	}
	req, err := e.newRequest(http.MethodPost, "/login", body)
	if err != nil {
		return nil, nil, err
	}
	return e.login(req)
}

// LoginBasic 以 Basic 认证头登录.
func (e *Env) LoginBasic(username, password string) (*LoginResult, *APIResponse, error) {
	req, err := e.newRequest(http.MethodPost, "/login", nil)
	if err != nil {
		return nil, nil, err
	}
	req.SetBasicAuth(username, password)
	return e.login(req)
}

func (e *Env) login(req *http.Request) (*LoginResult, *APIResponse, error) {
	apiResp, err := e.do(req)
	if err != nil {
		return nil, nil, err
	}
	if apiResp.httpStatus != http.StatusOK {
		return nil, apiResp, fmt.Errorf("unexpected status: %d", apiResp.httpStatus)
	}
	var result LoginResult
	if err := apiResp.Decode(&result); err != nil {
		return nil, apiResp, fmt.Errorf("decode login data: %w", err)
	}
	return &result, apiResp, nil
}

func (e *Env) LoginOrFail(t *testing.T, username, password string) *LoginResult {
	t.Helper()
	result, resp, err := e.Login(username, password)
	if err != nil {
		t.Fatalf("login %s failed: %v (status=%d code=%d)", username, err, resp.HTTPStatus(), codeOf(resp))
	}
	return result
}

func codeOf(resp *APIResponse) int {
	if resp == nil {
		return 0
	}
	return resp.Code
}

// AdminTokenOrFail 首次调用时登录管理员.
func (e *Env) AdminTokenOrFail(t *testing.T) string {
	t.Helper()
	e.adminTokenOnce.Do(func() {
		result, _, err := e.Login(e.AdminUsername, e.AdminPassword)
		if err != nil {
			e.adminTokenErr = fmt.Errorf("admin login: %w", err)
			return
		}
		if result.Token == "" {
			e.adminTokenErr = fmt.Errorf("admin login returned empty token")
			return
		}
		e.AdminToken = result.Token
	})
	if e.adminTokenErr != nil {
		t.Fatalf("%v", e.adminTokenErr)
	}
	return e.AdminToken
}

func (e *Env) AuthorizedRequest(method, path, token string, payload any) (*APIResponse, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, err
		}
	}
	req, err := e.newRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(req)
}

func (e *Env) Logout(token string) (*APIResponse, error) {
	return e.AuthorizedRequest(http.MethodPost, "/logout", token, nil)
}

func (e *Env) Refresh(token string) (*APIResponse, error) {
	return e.AuthorizedRequest(http.MethodPost, "/refresh", token, nil)
}

func (e *Env) EnsureOutputDir(t *testing.T, testDir string) string {
	t.Helper()
	dir := filepath.Join(e.OutputRoot, testDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create output dir: %v", err)
	}
	return dir
}
