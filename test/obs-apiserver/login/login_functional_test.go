package login

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/test/obs-apiserver/tools/framework"
)

const testDir = "test/obs-apiserver/login"

func TestMain(m *testing.M) {
	if !framework.Enabled() {
		fmt.Println("[skip] export OBS_APISERVER_E2E=1 to run login e2e tests")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type loginScenario struct {
	name        string
	description string
	run         func(t *testing.T, env *framework.Env) (framework.CaseResult, error)
}

func TestLoginFunctional(t *testing.T) {
	env := framework.NewEnv(t)
	outputDir := env.EnsureOutputDir(t, testDir)
	recorder := framework.NewRecorder(t, outputDir, "login")
	defer recorder.Flush(t)

	scenarios := []loginScenario{
		{
			name:        "success_json_body",
			description: "JSON 请求体登录返回令牌和权限",
			run: func(t *testing.T, env *framework.Env) (framework.CaseResult, error) {
				start := time.Now()
				result, resp, err := env.Login(env.AdminUsername, env.AdminPassword)
				if err != nil {
					return framework.CaseResult{}, err
				}
				checks := map[string]bool{
					"authenticated":    result.Authenticated,
					"token_issued":     result.Token != "",
					"username_matches": result.Username == env.AdminUsername,
					"has_permissions":  len(result.Permissions) > 0,
				}
				return caseOf("success_json_body", "JSON 请求体登录", resp, start, checks), nil
			},
		},
		{
			name:        "success_basic_header",
			description: "Basic 认证头登录",
			run: func(t *testing.T, env *framework.Env) (framework.CaseResult, error) {
				start := time.Now()
				result, resp, err := env.LoginBasic(env.AdminUsername, env.AdminPassword)
				if err != nil {
					return framework.CaseResult{}, err
				}
				checks := map[string]bool{"token_issued": result.Token != ""}
				return caseOf("success_basic_header", "Basic 认证头登录", resp, start, checks), nil
			},
		},
		{
			name:        "wrong_password",
			description: "密码错误返回 401",
			run: func(t *testing.T, env *framework.Env) (framework.CaseResult, error) {
				start := time.Now()
				_, resp, err := env.Login(env.AdminUsername, "not-the-password")
				if err == nil {
					return framework.CaseResult{}, fmt.Errorf("login with wrong password succeeded")
				}
				if resp == nil {
					return framework.CaseResult{}, err
				}
				checks := map[string]bool{
					"status_401": resp.HTTPStatus() == http.StatusUnauthorized,
					"code":       resp.Code == code.ErrPasswordIncorrect,
				}
				return caseOf("wrong_password", "密码错误", resp, start, checks), nil
			},
		},
		{
			name:        "logout_revokes_token",
			description: "注销后令牌不能再访问业务接口或刷新",
			run: func(t *testing.T, env *framework.Env) (framework.CaseResult, error) {
				start := time.Now()
				result := env.LoginOrFail(t, env.AdminUsername, env.AdminPassword)

				before, err := env.AuthorizedRequest(http.MethodGet, "/v1/offices", result.Token, nil)
				if err != nil {
					return framework.CaseResult{}, err
				}
				out, err := env.Logout(result.Token)
				if err != nil {
					return framework.CaseResult{}, err
				}
				after, err := env.AuthorizedRequest(http.MethodGet, "/v1/offices", result.Token, nil)
				if err != nil {
					return framework.CaseResult{}, err
				}
				refresh, err := env.Refresh(result.Token)
				if err != nil {
					return framework.CaseResult{}, err
				}
				checks := map[string]bool{
					"usable_before_logout": before.HTTPStatus() == http.StatusOK,
					"logout_ok":            out.HTTPStatus() == http.StatusOK,
					"rejected_after":       after.HTTPStatus() == http.StatusUnauthorized && after.Code == code.ErrTokenRevoked,
					"refresh_rejected":     refresh.HTTPStatus() == http.StatusUnauthorized,
				}
				return caseOf("logout_revokes_token", "注销吊销令牌", after, start, checks), nil
			},
		},
		{
			name:        "missing_token",
			description: "业务接口缺少认证头返回 401",
			run: func(t *testing.T, env *framework.Env) (framework.CaseResult, error) {
				start := time.Now()
				resp, err := env.AuthorizedRequest(http.MethodGet, "/v1/offices", "", nil)
				if err != nil {
					return framework.CaseResult{}, err
				}
				checks := map[string]bool{"status_401": resp.HTTPStatus() == http.StatusUnauthorized}
				return caseOf("missing_token", "缺少认证头", resp, start, checks), nil
			},
		},
	}

	for _, scenario := range scenarios {
		scenario := scenario
		t.Run(scenario.name, func(t *testing.T) {
			res, err := scenario.run(t, env)
			if err != nil {
				t.Fatalf("login scenario %s failed: %v", scenario.name, err)
			}
			res.Description = scenario.description
			recorder.AddCase(res)
			if !res.Success {
				t.Fatalf("login scenario %s checks failed: %+v", scenario.name, res.Checks)
			}
		})
	}
}

func caseOf(name, message string, resp *framework.APIResponse, start time.Time, checks map[string]bool) framework.CaseResult {
	success := true
	for _, ok := range checks {
		success = success && ok
	}
	return framework.CaseResult{
		Name:       name,
		Success:    success,
		HTTPStatus: resp.HTTPStatus(),
		Code:       resp.Code,
		Message:    message,
		DurationMS: time.Since(start).Milliseconds(),
		Checks:     checks,
	}
}
