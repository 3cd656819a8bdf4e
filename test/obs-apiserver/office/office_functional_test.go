package office

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/maxiaolu1981/cretem/obs-mini/internal/pkg/code"
	"github.com/maxiaolu1981/cretem/obs-mini/test/obs-apiserver/tools/framework"
)

const testDir = "test/obs-apiserver/office"

func TestMain(m *testing.M) {
	if !framework.Enabled() {
		fmt.Println("[skip] export OBS_APISERVER_E2E=1 to run office e2e tests")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type officeItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Hierarchy string `json:"hierarchy"`
	ParentID  *int64 `json:"parentId"`
}

type commandResult struct {
	CommandID  int64 `json:"commandId"`
	OfficeID   int64 `json:"officeId"`
	ResourceID int64 `json:"resourceId"`
}

func TestOfficeFunctional(t *testing.T) {
	env := framework.NewEnv(t)
	token := env.AdminTokenOrFail(t)
	outputDir := env.EnsureOutputDir(t, testDir)
	recorder := framework.NewRecorder(t, outputDir, "office")
	defer recorder.Flush(t)

	name := fmt.Sprintf("e2e-branch-%d", time.Now().UnixNano())
	var created int64

	t.Run("list_contains_head_office", func(t *testing.T) {
		start := time.Now()
		resp, err := env.AuthorizedRequest(http.MethodGet, "/v1/offices", token, nil)
		if err != nil {
			t.Fatal(err)
		}
		var offices []officeItem
		if err := resp.Decode(&offices); err != nil {
			t.Fatalf("decode offices: %v", err)
		}
		head := len(offices) > 0 && offices[0].Hierarchy == "."
		record(t, recorder, "list_contains_head_office", resp, start, map[string]bool{
			"status_200":  resp.HTTPStatus() == http.StatusOK,
			"head_office": head,
		}, nil)
	})

	t.Run("create_office", func(t *testing.T) {
		start := time.Now()
		payload := map[string]any{
			"name":        name,
			"parentId":    1,
			"openingDate": "01 January 2020",
			"dateFormat":  "dd MMMM yyyy",
			"locale":      "en",
		}
		resp, err := env.AuthorizedRequest(http.MethodPost, "/v1/offices", token, payload)
		if err != nil {
			t.Fatal(err)
		}
		var result commandResult
		if err := resp.Decode(&result); err != nil {
			t.Fatalf("decode command result: %v", err)
		}
		var notes []string
		if result.ResourceID == 0 && result.CommandID != 0 {
			// 开启了复核，命令进入待审批队列
			notes = append(notes, fmt.Sprintf("pending approval, commandId=%d", result.CommandID))
		}
		created = result.ResourceID
		record(t, recorder, "create_office", resp, start, map[string]bool{
			"status_200":      resp.HTTPStatus() == http.StatusOK,
			"command_applied": result.ResourceID > 0 || result.CommandID > 0,
		}, notes)
	})

	t.Run("duplicate_name_rejected", func(t *testing.T) {
		if created == 0 {
			t.Skip("office not created directly")
		}
		start := time.Now()
		payload := map[string]any{"name": name, "parentId": 1, "openingDate": []int{2020, 1, 1}}
		resp, err := env.AuthorizedRequest(http.MethodPost, "/v1/offices", token, payload)
		if err != nil {
			t.Fatal(err)
		}
		record(t, recorder, "duplicate_name_rejected", resp, start, map[string]bool{
			"status_403": resp.HTTPStatus() == http.StatusForbidden,
			"code":       resp.Code == code.ErrOfficeDuplicateName,
		}, nil)
	})

	t.Run("get_created_office", func(t *testing.T) {
		if created == 0 {
			t.Skip("office not created directly")
		}
		start := time.Now()
		resp, err := env.AuthorizedRequest(http.MethodGet, "/v1/offices/"+strconv.FormatInt(created, 10), token, nil)
		if err != nil {
			t.Fatal(err)
		}
		var office officeItem
		if err := resp.Decode(&office); err != nil {
			t.Fatalf("decode office: %v", err)
		}
		record(t, recorder, "get_created_office", resp, start, map[string]bool{
			"status_200": resp.HTTPStatus() == http.StatusOK,
			"name":       office.Name == name,
			"hierarchy":  office.Hierarchy == fmt.Sprintf(".%d.", created),
		}, nil)
	})

	t.Run("unknown_office", func(t *testing.T) {
		start := time.Now()
		resp, err := env.AuthorizedRequest(http.MethodGet, "/v1/offices/999999999", token, nil)
		if err != nil {
			t.Fatal(err)
		}
		record(t, recorder, "unknown_office", resp, start, map[string]bool{
			"status_404": resp.HTTPStatus() == http.StatusNotFound,
			"code":       resp.Code == code.ErrOfficeNotFound,
		}, nil)
	})
}

func record(t *testing.T, recorder *framework.Recorder, name string, resp *framework.APIResponse,
	start time.Time, checks map[string]bool, notes []string,
) {
	t.Helper()
	success := true
	for _, ok := range checks {
		success = success && ok
	}
	recorder.AddCase(framework.CaseResult{
		Name:       name,
		Success:    success,
		HTTPStatus: resp.HTTPStatus(),
		Code:       resp.Code,
		Message:    resp.Message,
		DurationMS: time.Since(start).Milliseconds(),
		Checks:     checks,
		Notes:      notes,
	})
	if !success {
		t.Fatalf("%s checks failed: %+v (%s)", name, checks, string(resp.Raw))
	}
}
