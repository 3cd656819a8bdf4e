package framework

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type CaseResult struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Success     bool            `json:"success"`
	HTTPStatus  int             `json:"http_status,omitempty"`
	Code        int             `json:"code,omitempty"`
	Message     string          `json:"message,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
	Checks      map[string]bool `json:"checks,omitempty"`
	Notes       []string        `json:"notes,omitempty"`
}

// Recorder 收集用例结果，测试结束时写入 output 目录.
type Recorder struct {
	mu       sync.Mutex
	caseFile string
	cases    []CaseResult
}

func NewRecorder(t *testing.T, outputDir string, name string) *Recorder {
	t.Helper()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatalf("prepare output dir: %v", err)
	}
	return &Recorder{caseFile: filepath.Join(outputDir, fmt.Sprintf("%s_cases.json", name))}
}

func (r *Recorder) AddCase(result CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases = append(r.cases, result)
}

func (r *Recorder) Flush(t *testing.T) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cases) == 0 {
		return
	}
	if err := writeJSON(r.caseFile, r.cases); err != nil {
		t.Fatalf("write case results: %v", err)
	}
}

func writeJSON(path string, data any) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
