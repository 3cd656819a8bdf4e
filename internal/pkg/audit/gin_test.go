package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecentManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Enabled:      true,
		Sinks:        []Sink{SinkFunc{SinkName: "discard"}},
		RecentBuffer: 8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestMiddlewareFillsCommandEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newRecentManager(t)

	engine := gin.New()
	engine.POST("/v1/offices", Middleware(), func(c *gin.Context) {
		event := CommandEvent("OFFICE", "CREATE")
		event.Actor = "mifos"
		event.Outcome = OutcomeSuccess
		m.Submit(c.Request.Context(), event)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/offices", nil)
	req.RemoteAddr = "10.0.0.8:5100"
	req.Header.Set("X-Request-ID", "rid-1")
	req.Header.Set("User-Agent", "obs-test")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	recent := m.Recent(1)
	require.Len(t, recent, 1)
	got := recent[0]
	assert.Equal(t, "OFFICE.CREATE", got.Action)
	assert.Equal(t, "OFFICE", got.ResourceType)
	assert.Equal(t, "rid-1", got.RequestID)
	assert.Equal(t, "10.0.0.8", got.IP)
	assert.Equal(t, "obs-test", got.UserAgent)
	assert.Equal(t, map[string]any{
		"entity": "OFFICE",
		"action": "CREATE",
		"method": http.MethodPost,
		"path":   "/v1/offices",
	}, got.Metadata)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestFillOriginKeepsEventFields(t *testing.T) {
	ctx := WithOrigin(context.Background(), Event{
		RequestID: "rid-2",
		IP:        "10.0.0.9",
		Actor:     "ignored",
		Metadata:  map[string]any{"path": "/v1/audits"},
	})

	event := fillOrigin(ctx, Event{IP: "192.168.1.1", Metadata: map[string]any{"path": "/login"}})
	assert.Equal(t, "rid-2", event.RequestID)
	assert.Equal(t, "192.168.1.1", event.IP)
	assert.Empty(t, event.Actor)
	assert.Equal(t, "/login", event.Metadata["path"])

	bare := fillOrigin(context.Background(), CommandEvent("DATATABLE", "DELETE"))
	assert.Empty(t, bare.RequestID)
	assert.Equal(t, "DATATABLE.DELETE", bare.Action)
}
