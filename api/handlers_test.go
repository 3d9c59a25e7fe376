package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/archon-ai/orchestrator/internal/orchestrator"
)

var apiTestNamespaceSeq atomic.Uint64

type stubProvider struct {
	content string
}

func (s stubProvider) Initialize(context.Context) error  { return nil }
func (s stubProvider) HealthCheck(context.Context) error { return nil }
func (s stubProvider) Execute(context.Context, string, map[string]string) (map[string]any, error) {
	return map[string]any{"content": s.content, "model": "stub"}, nil
}

func newTestAPI(t *testing.T, start bool) (*orchestrator.Orchestrator, http.Handler) {
	t.Helper()
	orc := orchestrator.New(orchestrator.Options{
		MaxConcurrentTasks: 2,
		MetricsNamespace:   fmt.Sprintf("api_test_%d", apiTestNamespaceSeq.Add(1)),
	}, zap.NewNop())
	if start {
		orc.Start(context.Background())
		t.Cleanup(orc.Stop)
	}
	return orc, NewRouter(orc, nil, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func submitAndWait(t *testing.T, orc *orchestrator.Orchestrator, h http.Handler, body map[string]any) string {
	t.Helper()
	rec, resp := doJSON(t, h, http.MethodPost, "/tasks/submit", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	taskID, _ := resp["task_id"].(string)
	require.NotEmpty(t, taskID)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := orc.GetTask(taskID); ok && (v.Status == orchestrator.TaskCompleted || v.Status == orchestrator.TaskFailed) {
			return taskID
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return ""
}

func TestHealth(t *testing.T) {
	_, h := newTestAPI(t, true)

	rec, resp := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp["status"])

	orch, ok := resp["orchestrator"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, orch["running"])
	assert.EqualValues(t, 0, orch["agents_count"])
	assert.EqualValues(t, 0, orch["tasks_count"])
	assert.EqualValues(t, 0, orch["queue_size"])
}

func TestEndpointsReturn503BeforeStart(t *testing.T) {
	_, h := newTestAPI(t, false)

	for _, path := range []string{"/agents", "/tasks", "/status", "/metrics"} {
		rec, _ := doJSON(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "GET %s", path)
	}

	rec, _ := doJSON(t, h, http.MethodPost, "/test", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "POST /test")
}

func TestSubmitTask_Validation(t *testing.T) {
	_, h := newTestAPI(t, true)

	rec, _ := doJSON(t, h, http.MethodPost, "/tasks/submit", map[string]any{"prompt": "no type"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/tasks/submit", map[string]any{"task_type": "analysis"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, h, http.MethodPost, "/tasks/submit", map[string]any{
		"task_type":    "analysis",
		"prompt":       "x",
		"dependencies": []string{"no-such-task"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAndGetTask(t *testing.T) {
	orc, h := newTestAPI(t, true)
	orc.RegisterAgent("stub", "Stub", "mock", []string{"general"}, stubProvider{content: "hello"}, nil)

	taskID := submitAndWait(t, orc, h, map[string]any{
		"task_type": "analysis",
		"prompt":    "inspect this",
		"priority":  "high",
	})

	rec, resp := doJSON(t, h, http.MethodGet, "/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, taskID, resp["id"])
	assert.Equal(t, "analysis", resp["task_type"])
	assert.Equal(t, "high", resp["priority"])
	assert.Equal(t, "completed", resp["status"])
	assert.Equal(t, "stub", resp["assigned_agent"])

	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", result["content"])
}

func TestGetTask_NotFound(t *testing.T) {
	_, h := newTestAPI(t, true)

	rec, _ := doJSON(t, h, http.MethodGet, "/tasks/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitTask_UnknownPriorityDefaultsToMedium(t *testing.T) {
	orc, h := newTestAPI(t, true)

	rec, resp := doJSON(t, h, http.MethodPost, "/tasks/submit", map[string]any{
		"task_type": "analysis",
		"prompt":    "x",
		"priority":  "astronomical",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	taskID, _ := resp["task_id"].(string)
	view, ok := orc.GetTask(taskID)
	require.True(t, ok)
	assert.Equal(t, orchestrator.PriorityMedium, view.Priority)
}

func TestRegisterAgent_UnknownProvider(t *testing.T) {
	_, h := newTestAPI(t, true)

	rec, _ := doJSON(t, h, http.MethodPost, "/agents/register", map[string]any{
		"agent_id":     "mystery",
		"name":         "Mystery",
		"provider":     "watson",
		"capabilities": []string{"general"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterAgent_MissingFields(t *testing.T) {
	_, h := newTestAPI(t, true)

	rec, _ := doJSON(t, h, http.MethodPost, "/agents/register", map[string]any{
		"agent_id": "incomplete",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterAgent_InitializeFailure(t *testing.T) {
	_, h := newTestAPI(t, true)

	// No API key: the openai adapter's Initialize fails, so registration
	// is rejected rather than leaving a dead agent behind.
	rec, _ := doJSON(t, h, http.MethodPost, "/agents/register", map[string]any{
		"agent_id":     "gpt",
		"name":         "GPT",
		"provider":     "openai",
		"capabilities": []string{"general"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnregisterAgent(t *testing.T) {
	orc, h := newTestAPI(t, true)
	orc.RegisterAgent("stub", "Stub", "mock", []string{"general"}, stubProvider{}, nil)

	rec, resp := doJSON(t, h, http.MethodDelete, "/agents/stub", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])

	rec, _ = doJSON(t, h, http.MethodDelete, "/agents/stub", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAgents(t *testing.T) {
	orc, h := newTestAPI(t, true)
	orc.RegisterAgent("stub", "Stub Agent", "mock", []string{"general"}, stubProvider{}, nil)

	rec, resp := doJSON(t, h, http.MethodGet, "/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	agents, ok := resp["agents"].(map[string]any)
	require.True(t, ok)
	entry, ok := agents["stub"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Stub Agent", entry["name"])
	assert.Equal(t, "mock", entry["provider"])
	assert.Equal(t, "idle", entry["status"])
}

func TestStatusAndMetrics(t *testing.T) {
	orc, h := newTestAPI(t, true)
	orc.RegisterAgent("stub", "Stub", "mock", []string{"general"}, stubProvider{content: "ok"}, nil)

	submitAndWait(t, orc, h, map[string]any{"task_type": "analysis", "prompt": "x"})

	rec, resp := doJSON(t, h, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["running"])
	tasks, ok := resp["tasks"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, tasks["total"])
	assert.EqualValues(t, 1, tasks["completed"])

	rec, resp = doJSON(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	metrics, ok := resp["metrics"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, metrics, "mock")
	mock, ok := metrics["mock"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, mock["total_tasks"])
	assert.EqualValues(t, 1, mock["successful_tasks"])
	assert.EqualValues(t, 0, mock["failed_tasks"])

	rec, resp = doJSON(t, h, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, resp["total"])
	assert.EqualValues(t, 1, resp["completed"])
}

func TestTestEndpoint(t *testing.T) {
	orc, h := newTestAPI(t, true)
	orc.RegisterAgent("stub", "Stub", "mock", []string{"code_generation"}, stubProvider{content: "print"}, nil)

	start := time.Now()
	rec, resp := doJSON(t, h, http.MethodPost, "/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second)

	assert.Equal(t, "Test orchestration initiated", resp["message"])
	assert.NotEmpty(t, resp["task_id"])
	assert.Equal(t, "completed", resp["task_status"])
}

func TestAgentTestEndpoint(t *testing.T) {
	orc, h := newTestAPI(t, true)
	orc.RegisterAgent("stub", "Stub", "mock", []string{"general"}, stubProvider{content: "pong"}, nil)

	rec, resp := doJSON(t, h, http.MethodPost, "/agents/stub/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])

	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pong", result["content"])

	rec, _ = doJSON(t, h, http.MethodPost, "/agents/ghost/test", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestAPI(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/tasks/submit", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
