package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai-app-builder/internal/ai"
	"ai-app-builder/internal/flows"
	"ai-app-builder/internal/keys"
	"ai-app-builder/internal/projects"
	"ai-app-builder/internal/secrets"
	"ai-app-builder/internal/store"
	"ai-app-builder/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCompleter struct {
	reply  string
	chunks []string
	err    error
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

func (s *stubCompleter) CompleteStream(_ context.Context, _, _ string, onChunk func(string)) (string, error) {
	var out string
	for _, c := range s.chunks {
		onChunk(c)
		out += c
	}
	return out, s.err
}

func (s *stubCompleter) Verify(context.Context) ai.VerifyResult {
	return ai.VerifyResult{Success: true}
}
func (s *stubCompleter) Provider() ai.Provider { return ai.ProviderCerebras }

// finishingRunner plans a project and, unless hold is set, finishes it
// straight away.
type finishingRunner struct {
	hold bool
}

func (r *finishingRunner) Run(ctx context.Context, req workflow.Request, observe workflow.Observer) (workflow.Project, error) {
	p := workflow.NewProject(req.ProjectID, workflow.Plan{Name: "Todo List App", Description: "Tasks"}, time.Now())
	observe(p.Clone())
	if r.hold {
		<-ctx.Done()
		p.Status = workflow.ProjectError
		p.Error = workflow.CancelledMessage
		observe(p.Clone())
		return p.Clone(), ctx.Err()
	}
	p.Status = workflow.ProjectPreview
	p.Codebase = &workflow.Codebase{Frontend: "export default App", Database: "CREATE TABLE users();"}
	observe(p.Clone())
	return p.Clone(), nil
}

type testServer struct {
	router    *gin.Engine
	completer *stubCompleter
	runner    *finishingRunner
	projects  *projects.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.Open(&store.Config{SQLitePath: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sm, err := secrets.NewEphemeralManager()
	require.NoError(t, err)

	ts := &testServer{
		completer: &stubCompleter{reply: "TaskFlow"},
		runner:    &finishingRunner{},
	}
	ts.projects = projects.NewService(projects.Options{Runner: ts.runner, Store: db, Logger: zap.NewNop()})
	t.Cleanup(func() { _ = ts.projects.Shutdown(context.Background()) })

	h := NewHandler(Dependencies{
		Completer:   ts.completer,
		Projects:    ts.projects,
		Keys:        keys.NewSettings(db, sm, keys.NewVerifier(keys.VerifierOptions{Logger: zap.NewNop()}), nil, zap.NewNop()),
		Flows:       flows.NewService(ts.completer, zap.NewNop()),
		Database:    db,
		Environment: "test",
		Logger:      zap.NewNop(),
	})
	ts.router = gin.New()
	h.RegisterRoutes(ts.router, nil)
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "2.0.0", body["version"])
	assert.Equal(t, "test", body["environment"])
	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err)

	w = ts.do(http.MethodGet, "/api/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		wantCode int
		want     map[string]any
	}{
		{
			name:     "success",
			body:     GenerateRequest{Prompt: "hello", AgentID: "architect"},
			wantCode: http.StatusOK,
			want:     map[string]any{"success": true, "response": "TaskFlow", "agentId": "architect"},
		},
		{
			name:     "missing prompt",
			body:     GenerateRequest{},
			wantCode: http.StatusBadRequest,
			want:     map[string]any{"error": "Prompt is required"},
		},
		{
			name:     "blank prompt",
			body:     GenerateRequest{Prompt: "   "},
			wantCode: http.StatusBadRequest,
			want:     map[string]any{"error": "Prompt is required"},
		},
		{
			name:     "completion failure",
			body:     GenerateRequest{Prompt: "hello"},
			err:      errors.New("cerebras API failed (status 500): boom"),
			wantCode: http.StatusInternalServerError,
			want:     map[string]any{"error": "cerebras API failed (status 500): boom"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.completer.err = tt.err
			w := ts.do(http.MethodPost, "/api/generate", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.want, decode(t, w))
		})
	}
}

func TestGenerate_Stream(t *testing.T) {
	ts := newTestServer(t)
	ts.completer.chunks = []string{"Hel", "lo"}

	w := ts.do(http.MethodPost, "/api/generate?stream=true", GenerateRequest{Prompt: "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, "event:chunk")
	assert.Contains(t, body, `"content":"Hel"`)
	assert.Contains(t, body, "event:done")
	assert.Contains(t, body, `"response":"Hello"`)
	assert.Less(t, bytes.Index(w.Body.Bytes(), []byte(`"content":"lo"`)), bytes.Index(w.Body.Bytes(), []byte("event:done")))
}

func TestGenerate_NoProvider(t *testing.T) {
	ts := newTestServer(t)
	h := NewHandler(Dependencies{Logger: zap.NewNop()})
	r := gin.New()
	h.RegisterRoutes(r, nil)
	ts.router = r

	w := ts.do(http.MethodPost, "/api/generate", GenerateRequest{Prompt: "hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ai.ErrMissingAPIKey.Error(), decode(t, w)["error"])

	w = ts.do(http.MethodPost, "/api/flows/app-name", FlowRequest{Description: "a blog"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProjects_Lifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/projects", CreateProjectRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/projects", CreateProjectRequest{Prompt: "a todo list app"})
	require.Equal(t, http.StatusAccepted, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	id := data["id"].(string)
	assert.Equal(t, "Todo List App", data["name"])

	require.Eventually(t, func() bool { return ts.projects.Running() == 0 }, 2*time.Second, 5*time.Millisecond)

	w = ts.do(http.MethodGet, "/api/projects/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "preview", decode(t, w)["data"].(map[string]any)["status"])

	w = ts.do(http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["data"].(map[string]any)["count"])

	w = ts.do(http.MethodGet, "/api/projects/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "'unsafe-eval'")
	assert.Contains(t, w.Body.String(), "<title>Todo List App</title>")

	w = ts.do(http.MethodGet, "/api/projects/"+id+"/codebase", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sections := decode(t, w)["data"].(map[string]any)["sections"].([]any)
	assert.Len(t, sections, 6)

	w = ts.do(http.MethodGet, "/api/projects/"+id+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CREATE TABLE users();")

	w = ts.do(http.MethodPost, "/api/projects/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodDelete, "/api/projects/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodGet, "/api/projects/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PROJECT_NOT_FOUND", decode(t, w)["code"])
}

func TestProjects_NotReady(t *testing.T) {
	ts := newTestServer(t)
	ts.runner.hold = true

	w := ts.do(http.MethodPost, "/api/projects", CreateProjectRequest{Prompt: "a todo list app"})
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decode(t, w)["data"].(map[string]any)["id"].(string)

	w = ts.do(http.MethodGet, "/api/projects/"+id+"/preview", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PREVIEW_NOT_READY", decode(t, w)["code"])

	w = ts.do(http.MethodGet, "/api/projects/"+id+"/codebase", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodPost, "/api/projects/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool { return ts.projects.Running() == 0 }, 2*time.Second, 5*time.Millisecond)

	w = ts.do(http.MethodGet, "/api/projects/"+id, nil)
	assert.Equal(t, "error", decode(t, w)["data"].(map[string]any)["status"])
}

func TestProjects_ListLimit(t *testing.T) {
	ts := newTestServer(t)
	for _, q := range []string{"0", "101", "abc"} {
		w := ts.do(http.MethodGet, "/api/projects?limit="+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestKeys(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPut, "/api/keys/supabase", PutKeyRequest{Key: "eyJhbGciOiJIUzI1NiJ9.payload"})
	require.Equal(t, http.StatusOK, w.Code)
	state := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "eyJh********************load", state["masked"])

	w = ts.do(http.MethodPut, "/api/keys/supabase", PutKeyRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(http.MethodPut, "/api/keys/dropbox", PutKeyRequest{Key: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_SERVICE", decode(t, w)["code"])

	w = ts.do(http.MethodGet, "/api/keys", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"].([]any), len(keys.Services))

	w = ts.do(http.MethodPost, "/api/keys/verify", VerifyKeyRequest{Service: "supabase"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "Supabase key format is valid"}, decode(t, w))

	w = ts.do(http.MethodPost, "/api/keys/verify", VerifyKeyRequest{Service: "supabase", Key: "nope"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Invalid Supabase key format"}, decode(t, w))

	w = ts.do(http.MethodPost, "/api/keys/verify", VerifyKeyRequest{Service: "myspace", Key: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, "/api/keys/supabase", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodDelete, "/api/keys/supabase", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlows(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/flows/app-name", FlowRequest{Description: "a todo app"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"appName": "TaskFlow"}, decode(t, w)["data"])

	w = ts.do(http.MethodPost, "/api/flows/app-name", FlowRequest{Description: " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DESCRIPTION_REQUIRED", decode(t, w)["code"])

	ts.completer.reply = `["Tasks", "Reminders", "Sharing"]`
	w = ts.do(http.MethodPost, "/api/flows/features", FlowRequest{Description: "a todo app"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Tasks", "Reminders", "Sharing"}, decode(t, w)["data"].(map[string]any)["features"])

	ts.completer.reply = `{"components":20,"pages":6,"apiEndpoints":10,"linesOfCode":4000,"testCoverage":90,"performanceScore":95}`
	w = ts.do(http.MethodPost, "/api/flows/code-metrics", FlowRequest{Description: "a todo app", Features: []string{"Tasks"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4000), decode(t, w)["data"].(map[string]any)["linesOfCode"])

	ts.completer.err = errors.New("boom")
	w = ts.do(http.MethodPost, "/api/flows/code-metrics", FlowRequest{Description: "a todo app"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(6), data["count"])
	assert.Len(t, data["examples"], 5)

	w = ts.do(http.MethodGet, "/api/templates?popular=true", nil)
	assert.Equal(t, float64(3), decode(t, w)["data"].(map[string]any)["count"])

	w = ts.do(http.MethodGet, "/api/templates/blog-platform", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Blog Platform", decode(t, w)["data"].(map[string]any)["name"])

	w = ts.do(http.MethodGet, "/api/templates/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
