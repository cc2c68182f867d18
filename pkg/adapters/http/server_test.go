package http

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/pkg/adapters/memory"
	"github.com/aretw0/stepview/pkg/client"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/playback"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/aretw0/stepview/pkg/runner"
	"github.com/aretw0/stepview/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubGateway() ports.GatewayFunc {
	return func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		if strings.Contains(req.Code, "reject") {
			return nil, &client.APIError{StatusCode: http.StatusBadRequest, Detail: "Unsupported language: cobol"}
		}
		return &domain.ExecutionState{
			Language:   req.Language,
			Code:       req.Code,
			Status:     domain.StatusCompleted,
			TotalSteps: 3,
			Steps: []domain.ExecutionStep{
				{Line: 1},
				{Line: 2, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 2, Globals: []domain.Variable{{Name: "x", Value: 1}}}}},
				{Line: 3, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 3, Globals: []domain.Variable{{Name: "x", Value: 1}}}}, Output: []string{"1"}},
			},
		}, nil
	}
}

func newTestHandler(t *testing.T, opts ...Option) (http.Handler, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(memory.NewStore(), session.WithWorkbenchOptions(
		stepview.WithGateway(stubGateway()),
		stepview.WithScheduler(playback.NewManualScheduler()),
	))
	t.Cleanup(func() { mgr.CloseAll(context.Background()) })
	return NewHandler(mgr, opts...), mgr
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, reader))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, "POST", "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	info := decode[session.Info](t, w)
	require.NotEmpty(t, info.ID)
	return info.ID
}

func TestHealthAndInfo(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	info := decode[map[string]any](t, w)
	assert.Equal(t, "stepview-http", info["app"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createSession(t, h)

	w := do(t, h, "GET", "/sessions", "")
	assert.Len(t, decode[[]session.Info](t, w), 1)

	w = do(t, h, "PUT", "/sessions/"+id+"/source", `{"code":"x = 1\nprint(x)\n","language":"py"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "x = 1\nprint(x)\n", decode[runner.RichResponse](t, w).Source)

	w = do(t, h, "POST", "/sessions/"+id+"/execute", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[runner.RichResponse](t, w)
	assert.Equal(t, domain.PhaseReady, view.Screen.Phase)
	assert.Equal(t, 3, view.Screen.Playback.Total)

	w = do(t, h, "POST", "/sessions/"+id+"/playback/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[runner.RichResponse](t, w).Screen.Playback.Cursor)

	w = do(t, h, "POST", "/sessions/"+id+"/playback/seek", `{"cursor":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[runner.RichResponse](t, w)
	assert.Equal(t, 2, view.Screen.Playback.Cursor)
	assert.Equal(t, []string{"1"}, view.Screen.Step.Output)

	w = do(t, h, "GET", "/sessions/"+id+"/view", "")
	assert.Equal(t, 3, decode[runner.RichResponse](t, w).Screen.HighlightLine)

	w = do(t, h, "DELETE", "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/sessions/"+id+"/view", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, "DELETE", "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestoreAfterClose(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := createSession(t, h)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/sessions/"+id+"/execute", "").Code)
	require.NoError(t, mgr.Close(context.Background(), id))

	w := do(t, h, "GET", "/sessions/"+id+"/view", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[runner.RichResponse](t, w).Screen.Playback.Total)
}

func TestPutSource_StripsControlCharacters(t *testing.T) {
	h, mgr := newTestHandler(t)
	id := createSession(t, h)

	w := do(t, h, "PUT", "/sessions/"+id+"/source", `{"code":"x = 1\u001b[2J\n\tprint(x)\u0000"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s, err := mgr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "x = 1[2J\n\tprint(x)", s.Workbench.Editor().Text())
}

func TestSessionRoutesIgnoreCacheEntries(t *testing.T) {
	store := memory.NewStore()
	mgr := session.NewManager(store, session.WithWorkbenchOptions(
		stepview.WithGateway(stubGateway()),
		stepview.WithScheduler(playback.NewManualScheduler()),
	))
	t.Cleanup(func() { mgr.CloseAll(context.Background()) })
	h := NewHandler(mgr)
	ctx := context.Background()

	trace, err := stubGateway()(ctx, domain.ExecutionRequest{Language: domain.LanguagePython, Code: "x = 1"})
	require.NoError(t, err)
	key := domain.Fingerprint(trace.Language, trace.Code)
	require.NoError(t, store.Save(ctx, domain.NewRecording(key, trace)))

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/sessions/"+key+"/view", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/sessions/"+key, "").Code)

	_, err = store.Load(ctx, key)
	assert.NoError(t, err)
	assert.Empty(t, mgr.List())
}

func TestBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createSession(t, h)

	base := "/sessions/" + id
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown language", "PUT", base + "/source", `{"language":"cobol"}`, http.StatusBadRequest},
		{"malformed body", "PUT", base + "/source", `{`, http.StatusBadRequest},
		{"unknown action", "POST", base + "/playback/rewind", "", http.StatusBadRequest},
		{"seek without cursor", "POST", base + "/playback/seek", `{}`, http.StatusBadRequest},
		{"unknown session", "GET", "/sessions/missing/view", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, w).Detail)
		})
	}
}

func TestExecute_BackendRejection(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createSession(t, h)

	do(t, h, "PUT", "/sessions/"+id+"/source", `{"code":"reject me"}`)
	w := do(t, h, "POST", "/sessions/"+id+"/execute", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Detail, "Unsupported language")

	w = do(t, h, "GET", "/sessions/"+id+"/view", "")
	view := decode[runner.RichResponse](t, w)
	assert.Equal(t, domain.PhaseError, view.Screen.Phase)
	assert.Equal(t, domain.PlaybackIdle, view.Screen.Playback.State)
}

func TestExecute_RateLimited(t *testing.T) {
	h, _ := newTestHandler(t, WithExecuteRate(1, 1))
	id := createSession(t, h)

	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/sessions/"+id+"/execute", "").Code)
	w := do(t, h, "POST", "/sessions/"+id+"/execute", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "stepview_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h, _ := newTestHandler(t, WithMetrics(reg))
	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stepview_test_total 1")
}

func TestSubscribeEvents_Session(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createSession(t, h)
	require.Equal(t, http.StatusOK, do(t, h, "POST", "/sessions/"+id+"/execute", "").Code)

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/sessions/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for SSE line")
			return ""
		}
	}
	assert.Equal(t, "event: ping", next())
	assert.Equal(t, "data: connected", next())
	assert.Equal(t, "", next())

	resp2, err := http.Post(srv.URL+"/sessions/"+id+"/playback/next", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()

	data := next()
	require.True(t, strings.HasPrefix(data, "data: "), data)
	var screen struct {
		Playback domain.Snapshot `json:"playback"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(data, "data: ")), &screen))
	assert.Equal(t, 1, screen.Playback.Cursor)
}

func TestStreamManager_DropsForSlowClients(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s")
	for i := 0; i < 20; i++ {
		sm.Broadcast("s", "x")
	}
	assert.Len(t, ch, cap(ch))
	assert.Equal(t, 1, sm.Count("s"))

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Count("s"))
}
