package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/stepview/pkg/client"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const traceJSON = `{
  "steps": [
    {"line": 1, "step": 0, "stack": [], "heap": {}, "output": []},
    {"line": 2, "step": 1, "stack": [], "heap": {}, "output": ["hello"]}
  ],
  "current_step": 1,
  "total_steps": 9,
  "language": "python",
  "code": "print('hello')",
  "status": "completed",
  "final_output": ["hello"],
  "execution_time": 0.01
}`

func newBackend(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestClient_Execute(t *testing.T) {
	var got domain.ExecutionRequest
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/execute", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(traceJSON))
	})

	trace, err := c.Execute(context.Background(), domain.ExecutionRequest{
		Code:     "print('hello')",
		Language: domain.LanguagePython,
	})
	require.NoError(t, err)

	assert.Equal(t, "print('hello')", got.Code)
	assert.Equal(t, domain.LanguagePython, got.Language)

	assert.Equal(t, 2, trace.TotalSteps, "total_steps follows the steps array")
	assert.Equal(t, 0, trace.CurrentStep)
	assert.Equal(t, domain.StatusCompleted, trace.Status)
	assert.Equal(t, []string{"hello"}, trace.Steps[1].Output)
}

func TestClient_ExecuteRejectsBadRequestsLocally(t *testing.T) {
	var calls atomic.Int32
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	_, err := c.Execute(context.Background(), domain.ExecutionRequest{Code: "x", Language: "ruby"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)

	_, err = c.Execute(context.Background(), domain.ExecutionRequest{Code: "  \n", Language: domain.LanguageC})
	assert.ErrorIs(t, err, domain.ErrEmptySource)

	_, err = c.Execute(context.Background(), domain.ExecutionRequest{Code: "x", Language: domain.LanguageC, Timeout: 61})
	assert.Error(t, err)

	assert.Zero(t, calls.Load())
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", http.StatusBadRequest, `{"detail": "Langage non supporté: ruby"}`, "Langage non supporté: ruby"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail": [{"loc": ["body", "code"]}]}`, `[{"loc": ["body", "code"]}]`},
		{"plain body", http.StatusBadGateway, "upstream down\n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Execute(context.Background(), domain.ExecutionRequest{Code: "x", Language: domain.LanguagePython})

			var apiErr *client.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Detail)
			assert.Equal(t, int32(1), calls.Load(), "requests are never retried")
		})
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := c.Execute(context.Background(), domain.ExecutionRequest{Code: "x", Language: domain.LanguagePython})
	assert.ErrorIs(t, err, client.ErrMalformedResponse)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := client.New(url)
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), domain.ExecutionRequest{Code: "x", Language: domain.LanguagePython})
	assert.ErrorIs(t, err, client.ErrBackendUnavailable)
}

func TestClient_CancelAbortsRequest(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Execute(ctx, domain.ExecutionRequest{Code: "x", Language: domain.LanguagePython})
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("execute did not return after cancel")
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := client.New(srv.URL, client.WithTimeout(50*time.Millisecond), client.WithTimeoutOverhead(0))
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), domain.ExecutionRequest{Code: "x", Language: domain.LanguagePython})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Catalog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "healthy", "timestamp": "2024-05-01T10:00:00Z", "executors": ["python", "javascript", "c"]}`))
	})
	mux.HandleFunc("/api/languages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"languages": [{"id": "c", "name": "C", "version": "C11", "description": "systems"}]}`))
	})
	mux.HandleFunc("/api/examples/python", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"examples": [{"title": "Factorial", "code": "def f(): pass", "description": "recursion"}]}`))
	})
	mux.HandleFunc("/api/validate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"valid": false, "errors": [{"line": 1, "column": 4, "message": "invalid syntax", "type": "SyntaxError"}], "warnings": []}`))
	})
	c := newBackend(t, mux.ServeHTTP)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Executors, 3)

	langs, err := c.Languages(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C11", langs[0].Version)

	examples, err := c.Examples(ctx, domain.LanguagePython)
	require.NoError(t, err)
	assert.Equal(t, "Factorial", examples[0].Title)

	_, err = c.Examples(ctx, domain.LanguageC)
	var apiErr *client.APIError
	assert.True(t, errors.As(err, &apiErr))

	result, err := c.Validate(ctx, domain.ExecutionRequest{Code: "def", Language: domain.LanguagePython})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "SyntaxError", result.Errors[0].Type)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := client.New("ftp://example.com")
	assert.Error(t, err)

	_, err = client.New("://")
	assert.Error(t, err)
}
