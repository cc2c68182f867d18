package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepview/internal/backend"
	"github.com/aretw0/stepview/pkg/adapters/memory"
	"github.com/aretw0/stepview/pkg/client"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = "x = 1\nprint(x)\n"

func recorded() *domain.ExecutionState {
	return &domain.ExecutionState{
		Language:    domain.LanguagePython,
		Code:        program,
		Status:      domain.StatusCompleted,
		CurrentStep: 1,
		Steps: []domain.ExecutionStep{
			{Line: 1},
			{Line: 2, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 2, Globals: []domain.Variable{{Name: "x", Value: float64(1)}}}}, Output: []string{"1"}},
		},
	}
}

func setup(t *testing.T, recs ...*domain.Recording) (*client.Client, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for _, rec := range recs {
		require.NoError(t, store.Save(context.Background(), rec))
	}
	clock := func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	srv := httptest.NewServer(backend.New(store, backend.WithClock(clock)).Routes())
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	return c, store
}

func TestExecute_ReplaysByScan(t *testing.T) {
	c, _ := setup(t, domain.NewRecording("demo", recorded()))

	trace, err := c.Execute(context.Background(), domain.ExecutionRequest{Code: program, Language: domain.LanguagePython})
	require.NoError(t, err)
	assert.Equal(t, 2, trace.TotalSteps)
	assert.Equal(t, 0, trace.CurrentStep)
	assert.Equal(t, []string{"1"}, trace.Steps[1].Output)
}

func TestExecute_ReplaysByFingerprint(t *testing.T) {
	fp := domain.Fingerprint(domain.LanguagePython, program)
	c, _ := setup(t, domain.NewRecording(fp, recorded()))

	trace, err := c.Execute(context.Background(), domain.ExecutionRequest{Code: program, Language: domain.LanguagePython})
	require.NoError(t, err)
	assert.Equal(t, program, trace.Code)
}

func TestExecute_NotRecorded(t *testing.T) {
	c, _ := setup(t, domain.NewRecording("demo", recorded()))

	_, err := c.Execute(context.Background(), domain.ExecutionRequest{Code: "y = 2\n", Language: domain.LanguagePython})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "No recorded trace for this program", apiErr.Detail)
}

func TestExecute_UnsupportedLanguage(t *testing.T) {
	store := memory.NewStore()
	srv := httptest.NewServer(backend.New(store).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/execute", "application/json", strings.NewReader(`{"code":"x","language":"cobol"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidate(t *testing.T) {
	c, _ := setup(t, domain.NewRecording("demo", recorded()))
	ctx := context.Background()

	res, err := c.Validate(ctx, domain.ExecutionRequest{Code: program, Language: domain.LanguagePython})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)

	res, err = c.Validate(ctx, domain.ExecutionRequest{Code: "y = 2\n", Language: domain.LanguagePython})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Len(t, res.Warnings, 1)
}

func TestCatalog(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 2025, health.Timestamp.Year())
	assert.Equal(t, domain.Languages, health.Executors)

	langs, err := c.Languages(ctx)
	require.NoError(t, err)
	require.Len(t, langs, 3)
	assert.Equal(t, "ES2023", langs[1].Version)

	examples, err := c.Examples(ctx, domain.LanguagePython)
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Contains(t, examples[0].Code, "def factorial(n):")

	_, err = c.Examples(ctx, domain.Language("cobol"))
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
