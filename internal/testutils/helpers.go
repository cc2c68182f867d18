// Package testutils holds fixtures shared by the stepview test suites.
package testutils

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/stepview/internal/backend"
	"github.com/aretw0/stepview/pkg/adapters/memory"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Program is the Python source that SampleTrace was recorded from.
const Program = "x = 1\nprint(x)\n"

// SampleTrace returns a fresh two-step trace of Program.
func SampleTrace() *domain.ExecutionState {
	return &domain.ExecutionState{
		Language: domain.LanguagePython,
		Code:     Program,
		Status:   domain.StatusCompleted,
		Steps: []domain.ExecutionStep{
			{Line: 1},
			{Line: 2, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 2, Globals: []domain.Variable{{Name: "x", Value: float64(1)}}}}, Output: []string{"1"}},
		},
	}
}

// ReplayBackend starts a replay backend that serves recs, or a recording of
// SampleTrace when recs is empty. The server is closed when the test ends.
func ReplayBackend(t *testing.T, recs ...*domain.Recording) *httptest.Server {
	t.Helper()

	if len(recs) == 0 {
		recs = []*domain.Recording{domain.NewRecording("demo", SampleTrace())}
	}
	store := memory.NewStore()
	for _, rec := range recs {
		require.NoError(t, store.Save(context.Background(), rec), "Failed to seed replay store")
	}

	srv := httptest.NewServer(backend.New(store).Routes())
	t.Cleanup(srv.Close)
	return srv
}
