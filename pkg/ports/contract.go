package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepview/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractTrace() *domain.ExecutionState {
	trace := &domain.ExecutionState{
		Language: domain.LanguagePython,
		Code:     "x = 1\nprint(x)",
		Status:   domain.StatusCompleted,
		Steps: []domain.ExecutionStep{
			{Line: 1, Step: 0, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 1}}},
			{Line: 2, Step: 1, Stack: []domain.StackFrame{{
				FunctionName: "<module>",
				Line:         2,
				Globals:      []domain.Variable{{Name: "x", Value: 1, Type: "int", Scope: "global"}},
			}}, Output: []string{"1"}},
		},
		FinalOutput: []string{"1"},
	}
	trace.Normalize()
	return trace
}

// RunTraceStoreContract runs a suite of tests to verify that a TraceStore implementation
// adheres to the defined interface contract.
func RunTraceStoreContract(t *testing.T, store TraceStore) {
	ctx := context.Background()
	id := "contract-test-trace-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		rec := domain.NewRecording(id, contractTrace())
		require.NoError(t, store.Save(ctx, rec), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, id, loaded.ID)
		assert.Equal(t, rec.Fingerprint, loaded.Fingerprint)
		require.NotNil(t, loaded.Trace)
		assert.Equal(t, 2, loaded.Trace.TotalSteps)
		assert.Equal(t, []string{"1"}, loaded.Trace.Steps[1].Output)
		// JSON-backed stores turn numbers into float64; only presence is part of the contract.
		assert.NotNil(t, loaded.Trace.Steps[1].Stack[0].Globals[0].Value)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrTraceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewRecording(id, contractTrace())))

		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrTraceNotFound, "Load after Delete should return ErrTraceNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		_ = store.Save(ctx, domain.NewRecording(id1, contractTrace()))
		_ = store.Save(ctx, domain.NewRecording(id2, contractTrace()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
