package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/stepview/pkg/adapters/memory"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunTraceStoreContract(t, store)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, &domain.Recording{ID: "a", Fingerprint: "f1"}))

	rec, err := store.Load(ctx, "a")
	require.NoError(t, err)
	rec.Fingerprint = "mutated"

	again, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "f1", again.Fingerprint)
}

func TestMemoryStore_RejectsMissingID(t *testing.T) {
	err := memory.NewStore().Save(context.Background(), &domain.Recording{})
	assert.ErrorIs(t, err, domain.ErrInvalidTrace)
}
