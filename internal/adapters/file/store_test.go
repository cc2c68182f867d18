package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepview/internal/adapters/file"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunTraceStoreContract(t, store)
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".stepview", "traces"), file.New("").BasePath)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	err := store.Save(ctx, &domain.Recording{ID: "../escape"})
	assert.Error(t, err)

	_, err = store.Load(ctx, "a/b")
	assert.Error(t, err)
}

func TestFileStore_ListSkipsTempAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Recording{ID: "kept"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-partial-123.json"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, ids)
}

func TestFileStore_OverwriteKeepsLatest(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Recording{ID: "r", Fingerprint: "old"}))
	require.NoError(t, store.Save(ctx, &domain.Recording{ID: "r", Fingerprint: "new"}))

	rec, err := store.Load(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Fingerprint)
}
