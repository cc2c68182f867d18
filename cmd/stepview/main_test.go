package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepview/internal/adapters/file"
	"github.com/aretw0/stepview/internal/backend"
	"github.com/aretw0/stepview/internal/testutils"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stepview version ")
}

func TestTracesCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	storePath := filepath.Join(dir, "traces")

	require.NoError(t, file.New(storePath).Save(context.Background(), domain.NewRecording("demo", testutils.SampleTrace())))

	out, err := execute(t, "traces", "ls", "--store", "file", "--store-path", storePath)
	require.NoError(t, err)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "completed")

	out, err = execute(t, "traces", "inspect", "demo", "--store-path", storePath, "--step", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Step 2 of 2")
	assert.Contains(t, out, "x = 1")

	out, err = execute(t, "traces", "rm", "demo", "--store-path", storePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed trace 'demo'")

	_, err = execute(t, "traces", "inspect", "demo", "--store-path", storePath)
	assert.ErrorIs(t, err, domain.ErrTraceNotFound)
}

func TestCatalogCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	srv := httptest.NewServer(backend.New(file.New(filepath.Join(dir, "traces"))).Routes())
	defer srv.Close()

	out, err := execute(t, "languages", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "javascript")
	assert.Contains(t, out, "C11")

	out, err = execute(t, "examples", "c", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "## Hello World")

	prog := filepath.Join(dir, "hello.py")
	require.NoError(t, os.WriteFile(prog, []byte("print('hi')\n"), 0o644))
	out, err = execute(t, "validate", prog, "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: no recorded trace for this program")
	assert.Contains(t, out, "Program is valid!")
}
