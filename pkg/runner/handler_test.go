package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/editor"
	"github.com/aretw0/stepview/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Show(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out)
	assert.False(t, h.Clear, "a buffer is not a terminal")
	assert.False(t, h.Color)

	src := editor.New("x = 1\nprint(x)\n", domain.LanguagePython)
	src.Highlight(2)

	trace := &domain.ExecutionState{
		TotalSteps: 2,
		Steps: []domain.ExecutionStep{
			{Line: 1},
			{Line: 2, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 2, Globals: []domain.Variable{{Name: "x", Value: 1}}}}, Output: []string{"1"}},
		},
	}
	screen := render.NewScreen(domain.PhaseReady, domain.Snapshot{State: domain.PlaybackPaused, Cursor: 1, Total: 2}, trace)

	require.NoError(t, h.Show(context.Background(), screen, src))

	text := out.String()
	assert.Contains(t, text, "▶ 2 │ print(x)")
	assert.Contains(t, text, "  1 │ x = 1")
	assert.Contains(t, text, "Step 2 of 2")
	assert.Contains(t, text, "x = 1")
	assert.True(t, strings.HasSuffix(text, Prompt))
}

func TestTextHandler_Input(t *testing.T) {
	h := NewTextHandler(strings.NewReader("next\r\n  g 2  \nlast"), io.Discard)
	ctx := context.Background()

	for _, want := range []string{"next", "  g 2  ", "last"} {
		got, err := h.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinePump_CloseStopsReader(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()
	go func() { _, _ = pw.Write([]byte("n\np\n")) }()

	h := NewTextHandler(pr, &bytes.Buffer{})
	line, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "n", line)

	// "p" is pending and the pipe stays open, so only Close can end the reader.
	require.NoError(t, h.Close())
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-h.pump.ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestTextHandler_SystemOutput(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewTextHandler(strings.NewReader(""), out)
	require.NoError(t, h.SystemOutput(context.Background(), "hello"))
	assert.Equal(t, "\n[System] hello\n> ", out.String())
}

func TestJSONHandler_Input(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("\"goto 2\"\nnext\n\"\\u001bnext\"\n"), io.Discard)
	ctx := context.Background()

	got, err := h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "goto 2", got)

	got, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "next", got)

	got, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "next", got, "control characters inside JSON strings are stripped too")
}

func TestJSONHandler_Show(t *testing.T) {
	out := &bytes.Buffer{}
	h := NewJSONHandler(strings.NewReader(""), out)

	screen := render.NewScreen(domain.PhaseIdle, domain.Snapshot{State: domain.PlaybackIdle}, nil)
	require.NoError(t, h.Show(context.Background(), screen, nil))
	require.NoError(t, h.SystemOutput(context.Background(), "a <b>"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"type":"view","screen":{"phase":"idle","playback":{"state":"idle","cursor":0,"total":0}}}`, lines[0])
	assert.Equal(t, `{"type":"system","message":"a <b>"}`, lines[1])
}
