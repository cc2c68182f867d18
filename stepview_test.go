package stepview_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/pkg/client"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/playback"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/aretw0/stepview/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeSteps(code string) *domain.ExecutionState {
	trace := &domain.ExecutionState{
		Language: domain.LanguagePython,
		Code:     code,
		Status:   domain.StatusCompleted,
		Steps: []domain.ExecutionStep{
			{Line: 1, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 1}}, Output: []string{"a"}},
			{Line: 2, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 2}}, Output: []string{"a", "b"}},
			{Line: 3, Stack: []domain.StackFrame{{FunctionName: "<module>", Line: 3}}, Output: []string{"a", "b", "c"}},
		},
	}
	trace.Normalize()
	return trace
}

func echoGateway() ports.GatewayFunc {
	return func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		return threeSteps(req.Code), nil
	}
}

const program = "print('a')\nprint('b')\nprint('c')\n"

func TestWorkbench_ExecuteLoadsTraceAndHighlights(t *testing.T) {
	wb := stepview.New(
		stepview.WithGateway(echoGateway()),
		stepview.WithSource(program, domain.LanguagePython),
		stepview.WithScheduler(playback.NewManualScheduler()),
	)
	defer wb.Close()

	assert.Equal(t, domain.PhaseIdle, wb.Phase())

	trace, err := wb.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, trace.TotalSteps)

	assert.Equal(t, domain.PhaseReady, wb.Phase())
	assert.False(t, wb.IsExecuting())
	assert.Equal(t, domain.Snapshot{State: domain.PlaybackPaused, Cursor: 0, Total: 3}, wb.Controller().Snapshot())
	assert.Equal(t, 1, wb.Editor().Highlighted())

	wb.Next()
	wb.Next()
	assert.Equal(t, 3, wb.Editor().Highlighted(), "editor follows the cursor")
	assert.Len(t, wb.Screen().Step.Output, 3)

	wb.Previous()
	screen := wb.Screen()
	assert.Equal(t, 2, screen.HighlightLine)
	assert.Equal(t, []string{"a", "b"}, screen.Step.Output)
}

func TestWorkbench_NetworkRejection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw, err := client.New(url)
	require.NoError(t, err)

	wb := stepview.New(stepview.WithGateway(gw), stepview.WithSource(program, domain.LanguagePython))
	defer wb.Close()

	_, err = wb.Execute(context.Background())
	require.ErrorIs(t, err, client.ErrBackendUnavailable)

	assert.False(t, wb.IsExecuting())
	assert.Nil(t, wb.Trace())
	assert.Equal(t, domain.PlaybackIdle, wb.Controller().Snapshot().State)
	assert.Equal(t, domain.PhaseError, wb.Phase())
	assert.ErrorIs(t, wb.LastError(), client.ErrBackendUnavailable)

	screen := wb.Screen()
	assert.Equal(t, domain.PhaseError, screen.Phase)
	assert.NotEmpty(t, screen.Error)
}

func TestWorkbench_IsExecutingDuringRequest(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := ports.GatewayFunc(func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		close(entered)
		<-release
		return threeSteps(req.Code), nil
	})

	wb := stepview.New(stepview.WithGateway(gw))
	defer wb.Close()

	done := make(chan error, 1)
	go func() {
		_, err := wb.Execute(context.Background())
		done <- err
	}()

	<-entered
	assert.True(t, wb.IsExecuting())
	assert.Equal(t, domain.PhaseExecuting, wb.Screen().Phase)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, wb.IsExecuting())
}

func TestWorkbench_NewExecutionAbortsInFlight(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	firstEntered := make(chan struct{})
	gw := ports.GatewayFunc(func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			close(firstEntered)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return threeSteps(req.Code), nil
	})

	wb := stepview.New(stepview.WithGateway(gw), stepview.WithSource("first", domain.LanguagePython))
	defer wb.Close()

	firstErr := make(chan error, 1)
	go func() {
		_, err := wb.Execute(context.Background())
		firstErr <- err
	}()
	<-firstEntered

	wb.Editor().SetText("second")
	trace, err := wb.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", trace.Code)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, stepview.ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first execution was not aborted")
	}

	assert.Equal(t, "second", wb.Trace().Code, "late result must not replace the newer trace")
	assert.Equal(t, domain.PhaseReady, wb.Phase())
}

func TestWorkbench_Cancel(t *testing.T) {
	entered := make(chan struct{})
	gw := ports.GatewayFunc(func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	wb := stepview.New(stepview.WithGateway(gw))
	defer wb.Close()

	done := make(chan error, 1)
	go func() {
		_, err := wb.Execute(context.Background())
		done <- err
	}()
	<-entered

	assert.True(t, wb.Cancel())
	assert.ErrorIs(t, <-done, stepview.ErrSuperseded)
	assert.Equal(t, domain.PhaseIdle, wb.Phase())
	assert.NoError(t, wb.LastError())
	assert.False(t, wb.Cancel(), "nothing left to cancel")
}

func TestWorkbench_CallerCancellationIsNotAnError(t *testing.T) {
	gw := ports.GatewayFunc(func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	wb := stepview.New(stepview.WithGateway(gw))
	defer wb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := wb.Execute(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.PhaseError, wb.Phase(), "a deadline is a failure")

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = wb.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.PhaseIdle, wb.Phase())
}

func TestWorkbench_FailureKeepsPreviousTrace(t *testing.T) {
	fail := false
	gw := ports.GatewayFunc(func(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
		if fail {
			return nil, &client.APIError{StatusCode: 500, Detail: "executor crashed"}
		}
		return threeSteps(req.Code), nil
	})
	wb := stepview.New(stepview.WithGateway(gw), stepview.WithScheduler(playback.NewManualScheduler()))
	defer wb.Close()

	_, err := wb.Execute(context.Background())
	require.NoError(t, err)
	wb.Next()

	fail = true
	_, err = wb.Execute(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))

	assert.Equal(t, domain.PhaseError, wb.Phase())
	assert.Equal(t, 1, wb.Controller().Snapshot().Cursor)
	assert.Contains(t, wb.Screen().Error, "executor crashed")
}

func TestWorkbench_NoGateway(t *testing.T) {
	wb := stepview.New()
	defer wb.Close()

	_, err := wb.Execute(context.Background())
	assert.ErrorIs(t, err, stepview.ErrNoGateway)
	assert.Equal(t, domain.PhaseIdle, wb.Phase())
	assert.Equal(t, stepview.DefaultSource, wb.Editor().Text())
}

func TestWorkbench_LoadRecording(t *testing.T) {
	wb := stepview.New(stepview.WithScheduler(playback.NewManualScheduler()))
	defer wb.Close()

	trace := threeSteps(program)
	trace.TotalSteps = 99 // corrected on load
	require.NoError(t, wb.Load(trace))

	assert.Equal(t, 3, wb.Controller().Snapshot().Total)
	assert.Equal(t, 99, trace.TotalSteps, "caller's trace is not mutated")
	assert.Equal(t, program, wb.Editor().Text())
	assert.False(t, wb.Screen().Stale)

	wb.Editor().SetText("print('changed')")
	assert.True(t, wb.Screen().Stale)

	assert.ErrorIs(t, wb.Load(nil), domain.ErrNoTrace)
}

func TestWorkbench_SubscribeAndAutoplay(t *testing.T) {
	sched := playback.NewManualScheduler()
	wb := stepview.New(stepview.WithGateway(echoGateway()), stepview.WithScheduler(sched))
	defer wb.Close()

	var mu sync.Mutex
	var cursors []int
	unsubscribe := wb.Subscribe(func(s render.Screen) {
		mu.Lock()
		defer mu.Unlock()
		if s.Step != nil {
			cursors = append(cursors, s.Playback.Cursor)
		}
	})

	_, err := wb.Execute(context.Background())
	require.NoError(t, err)
	require.True(t, wb.Play().Playing())
	sched.FireAll(10)

	mu.Lock()
	assert.Equal(t, []int{0, 0, 0, 1, 2}, cursors) // load, ready, play, tick, finish
	mu.Unlock()

	unsubscribe()
	wb.Reset()
	mu.Lock()
	assert.Len(t, cursors, 5)
	mu.Unlock()
	assert.Equal(t, 1, wb.Editor().Highlighted())
}

func TestWorkbench_ReadyOnlyWithNewTrace(t *testing.T) {
	var wb *stepview.Workbench
	var done render.Screen
	wb = stepview.New(
		stepview.WithGateway(echoGateway()),
		stepview.WithScheduler(playback.NewManualScheduler()),
		stepview.WithLifecycleHooks(domain.LifecycleHooks{
			OnExecuteDone: func(context.Context, *domain.ExecutionEvent) { done = wb.Screen() },
		}),
	)
	defer wb.Close()

	old := threeSteps("old")
	old.Steps = old.Steps[:1]
	require.NoError(t, wb.Load(old))
	wb.Editor().SetText(program)

	_, err := wb.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseReady, done.Phase)
	assert.Equal(t, 3, done.Playback.Total, "ready is never shown with the previous trace")
	assert.False(t, done.Stale)
}

func TestWorkbench_HooksAndClose(t *testing.T) {
	var started, done int
	wb := stepview.New(
		stepview.WithGateway(echoGateway()),
		stepview.WithLifecycleHooks(domain.LifecycleHooks{
			OnExecuteStart: func(context.Context, *domain.ExecutionEvent) { started++ },
			OnExecuteDone: func(_ context.Context, e *domain.ExecutionEvent) {
				done++
				assert.Equal(t, 3, e.Steps)
			},
		}),
	)

	_, err := wb.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, done)

	require.NoError(t, wb.Close())
	require.NoError(t, wb.Close())
	_, err = wb.Execute(context.Background())
	assert.ErrorIs(t, err, stepview.ErrClosed)
}
