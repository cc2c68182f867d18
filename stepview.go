package stepview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/editor"
	"github.com/aretw0/stepview/pkg/playback"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/aretw0/stepview/pkg/render"
)

// DefaultSource is the program a fresh workbench starts with.
const DefaultSource = `def factorial(n):
    if n <= 1:
        return 1
    else:
        return n * factorial(n - 1)

result = factorial(5)
print(f"5! = {result}")
`

var (
	// ErrNoGateway is returned by Execute when no execution gateway is configured.
	ErrNoGateway = errors.New("no execution gateway configured")

	// ErrSuperseded is returned to an execution whose result was discarded
	// because a newer execution, a cancel or a direct load replaced it.
	ErrSuperseded = errors.New("execution superseded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("workbench closed")
)

// Workbench is the host that wires editor, gateway, playback and rendering.
type Workbench struct {
	editor     *editor.Buffer
	controller *playback.Controller
	gateway    ports.ExecutionGateway
	hooks      domain.LifecycleHooks
	logger     *slog.Logger

	ctlOpts   []playback.Option
	source    string
	language  domain.Language
	inputData string
	timeout   int

	// execMu serializes the start and the end of executions so a stale
	// result can never be loaded after a newer one.
	execMu  sync.Mutex
	mu      sync.Mutex
	phase   domain.Phase
	lastErr error
	cancel  context.CancelFunc
	gen     uint64
	closed  bool

	subMu       sync.Mutex
	subscribers map[int]func(render.Screen)
	nextSub     int
	unwatchEdit func()
}

// Option defines a functional option for configuring the Workbench.
type Option func(*Workbench)

// WithGateway sets the execution backend.
func WithGateway(gw ports.ExecutionGateway) Option {
	return func(w *Workbench) {
		w.gateway = gw
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workbench) {
		w.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workbench) {
		w.hooks = w.hooks.Merge(hooks)
	}
}

// WithInterval sets the autoplay cadence.
func WithInterval(d time.Duration) Option {
	return func(w *Workbench) {
		w.ctlOpts = append(w.ctlOpts, playback.WithInterval(d))
	}
}

// WithScheduler replaces the wall-clock autoplay scheduler.
func WithScheduler(s playback.Scheduler) Option {
	return func(w *Workbench) {
		w.ctlOpts = append(w.ctlOpts, playback.WithScheduler(s))
	}
}

// WithSource sets the initial source text and language.
func WithSource(text string, language domain.Language) Option {
	return func(w *Workbench) {
		w.source = text
		w.language = language
	}
}

// WithInput sets the standard input passed to every execution.
func WithInput(data string) Option {
	return func(w *Workbench) {
		w.inputData = data
	}
}

// WithRequestTimeout sets the per-execution timeout in seconds sent to the backend.
func WithRequestTimeout(seconds int) Option {
	return func(w *Workbench) {
		w.timeout = seconds
	}
}

// New creates a Workbench in the idle phase.
func New(opts ...Option) *Workbench {
	w := &Workbench{
		source:      DefaultSource,
		language:    domain.LanguagePython,
		phase:       domain.PhaseIdle,
		subscribers: make(map[int]func(render.Screen)),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	w.editor = editor.New(w.source, w.language, editor.WithLogger(w.logger))
	w.unwatchEdit = w.editor.OnChange(func(string) { w.publish() })

	ctlOpts := append([]playback.Option{
		playback.WithLogger(w.logger),
		playback.WithHooks(domain.LifecycleHooks{OnTransition: w.onTransition}),
		playback.WithHooks(domain.LifecycleHooks{OnTransition: w.hooks.OnTransition}),
	}, w.ctlOpts...)
	w.controller = playback.New(ctlOpts...)
	return w
}

// Editor returns the source editor.
func (w *Workbench) Editor() *editor.Buffer { return w.editor }

// Controller returns the playback controller.
func (w *Workbench) Controller() *playback.Controller { return w.controller }

// Phase returns the host phase.
func (w *Workbench) Phase() domain.Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// IsExecuting reports whether an execution request is in flight.
func (w *Workbench) IsExecuting() bool {
	return w.Phase() == domain.PhaseExecuting
}

// LastError returns the error of the last failed execution, or nil.
func (w *Workbench) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Execute submits the editor's source and loads the resulting trace.
// A call made while another execution is in flight aborts that one.
// On failure no trace is loaded and the workbench enters the error phase.
func (w *Workbench) Execute(ctx context.Context) (*domain.ExecutionState, error) {
	req := domain.ExecutionRequest{
		Code:      w.editor.Text(),
		Language:  w.editor.Language(),
		InputData: w.inputData,
		Timeout:   w.timeout,
	}

	w.execMu.Lock()
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.execMu.Unlock()
		return nil, ErrClosed
	}
	if w.gateway == nil {
		w.mu.Unlock()
		w.execMu.Unlock()
		return nil, ErrNoGateway
	}
	aborted := w.abortLocked()
	w.gen++
	gen := w.gen
	execCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.phase = domain.PhaseExecuting
	w.lastErr = nil
	w.mu.Unlock()
	w.execMu.Unlock()
	defer cancel()

	event := &domain.ExecutionEvent{Timestamp: time.Now(), Language: req.Language}
	if aborted && w.hooks.OnExecuteAborted != nil {
		w.hooks.OnExecuteAborted(ctx, &domain.ExecutionEvent{Timestamp: time.Now(), Language: req.Language})
	}
	if w.hooks.OnExecuteStart != nil {
		w.hooks.OnExecuteStart(ctx, event)
	}
	w.logger.Info("execution started", "language", req.Language, "bytes", len(req.Code))
	w.publish()

	trace, err := w.gateway.Execute(execCtx, req)
	event.Duration = time.Since(event.Timestamp)
	if err == nil && trace == nil {
		err = fmt.Errorf("%w: empty response", domain.ErrInvalidTrace)
	}
	if err == nil {
		trace = normalized(trace)
		if verr := trace.Validate(); verr != nil {
			err = verr
		}
	}

	w.execMu.Lock()
	defer w.execMu.Unlock()

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		w.logger.Debug("discarding superseded execution result", "language", req.Language)
		return nil, ErrSuperseded
	}
	w.cancel = nil

	if err != nil && errors.Is(err, context.Canceled) {
		// The caller went away; this is not a failure to display.
		w.phase = w.restingPhaseLocked()
		w.mu.Unlock()

		w.logger.Info("execution aborted", "language", req.Language)
		if w.hooks.OnExecuteAborted != nil {
			w.hooks.OnExecuteAborted(ctx, event)
		}
		w.publish()
		return nil, err
	}

	if err != nil {
		w.phase = domain.PhaseError
		w.lastErr = err
		w.mu.Unlock()

		event.Err = err
		w.logger.Error("execution failed", "language", req.Language, "error", err)
		if w.hooks.OnExecuteFailed != nil {
			w.hooks.OnExecuteFailed(ctx, event)
		}
		w.publish()
		return nil, err
	}

	w.mu.Unlock()

	// execMu keeps other executions out until the phase matches the trace.
	w.controller.Load(trace)
	w.mu.Lock()
	w.phase = domain.PhaseReady
	w.mu.Unlock()

	event.Steps = trace.TotalSteps
	event.Status = trace.Status
	w.logger.Info("execution finished",
		"language", req.Language,
		"steps", trace.TotalSteps,
		"status", trace.Status,
		"duration", event.Duration,
	)
	if w.hooks.OnExecuteDone != nil {
		w.hooks.OnExecuteDone(ctx, event)
	}
	w.publish()
	return trace, nil
}

// Cancel aborts the in-flight execution, if any. The workbench returns to
// the phase it had before the execution started.
func (w *Workbench) Cancel() bool {
	w.execMu.Lock()
	w.mu.Lock()
	aborted := w.abortLocked()
	if aborted {
		w.gen++
		w.phase = w.restingPhaseLocked()
	}
	w.mu.Unlock()
	w.execMu.Unlock()

	if aborted {
		w.logger.Info("execution cancelled")
		if w.hooks.OnExecuteAborted != nil {
			w.hooks.OnExecuteAborted(context.Background(), &domain.ExecutionEvent{Timestamp: time.Now(), Language: w.editor.Language()})
		}
		w.publish()
	}
	return aborted
}

// Load installs a trace directly, as when replaying a recording. The
// trace's source and language are copied into the editor without being
// treated as an edit of the loaded trace.
func (w *Workbench) Load(trace *domain.ExecutionState) error {
	if trace == nil {
		return domain.ErrNoTrace
	}
	trace = normalized(trace)
	if err := trace.Validate(); err != nil {
		return err
	}

	w.execMu.Lock()
	defer w.execMu.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.abortLocked()
	w.gen++
	w.mu.Unlock()

	if trace.Language.Valid() {
		_ = w.editor.SetLanguage(trace.Language)
	}
	if trace.Code != "" {
		w.editor.SetText(trace.Code)
	}
	w.controller.Load(trace)

	w.mu.Lock()
	w.phase = domain.PhaseReady
	w.lastErr = nil
	w.mu.Unlock()
	w.publish()
	return nil
}

// Play toggles autoplay.
func (w *Workbench) Play() domain.Snapshot { return w.controller.Play() }

// Resume starts autoplay unless it is already running.
func (w *Workbench) Resume() domain.Snapshot { return w.controller.Resume() }

// Pause stops autoplay.
func (w *Workbench) Pause() domain.Snapshot { return w.controller.Pause() }

// Next moves one step forward.
func (w *Workbench) Next() domain.Snapshot { return w.controller.Next() }

// Previous moves one step back.
func (w *Workbench) Previous() domain.Snapshot { return w.controller.Previous() }

// Reset rewinds to the first step.
func (w *Workbench) Reset() domain.Snapshot { return w.controller.Reset() }

// Seek jumps to a step.
func (w *Workbench) Seek(i int) domain.Snapshot { return w.controller.Seek(i) }

// Do applies a manual playback action by name.
func (w *Workbench) Do(action domain.Action) (domain.Snapshot, bool) {
	return w.controller.Do(action)
}

// Trace returns the loaded trace, or nil.
func (w *Workbench) Trace() *domain.ExecutionState { return w.controller.Trace() }

// Screen assembles the current display model.
func (w *Workbench) Screen() render.Screen {
	w.mu.Lock()
	phase, lastErr := w.phase, w.lastErr
	w.mu.Unlock()

	snap, trace := w.controller.State()
	s := render.NewScreen(phase, snap, trace)
	if s.Language == "" {
		s.Language = w.editor.Language()
	}
	if lastErr != nil {
		s.Error = lastErr.Error()
	}
	if trace != nil && trace.Code != "" && trace.Code != w.editor.Text() {
		s.Stale = true
	}
	return s
}

// Subscribe registers fn to receive a fresh Screen after every change.
// fn runs on the goroutine that caused the change (including the autoplay
// timer) and must not block.
func (w *Workbench) Subscribe(fn func(render.Screen)) (unsubscribe func()) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.subscribers[id] = fn

	return func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		delete(w.subscribers, id)
	}
}

// Close aborts any execution, stops the autoplay timer and drops subscribers.
func (w *Workbench) Close() error {
	w.execMu.Lock()
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.execMu.Unlock()
		return nil
	}
	w.closed = true
	w.abortLocked()
	w.gen++
	w.mu.Unlock()
	w.execMu.Unlock()

	w.controller.Close()
	w.unwatchEdit()

	w.subMu.Lock()
	w.subscribers = make(map[int]func(render.Screen))
	w.subMu.Unlock()
	return nil
}

func (w *Workbench) onTransition(_ context.Context, e *domain.TransitionEvent) {
	line := 0
	if step := w.controller.Current(); step != nil {
		line = step.Line
	}
	w.editor.Highlight(line)
	w.publish()
}

func (w *Workbench) publish() {
	w.subMu.Lock()
	if len(w.subscribers) == 0 {
		w.subMu.Unlock()
		return
	}
	fns := make([]func(render.Screen), 0, len(w.subscribers))
	for _, fn := range w.subscribers {
		fns = append(fns, fn)
	}
	w.subMu.Unlock()

	screen := w.Screen()
	for _, fn := range fns {
		fn(screen)
	}
}

// abortLocked cancels the in-flight request. Caller holds w.mu.
func (w *Workbench) abortLocked() bool {
	if w.cancel == nil {
		return false
	}
	w.cancel()
	w.cancel = nil
	return true
}

func (w *Workbench) restingPhaseLocked() domain.Phase {
	if w.controller.Trace() != nil {
		return domain.PhaseReady
	}
	return domain.PhaseIdle
}

// normalized returns a trace whose TotalSteps agrees with its steps,
// copying it when the original has to be corrected.
func normalized(trace *domain.ExecutionState) *domain.ExecutionState {
	if trace.TotalSteps == len(trace.Steps) {
		return trace
	}
	cp := *trace
	cp.Normalize()
	return &cp
}
