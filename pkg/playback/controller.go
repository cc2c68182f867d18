package playback

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stepview/pkg/domain"
)

// DefaultInterval is the autoplay cadence: one step per second.
const DefaultInterval = time.Second

// Controller owns the playback cursor over an immutable trace.
// All methods are safe for concurrent use; transitions are serialized by a
// single mutex, and hooks run after the mutex is released.
type Controller struct {
	mu      sync.Mutex
	trace   *domain.ExecutionState
	cursor  int
	playing bool
	task    Task
	gen     uint64
	closed  bool

	interval  time.Duration
	scheduler Scheduler
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the autoplay cadence. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets a structured logger for transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHooks registers lifecycle hooks. Only OnTransition is used here.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// New creates a Controller in the Idle state.
func New(opts ...Option) *Controller {
	c := &Controller{
		interval:  DefaultInterval,
		scheduler: ClockScheduler{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load installs a new trace and forces Paused(0). A nil trace returns the
// controller to Idle. Any running autoplay is cancelled.
func (c *Controller) Load(trace *domain.ExecutionState) domain.Snapshot {
	return c.apply(domain.ActionLoad, func() {
		c.stopLocked()
		c.trace = trace
		c.cursor = 0
	})
}

// Play starts autoplay, or pauses it when already playing.
// On the last step it does nothing.
func (c *Controller) Play() domain.Snapshot {
	return c.apply(domain.ActionPlay, func() {
		if c.closed || c.trace == nil || c.cursor >= c.lastLocked() {
			return
		}
		if c.playing {
			c.stopLocked()
			return
		}
		c.playing = true
		c.scheduleLocked()
	})
}

// Resume starts autoplay unless it is already running.
// On the last step it does nothing.
func (c *Controller) Resume() domain.Snapshot {
	return c.apply(domain.ActionPlay, func() {
		if c.closed || c.trace == nil || c.playing || c.cursor >= c.lastLocked() {
			return
		}
		c.playing = true
		c.scheduleLocked()
	})
}

// Pause stops autoplay.
func (c *Controller) Pause() domain.Snapshot {
	return c.apply(domain.ActionPause, c.stopLocked)
}

// Next moves one step forward and pauses. On the last step only the pause applies.
func (c *Controller) Next() domain.Snapshot {
	return c.apply(domain.ActionNext, func() {
		c.stopLocked()
		if c.cursor < c.lastLocked() {
			c.cursor++
		}
	})
}

// Previous moves one step back and pauses. On the first step only the pause applies.
func (c *Controller) Previous() domain.Snapshot {
	return c.apply(domain.ActionPrevious, func() {
		c.stopLocked()
		if c.cursor > 0 {
			c.cursor--
		}
	})
}

// Reset rewinds to the first step and pauses.
func (c *Controller) Reset() domain.Snapshot {
	return c.apply(domain.ActionReset, func() {
		c.stopLocked()
		c.cursor = 0
	})
}

// Seek jumps to step i, clamped into the trace, and pauses.
func (c *Controller) Seek(i int) domain.Snapshot {
	return c.apply(domain.ActionSeek, func() {
		c.stopLocked()
		if c.trace == nil {
			return
		}
		c.cursor = max(0, min(i, c.lastLocked()))
	})
}

// Do applies a manual action by name. Named actions are idempotent, so
// ActionPlay resumes rather than toggles. Unknown actions report false.
func (c *Controller) Do(action domain.Action) (domain.Snapshot, bool) {
	switch action {
	case domain.ActionPlay:
		return c.Resume(), true
	case domain.ActionPause:
		return c.Pause(), true
	case domain.ActionNext:
		return c.Next(), true
	case domain.ActionPrevious:
		return c.Previous(), true
	case domain.ActionReset:
		return c.Reset(), true
	}
	return c.Snapshot(), false
}

// Close cancels any scheduled tick. Later calls to Play are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.closed = true
}

// SetInterval changes the autoplay cadence from the next tick on.
func (c *Controller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
}

// Interval returns the autoplay cadence.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Trace returns the loaded trace, or nil when Idle.
func (c *Controller) Trace() *domain.ExecutionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace
}

// State returns the snapshot together with the trace it refers to, read atomically.
func (c *Controller) State() (domain.Snapshot, *domain.ExecutionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(), c.trace
}

// Current returns the step under the cursor, or nil when there is none.
func (c *Controller) Current() *domain.ExecutionStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace.Step(c.cursor)
}

func (c *Controller) apply(action domain.Action, fn func()) domain.Snapshot {
	c.mu.Lock()
	from := c.snapshotLocked()
	fn()
	to := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(action, from, to)
	return to
}

func (c *Controller) emit(action domain.Action, from, to domain.Snapshot) {
	c.logger.Debug("playback transition",
		"action", action,
		"from", from.State, "from_cursor", from.Cursor,
		"to", to.State, "to_cursor", to.Cursor,
	)
	if c.hooks.OnTransition != nil {
		c.hooks.OnTransition(context.Background(), &domain.TransitionEvent{
			Timestamp: time.Now(),
			Action:    action,
			From:      from,
			To:        to,
		})
	}
}

// lastLocked returns the last valid cursor, or -1 for an empty trace.
func (c *Controller) lastLocked() int {
	return c.trace.Len() - 1
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	if c.trace == nil {
		return domain.Snapshot{State: domain.PlaybackIdle}
	}
	state := domain.PlaybackPaused
	if c.playing {
		state = domain.PlaybackPlaying
	}
	return domain.Snapshot{State: state, Cursor: c.cursor, Total: c.trace.Len()}
}

// stopLocked leaves Playing: it cancels the scheduled task and invalidates
// any tick that already fired but has not taken the lock yet.
func (c *Controller) stopLocked() {
	c.playing = false
	c.gen++
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
}

func (c *Controller) scheduleLocked() {
	gen := c.gen
	c.task = c.scheduler.Schedule(c.interval, func() { c.tick(gen) })
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.playing {
		c.mu.Unlock()
		return
	}

	from := c.snapshotLocked()
	action := domain.ActionTick
	c.task = nil
	if c.cursor < c.lastLocked() {
		c.cursor++
	}
	if c.cursor >= c.lastLocked() {
		c.stopLocked()
		action = domain.ActionFinish
	} else {
		c.scheduleLocked()
	}
	to := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(action, from, to)
}
