package domain

import (
	"context"
	"time"
)

// Action names a playback transition.
type Action string

const (
	ActionLoad     Action = "load"
	ActionPlay     Action = "play"
	ActionPause    Action = "pause"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionReset    Action = "reset"
	ActionSeek     Action = "seek"
	ActionTick     Action = "tick"
	ActionFinish   Action = "finish"
)

// ParseAction maps a user command onto a manual playback action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionPlay, ActionPause, ActionNext, ActionPrevious, ActionReset:
		return Action(s), true
	}
	return "", false
}

// TransitionEvent is emitted after every playback transition.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	From      Snapshot  `json:"from"`
	To        Snapshot  `json:"to"`
}

// ExecutionEvent describes one execution request.
type ExecutionEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Language  Language      `json:"language"`
	Steps     int           `json:"steps,omitempty"`
	Status    Status        `json:"status,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnTransition     func(context.Context, *TransitionEvent)
	OnExecuteStart   func(context.Context, *ExecutionEvent)
	OnExecuteDone    func(context.Context, *ExecutionEvent)
	OnExecuteFailed  func(context.Context, *ExecutionEvent)
	OnExecuteAborted func(context.Context, *ExecutionEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition:     chain(h.OnTransition, other.OnTransition),
		OnExecuteStart:   chain(h.OnExecuteStart, other.OnExecuteStart),
		OnExecuteDone:    chain(h.OnExecuteDone, other.OnExecuteDone),
		OnExecuteFailed:  chain(h.OnExecuteFailed, other.OnExecuteFailed),
		OnExecuteAborted: chain(h.OnExecuteAborted, other.OnExecuteAborted),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
