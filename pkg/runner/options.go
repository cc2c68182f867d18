package runner

import (
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithExecuteOnStart submits the editor's source as soon as Run starts.
func WithExecuteOnStart(enabled bool) Option {
	return func(r *Runner) {
		r.ExecuteOnStart = enabled
	}
}

// WithInterruptSource sets a channel that signals the runner to interrupt.
// An interrupt cancels the execution in flight, or ends Run when there is none.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.InterruptSource = ch
	}
}
