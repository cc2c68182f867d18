package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepview/pkg/domain"
)

// LogHooks returns lifecycle hooks that write structured log records.
// Transitions are logged at debug level since autoplay emits one per tick.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "playback",
				"action", e.Action,
				"state", e.To.State,
				"cursor", e.To.Cursor,
				"total", e.To.Total,
			)
		},
		OnExecuteStart: func(ctx context.Context, e *domain.ExecutionEvent) {
			logger.InfoContext(ctx, "execute_start", "language", e.Language)
		},
		OnExecuteDone: func(ctx context.Context, e *domain.ExecutionEvent) {
			logger.InfoContext(ctx, "execute_done",
				"language", e.Language,
				"steps", e.Steps,
				"status", e.Status,
				"duration", e.Duration,
			)
		},
		OnExecuteFailed: func(ctx context.Context, e *domain.ExecutionEvent) {
			logger.ErrorContext(ctx, "execute_failed", "language", e.Language, "error", e.Err)
		},
		OnExecuteAborted: func(ctx context.Context, e *domain.ExecutionEvent) {
			logger.InfoContext(ctx, "execute_aborted", "language", e.Language)
		},
	}
}
