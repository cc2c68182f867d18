package client

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/ports"
)

// Cached answers repeated executions of the same program from a TraceStore.
// Only completed traces of requests without stdin input are cached.
type Cached struct {
	next   ports.ExecutionGateway
	store  ports.TraceStore
	logger *slog.Logger
}

// NewCached wraps next with a cache backed by store.
func NewCached(next ports.ExecutionGateway, store ports.TraceStore, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cached{next: next, store: store, logger: logger}
}

// Execute implements ports.ExecutionGateway.
func (c *Cached) Execute(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
	if req.InputData != "" {
		return c.next.Execute(ctx, req)
	}

	key := domain.Fingerprint(req.Language, req.Code)
	rec, err := c.store.Load(ctx, key)
	switch {
	case err == nil && rec.Trace != nil:
		c.logger.Debug("trace cache hit", "fingerprint", key)
		return rec.Trace, nil
	case err != nil && !errors.Is(err, domain.ErrTraceNotFound):
		c.logger.Warn("trace cache lookup failed", "fingerprint", key, "error", err)
	}

	trace, err := c.next.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if trace.Status == domain.StatusCompleted {
		rec := domain.NewRecording(key, trace)
		rec.Fingerprint = key
		if err := c.store.Save(ctx, rec); err != nil {
			c.logger.Warn("failed to cache trace", "fingerprint", key, "error", err)
		}
	}
	return trace, nil
}

var _ ports.ExecutionGateway = (*Cached)(nil)
var _ ports.ExecutionGateway = (*Client)(nil)
var _ ports.CatalogGateway = (*Client)(nil)
