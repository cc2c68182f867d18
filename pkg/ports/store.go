package ports

import (
	"context"

	"github.com/aretw0/stepview/pkg/domain"
)

// TraceStore defines the interface for persisting recorded traces.
// This allows traces to be replayed offline and reused as a response cache.
type TraceStore interface {
	// Save persists the recording under rec.ID, replacing any previous one.
	Save(ctx context.Context, rec *domain.Recording) error

	// Load retrieves a recording by ID.
	// Returns domain.ErrTraceNotFound if the recording does not exist.
	Load(ctx context.Context, id string) (*domain.Recording, error)

	// Delete removes a recording. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored recordings.
	List(ctx context.Context) ([]string, error)
}
