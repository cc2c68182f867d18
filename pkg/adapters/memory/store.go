package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stepview/pkg/domain"
)

// Store implements ports.TraceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Recording
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Recording),
	}
}

// Save keeps a copy of the recording. Traces are immutable once received, so
// the trace itself is shared rather than cloned.
func (s *Store) Save(ctx context.Context, rec *domain.Recording) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidTrace
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = *rec
	return nil
}

// Load retrieves a copy of the recording.
func (s *Store) Load(ctx context.Context, id string) (*domain.Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, domain.ErrTraceNotFound
	}
	return &rec, nil
}

// Delete removes the recording.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
