package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/stepview"
	"github.com/aretw0/stepview/internal/logging"
	"github.com/aretw0/stepview/pkg/domain"
	"github.com/aretw0/stepview/pkg/ports"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLockTTL bounds how long a distributed session lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// KeyPrefix namespaces session traces in a TraceStore shared with the trace
// cache and recordings.
const KeyPrefix = "session-"

// StoreKey returns the TraceStore ID of a session's trace.
func StoreKey(sessionID string) string {
	return KeyPrefix + sessionID
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Session is a live workbench addressed by ID.
type Session struct {
	ID        string
	CreatedAt time.Time
	Workbench *stepview.Workbench
}

// Info summarizes a session for listings.
type Info struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Phase     domain.Phase    `json:"phase"`
	Language  domain.Language `json:"language"`
	Playback  domain.Snapshot `json:"playback"`
}

// Info returns the session's current summary.
func (s *Session) Info() Info {
	return Info{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Phase:     s.Workbench.Phase(),
		Language:  s.Workbench.Editor().Language(),
		Playback:  s.Workbench.Controller().Snapshot(),
	}
}

// Manager owns live sessions, serializes mutations per session and persists
// received traces so a session can be restored after a restart.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.TraceStore

	mu       sync.Mutex
	locks    map[string]*lockEntry
	sessions map[string]*Session

	locker  ports.DistributedLocker
	lockTTL time.Duration
	wbOpts  []stepview.Option
	active  prometheus.Gauge
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithWorkbenchOptions sets the options every new session's workbench is built with.
func WithWorkbenchOptions(opts ...stepview.Option) Option {
	return func(m *Manager) {
		m.wbOpts = append(m.wbOpts, opts...)
	}
}

// WithActiveGauge reports the number of live sessions on g.
func WithActiveGauge(g prometheus.Gauge) Option {
	return func(m *Manager) {
		m.active = g
	}
}

// NewManager creates a Session Manager persisting traces to store.
func NewManager(store ports.TraceStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create opens a new session with a fresh workbench.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	var s *Session
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		s = m.register(id, stepview.New(m.wbOpts...))
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("session created", "session_id", id)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// List summarizes live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	infos := make([]Info, len(sessions))
	for i, s := range sessions {
		infos[i] = s.Info()
	}
	return infos
}

// Execute runs the session's source and persists the resulting trace.
// The session lock is only held while persisting so a newer request can
// still supersede an in-flight one. A trace that is no longer the loaded one
// is not persisted.
func (m *Manager) Execute(ctx context.Context, sessionID string) (*domain.ExecutionState, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}

	trace, err := s.Workbench.Execute(ctx)
	if err != nil {
		return nil, err
	}

	if m.store != nil {
		err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
			if s.Workbench.Trace() != trace {
				m.logger.Debug("skipping persist of replaced trace", "session_id", sessionID)
				return nil
			}
			return m.store.Save(ctx, domain.NewRecording(StoreKey(sessionID), trace))
		})
		if err != nil {
			m.logger.Warn("failed to persist trace", "session_id", sessionID, "err", err)
		}
	}
	return trace, nil
}

// Restore returns the live session for sessionID, rebuilding it from its
// stored trace when it is not in memory. A restored session starts paused
// at the first step.
func (m *Manager) Restore(ctx context.Context, sessionID string) (*Session, error) {
	var s *Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if live, err := m.Get(sessionID); err == nil {
			s = live
			return nil
		}
		if m.store == nil {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}

		rec, err := m.store.Load(ctx, StoreKey(sessionID))
		if err != nil {
			if errors.Is(err, domain.ErrTraceNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
			}
			return fmt.Errorf("failed to load session trace: %w", err)
		}

		wb := stepview.New(m.wbOpts...)
		if err := wb.Load(rec.Trace); err != nil {
			_ = wb.Close()
			return fmt.Errorf("failed to restore session: %w", err)
		}
		s = m.register(sessionID, wb)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close shuts down a live session. Its stored trace is kept for Restore.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.unregister(sessionID)
		if err != nil {
			return err
		}
		m.logger.Info("session closed", "session_id", sessionID)
		return s.Workbench.Close()
	})
}

// Delete closes the session if live and removes its stored trace.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, liveErr := m.unregister(sessionID)
		if liveErr == nil {
			_ = s.Workbench.Close()
		}
		if m.store == nil {
			return liveErr
		}

		key := StoreKey(sessionID)
		if liveErr != nil {
			if _, err := m.store.Load(ctx, key); err != nil {
				if errors.Is(err, domain.ErrTraceNotFound) {
					return liveErr
				}
				return err
			}
		}
		if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrTraceNotFound) {
			return err
		}
		return nil
	})
}

// CloseAll shuts down every live session.
func (m *Manager) CloseAll(ctx context.Context) {
	for _, info := range m.List() {
		if err := m.Close(ctx, info.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			m.logger.Warn("failed to close session", "session_id", info.ID, "err", err)
		}
	}
}

// Store returns the underlying trace store.
func (m *Manager) Store() ports.TraceStore {
	return m.store
}

func (m *Manager) register(id string, wb *stepview.Workbench) *Session {
	s := &Session{ID: id, CreatedAt: time.Now().UTC(), Workbench: wb}

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	if m.active != nil {
		m.active.Set(float64(n))
	}
	return s
}

func (m *Manager) unregister(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if m.active != nil {
		m.active.Set(float64(n))
	}
	return s, nil
}
