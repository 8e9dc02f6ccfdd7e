package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gradereport/internal/infrastructure"
	"gradereport/pkg/contracts/domain"
)

// Session is one parsed upload. The dataset is never modified after it is
// stored, so sessions can be shared between requests without copying.
type Session struct {
	ID        string
	Dataset   *domain.Dataset
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore keeps parsed datasets in memory. Expiry is checked lazily on
// access and by Sweep.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
	now      func() time.Time
	onRemove []func(ctx context.Context, id string)
}

// NewSessionStore creates a store. max of zero means unlimited.
func NewSessionStore(ttl time.Duration, max int, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "session_store")),
		now:      time.Now,
	}
}

// OnRemove registers fn to be called after a session is deleted or
// expires. Callbacks run without the store lock held.
func (s *SessionStore) OnRemove(fn func(ctx context.Context, id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = append(s.onRemove, fn)
}

// Put stores a dataset under its ID.
func (s *SessionStore) Put(ctx context.Context, ds *domain.Dataset) (Session, error) {
	session, removed, err := s.put(ctx, ds)
	s.notify(ctx, removed)
	if err != nil {
		return Session{}, err
	}

	s.logger.DebugContext(ctx, "session stored",
		slog.String("session_id", ds.ID),
		slog.Int("observations", len(ds.Observations)),
		slog.Time("expires_at", session.ExpiresAt))
	return session, nil
}

func (s *SessionStore) put(ctx context.Context, ds *domain.Dataset) (Session, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.sweepLocked()
	if s.max > 0 && len(s.sessions) >= s.max {
		s.recordChange(ctx, -int64(len(removed)))
		return Session{}, removed, ErrTooManySessions
	}

	now := s.now()
	session := &Session{
		ID:        ds.ID,
		Dataset:   ds,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	_, replaced := s.sessions[ds.ID]
	s.sessions[ds.ID] = session

	delta := int64(1 - len(removed))
	if replaced {
		delta--
	}
	s.recordChange(ctx, delta)
	return *session, removed, nil
}

// Get returns a live session and extends its expiry.
func (s *SessionStore) Get(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()

	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}

	now := s.now()
	if !now.Before(session.ExpiresAt) {
		delete(s.sessions, id)
		s.recordChange(ctx, -1)
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "session expired", slog.String("session_id", id))
		s.notify(ctx, []string{id})
		return Session{}, ErrSessionNotFound
	}

	session.ExpiresAt = now.Add(s.ttl)
	out := *session
	s.mu.Unlock()
	return out, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.recordChange(ctx, -1)
	s.mu.Unlock()

	s.notify(ctx, []string{id})
	return nil
}

// Len returns the number of stored sessions, expired ones included until
// they are swept.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	removed := s.sweepLocked()
	s.recordChange(ctx, -int64(len(removed)))
	s.mu.Unlock()

	if len(removed) > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed", slog.Int("count", len(removed)))
		s.notify(ctx, removed)
	}
	return len(removed)
}

// Run sweeps on every tick until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *SessionStore) sweepLocked() []string {
	now := s.now()
	var removed []string
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// notify must be called without s.mu held.
func (s *SessionStore) notify(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	s.mu.RLock()
	callbacks := s.onRemove
	s.mu.RUnlock()
	for _, id := range ids {
		for _, fn := range callbacks {
			fn(ctx, id)
		}
	}
}

func (s *SessionStore) recordChange(ctx context.Context, delta int64) {
	if delta != 0 {
		infrastructure.RecordActiveSessionChange(ctx, s.metrics, delta)
	}
}
