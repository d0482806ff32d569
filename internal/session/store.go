package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/types"
)

// DefaultIdleTimeout is how long an untouched session is kept.
const DefaultIdleTimeout = 2 * time.Hour

// Store keeps sessions in memory, keyed by id and checked against the owner.
type Store struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*Session
	idleTimeout time.Duration
	now         func() time.Time
}

// NewStore creates an empty store. A non-positive idleTimeout uses DefaultIdleTimeout.
func NewStore(idleTimeout time.Duration) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Store{
		sessions:    make(map[uuid.UUID]*Session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create starts a new session for owner.
func (st *Store) Create(owner types.Identity, doc types.Document) *Session {
	s := newSession(uuid.New(), owner.ID, doc, st.now)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session if it exists and belongs to userID. Another
// user's session is reported as missing.
func (st *Store) Get(id, userID uuid.UUID) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || s.Owner != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns the ids of userID's sessions.
func (st *Store) List(userID uuid.UUID) []uuid.UUID {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var ids []uuid.UUID
	for id, s := range st.sessions {
		if s.Owner == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Delete removes a session owned by userID.
func (st *Store) Delete(id, userID uuid.UUID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok || s.Owner != userID {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the timeout. Sessions with work
// in flight are kept. It returns the number removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.idleTimeout)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		stale := s.touchedAt.Before(cutoff) && !s.busy()
		s.mu.Unlock()
		if stale {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				log.Printf("[SESSION] Evicted %d idle sessions", n)
			}
		}
	}
}
