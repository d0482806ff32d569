package auth

import (
	"sync"

	"github.com/jonathan/resume-builder/internal/types"
)

// Tracker holds the signed-in user as seen by the editor shell. It starts
// loading and stops loading at the first definitive answer, whatever that
// answer is.
type Tracker struct {
	mu      sync.RWMutex
	user    *types.Identity
	loading bool
	err     error
}

// NewTracker returns a tracker in the loading state.
func NewTracker() *Tracker {
	return &Tracker{loading: true}
}

// Resolve records the outcome of a sign-in check. A nil identity means
// signed out.
func (t *Tracker) Resolve(user *types.Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user = user
	t.err = nil
	t.loading = false
}

// Fail records that the check could not be completed. The user is treated
// as signed out.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user = nil
	t.err = err
	t.loading = false
}

// User returns the current identity, or nil.
func (t *Tracker) User() *types.Identity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.user
}

// Loading reports whether no answer has arrived yet.
func (t *Tracker) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading
}

// State returns a snapshot suitable for the wire.
func (t *Tracker) State() types.AuthState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := types.AuthState{User: t.user, IsLoading: t.loading}
	if t.err != nil {
		st.Error = t.err.Error()
	}
	return st
}
