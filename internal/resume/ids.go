package resume

import (
	"sync"

	"github.com/google/uuid"
)

// IDSource produces entry ids. Ids are never reused.
type IDSource interface {
	NewID() string
}

// IDSourceFunc adapts a function to IDSource.
type IDSourceFunc func() string

// NewID calls f.
func (f IDSourceFunc) NewID() string { return f() }

// UUIDSource issues random version 4 UUIDs (122 random bits).
type UUIDSource struct{}

// NewID returns a fresh random UUID string.
func (UUIDSource) NewID() string { return uuid.NewString() }

var (
	idSourceMu sync.RWMutex
	idSource   IDSource = UUIDSource{}
)

// SetIDSource replaces the process-wide id source and returns a function that
// restores the previous one. Intended for tests.
func SetIDSource(src IDSource) (restore func()) {
	idSourceMu.Lock()
	prev := idSource
	idSource = src
	idSourceMu.Unlock()
	return func() {
		idSourceMu.Lock()
		idSource = prev
		idSourceMu.Unlock()
	}
}

func newID() string {
	idSourceMu.RLock()
	defer idSourceMu.RUnlock()
	return idSource.NewID()
}
