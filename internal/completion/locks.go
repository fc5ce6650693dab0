package completion

import (
	"errors"
	"sync"
)

// ErrRunInProgress indicates a completion run is already active for the
// session. At most one run may hold a session at a time; concurrent
// triggers are rejected rather than queued.
var ErrRunInProgress = errors.New("a completion run is already in progress for this session")

// sessionLocks grants at-most-one active run per session.
type sessionLocks struct {
	mu     sync.Mutex
	active map[string]bool
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{active: make(map[string]bool)}
}

// acquire reserves the session, returning ErrRunInProgress if it is held.
func (l *sessionLocks) acquire(sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[sessionID] {
		return ErrRunInProgress
	}
	l.active[sessionID] = true
	return nil
}

// release frees the session.
func (l *sessionLocks) release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, sessionID)
}
