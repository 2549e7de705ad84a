package chat

import (
	"fmt"

	"github.com/cyberinferno/simplechat/handle"
	"github.com/cyberinferno/simplechat/safemap"
)

// Registry is the set of sessions whose connection is open from the relay's
// point of view. It is safe for concurrent use; iteration works on a snapshot
// ordered by handle.
type Registry struct {
	sessions *safemap.SafeMap[handle.Handle, *Session]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: safemap.NewSafeMap[handle.Handle, *Session]()}
}

// Add registers s.
//
// Returns:
//   - ErrDuplicateConnection if a session with the same handle is registered
func (r *Registry) Add(s *Session) error {
	if !r.sessions.Insert(s.Handle(), s) {
		return fmt.Errorf("add %s: %w", s.Handle(), ErrDuplicateConnection)
	}

	return nil
}

// Remove unregisters the session of h and returns it. Removing an unknown
// handle is a no-op, so repeated disconnect notifications are harmless.
func (r *Registry) Remove(h handle.Handle) (*Session, bool) {
	return r.sessions.Delete(h)
}

// Get returns the session of h.
func (r *Registry) Get(h handle.Handle) (*Session, bool) {
	return r.sessions.Load(h)
}

// ForEach calls fn for every session of a snapshot taken at call time. fn may
// add or remove sessions; the running iteration is not affected.
func (r *Registry) ForEach(fn func(s *Session)) {
	for _, s := range r.sessions.Snapshot() {
		fn(s)
	}
}

// Snapshot returns the registered sessions ordered by handle.
func (r *Registry) Snapshot() []*Session {
	return r.sessions.Snapshot()
}

// Drain unregisters every session and returns them ordered by handle.
func (r *Registry) Drain() []*Session {
	return r.sessions.Drain()
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}
