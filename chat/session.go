package chat

import (
	"fmt"
	"sync"

	"github.com/cyberinferno/simplechat/handle"
)

// Session is the relay's view of one live client connection. Only the
// connection's own reader goroutine changes the login state; the mutex lets
// the operator path read it while closing sessions.
type Session struct {
	handle     handle.Handle
	remoteAddr string

	mu         sync.Mutex
	loginID    string
	hasSentAny bool
}

// NewSession creates the session of a freshly accepted connection.
func NewSession(h handle.Handle, remoteAddr string) *Session {
	return &Session{handle: h, remoteAddr: remoteAddr}
}

// Handle returns the transport handle of the connection.
func (s *Session) Handle() handle.Handle {
	return s.handle
}

// RemoteAddr returns the peer address reported by the transport.
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// LoginID returns the login id, or "" before login.
func (s *Session) LoginID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginID
}

// Authenticated reports whether the session has logged in.
func (s *Session) Authenticated() bool {
	return s.LoginID() != ""
}

// HasSentAny reports whether a message from this session was processed.
func (s *Session) HasSentAny() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSentAny
}

// String identifies the session in operator messages.
func (s *Session) String() string {
	return fmt.Sprintf("%s (%s)", s.remoteAddr, s.handle)
}

// setLoginID sets the login id once; the id never changes afterwards.
func (s *Session) setLoginID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loginID != "" {
		return ErrDuplicateLogin
	}

	s.loginID = id
	return nil
}

func (s *Session) markSent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSentAny = true
}
