package chat

import (
	"fmt"
	"sync"
)

// Listener opens and closes the accepting side of the transport.
type Listener interface {
	Listen(port int) error
	StopListening() error
}

// ListeningState is the server-wide listening flag and port. The port can only
// change while stopped. All transitions hold one mutex across the transport
// call, so they are atomic with respect to each other and to queries.
type ListeningState struct {
	listener Listener

	mu        sync.Mutex
	port      int
	listening bool
}

// NewListeningState returns a stopped state on port.
func NewListeningState(listener Listener, port int) *ListeningState {
	return &ListeningState{listener: listener, port: port}
}

// Start moves Stopped to Listening.
//
// Returns:
//   - ErrInvalidStateTransition if already listening
//   - ErrTransportFailure wrapping the listen error; the state stays Stopped
func (l *ListeningState) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listening {
		return fmt.Errorf("%w: already listening on port %d", ErrInvalidStateTransition, l.port)
	}

	if err := l.listener.Listen(l.port); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}

	l.listening = true
	return nil
}

// Stop moves Listening to Stopped. It reports whether a transition happened;
// the state is Stopped afterwards even if closing the listener failed.
func (l *ListeningState) Stop() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.listening {
		return false, nil
	}

	l.listening = false
	if err := l.listener.StopListening(); err != nil {
		return true, fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}

	return true, nil
}

// SetPort changes the port.
//
// Returns:
//   - ErrInvalidStateTransition while listening; the port is unchanged
func (l *ListeningState) SetPort(port int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.listening {
		return fmt.Errorf("%w: port cannot change while listening", ErrInvalidStateTransition)
	}

	l.port = port
	return nil
}

// Port returns the configured port.
func (l *ListeningState) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// Listening reports whether the server accepts new connections.
func (l *ListeningState) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}
