// Package tcpserver implements the line-framed TCP transport of the relay: it
// listens on a port, accepts connections, assigns each one a handle and runs a
// reader goroutine per connection that reports events to an EventHandler.
package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cyberinferno/simplechat/handle"
	"github.com/cyberinferno/simplechat/logger"
	"github.com/cyberinferno/simplechat/safemap"
)

const (
	// DefaultMaxLineLength bounds a single inbound line, terminator excluded.
	DefaultMaxLineLength = 4096
	// DefaultWriteTimeout bounds a single outbound line write.
	DefaultWriteTimeout = 10 * time.Second
)

var (
	// ErrAlreadyListening is returned by Listen while a listener is open.
	ErrAlreadyListening = errors.New("tcpserver: already listening")
	// ErrSessionNotFound is returned for handles with no open connection.
	ErrSessionNotFound = errors.New("tcpserver: session not found")
	// ErrNoHandler is returned by Listen before SetHandler.
	ErrNoHandler = errors.New("tcpserver: no event handler")
)

// EventHandler receives the connection events of a TCPServer. For a given
// handle, OnConnect happens before any OnMessage, messages are delivered in
// arrival order from a single goroutine, and OnDisconnect is the last call.
type EventHandler interface {
	OnConnect(h handle.Handle, remoteAddr string)
	OnMessage(h handle.Handle, text string)
	OnDisconnect(h handle.Handle)
}

// Options configures a TCPServer. Zero values select the package defaults.
type Options struct {
	Name          string
	Host          string
	MaxLineLength int
	WriteTimeout  time.Duration
	Logger        logger.Logger
}

// TCPServer accepts connections and delegates each one to a Session. Listening
// can be stopped and restarted, on a different port, while sessions stay open.
type TCPServer struct {
	Logger        logger.Logger
	Name          string
	Host          string
	MaxLineLength int
	WriteTimeout  time.Duration
	Sessions      *safemap.SafeMap[handle.Handle, *Session]
	Handles       *handle.Allocator

	handler EventHandler

	mu         sync.Mutex
	listener   net.Listener
	acceptDone chan struct{}
	sessions   sync.WaitGroup
	// connecting counts accepted connections whose OnConnect has not returned.
	connecting sync.WaitGroup
}

// NewTCPServer creates a TCPServer. SetHandler must be called before Listen.
//
// Parameters:
//   - opts: Server options; zero fields take defaults
//
// Returns:
//   - A new TCPServer
func NewTCPServer(opts Options) *TCPServer {
	if opts.Name == "" {
		opts.Name = "chat"
	}
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultMaxLineLength
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	return &TCPServer{
		Logger:        opts.Logger,
		Name:          opts.Name,
		Host:          opts.Host,
		MaxLineLength: opts.MaxLineLength,
		WriteTimeout:  opts.WriteTimeout,
		Sessions:      safemap.NewSafeMap[handle.Handle, *Session](),
		Handles:       handle.NewAllocator(0),
	}
}

// SetHandler sets the receiver of connection events. Connections accepted
// before the change keep reporting to the previous handler.
func (s *TCPServer) SetHandler(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Listen binds to port on Host and starts the accept loop in a goroutine.
// Port 0 picks an ephemeral port; see Addr.
//
// Returns:
//   - ErrAlreadyListening if a listener is open, or the bind error
func (s *TCPServer) Listen(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("server %s: %w", s.Name, ErrAlreadyListening)
	}

	if s.handler == nil {
		return fmt.Errorf("server %s: %w", s.Name, ErrNoHandler)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.Host, strconv.Itoa(port)))
	if err != nil {
		s.Logger.Error("server failed to listen", logger.Field{Key: "port", Value: port}, logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to listen: %w", s.Name, err)
	}

	done := make(chan struct{})
	s.listener = ln
	s.acceptDone = done
	s.Logger.Debug(fmt.Sprintf("%s server listening", s.Name), logger.Field{Key: "addr", Value: ln.Addr().String()})
	go s.acceptLoop(ln, s.handler, done)

	return nil
}

// StopListening closes the listener. Open sessions are not affected. Calling
// it while not listening is a no-op.
//
// When it returns, the accept loop has exited and OnConnect has returned for
// every connection accepted before the close, so a caller that then walks its
// own session list sees all of them. Listen and StopListening must not be
// called concurrently.
//
// Returns:
//   - An error if closing the listener failed
func (s *TCPServer) StopListening() error {
	s.mu.Lock()
	ln, done := s.listener, s.acceptDone
	s.listener, s.acceptDone = nil, nil
	s.mu.Unlock()

	if ln == nil {
		return nil
	}

	closeErr := ln.Close()
	<-done
	s.connecting.Wait()

	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return fmt.Errorf("server %s failed to stop listening: %w", s.Name, closeErr)
	}

	s.Logger.Debug(fmt.Sprintf("%s server stopped listening", s.Name))
	return nil
}

// Listening reports whether a listener is open.
func (s *TCPServer) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Addr returns the bound address, or nil while not listening.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Send writes data as one line to the connection identified by h.
//
// Returns:
//   - ErrSessionNotFound if h is not open, or the write error
func (s *TCPServer) Send(h handle.Handle, data []byte) error {
	session, ok := s.Sessions.Load(h)
	if !ok {
		return fmt.Errorf("send to %s: %w", h, ErrSessionNotFound)
	}

	return session.Send(data)
}

// Close closes the connection identified by h. Its reader goroutine observes
// the close and reports OnDisconnect.
//
// Returns:
//   - ErrSessionNotFound if h is not open, or the close error
func (s *TCPServer) Close(h handle.Handle) error {
	session, ok := s.Sessions.Load(h)
	if !ok {
		return fmt.Errorf("close %s: %w", h, ErrSessionNotFound)
	}

	return session.Close()
}

// Shutdown stops listening, closes every session and waits until all reader
// goroutines returned or ctx is done.
//
// Returns:
//   - ctx.Err() if the wait was cut short, otherwise nil
func (s *TCPServer) Shutdown(ctx context.Context) error {
	if err := s.StopListening(); err != nil {
		s.Logger.Warn("stop listening failed", logger.Field{Key: "error", Value: err})
	}

	s.Sessions.Range(func(h handle.Handle, session *Session) bool {
		_ = session.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.Logger.Debug(fmt.Sprintf("%s server shut down", s.Name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acceptLoop accepts connections on ln until ln is closed, then closes done.
// The listener is passed in so a restart on a new port never shares state
// with the old loop.
func (s *TCPServer) acceptLoop(ln net.Listener, handler EventHandler, done chan<- struct{}) {
	defer close(done)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name), logger.Field{Key: "error", Value: err})
			continue
		}

		session := newSession(s.Handles.Next(), conn, s.MaxLineLength, s.WriteTimeout)
		s.Sessions.Store(session.ID(), session)

		s.connecting.Add(1)
		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.serve(session, handler)
		}()
	}
}

func (s *TCPServer) serve(session *Session, handler EventHandler) {
	h := session.ID()
	handler.OnConnect(h, session.RemoteAddr())
	s.connecting.Done()

	err := session.Handle(func(line string) {
		handler.OnMessage(h, line)
	})
	if err != nil {
		s.Logger.Debug("session read ended", logger.Field{Key: "handle", Value: h.String()}, logger.Field{Key: "error", Value: err})
	}

	_ = session.Close()
	s.Sessions.Delete(h)
	handler.OnDisconnect(h)
}
