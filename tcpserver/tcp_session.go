package tcpserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cyberinferno/simplechat/handle"
)

// ErrSessionClosed is returned by Send after Close.
var ErrSessionClosed = errors.New("tcpserver: session closed")

// Session is one accepted connection. Reads happen on the goroutine running
// Handle; Send and Close are safe to call from any goroutine.
type Session struct {
	id            handle.Handle
	conn          net.Conn
	remoteAddr    string
	maxLineLength int
	writeTimeout  time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

func newSession(id handle.Handle, conn net.Conn, maxLineLength int, writeTimeout time.Duration) *Session {
	return &Session{
		id:            id,
		conn:          conn,
		remoteAddr:    conn.RemoteAddr().String(),
		maxLineLength: maxLineLength,
		writeTimeout:  writeTimeout,
		closed:        make(chan struct{}),
	}
}

// ID returns the handle assigned by the server.
func (s *Session) ID() handle.Handle {
	return s.id
}

// RemoteAddr returns the peer address captured at accept time.
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// Handle reads newline-terminated lines and passes each one, without its
// terminator, to onLine. It returns when the connection is closed or a line
// exceeds the maximum length.
//
// Returns:
//   - nil on a clean end of stream or local close, otherwise the read error
func (s *Session) Handle(onLine func(line string)) error {
	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, min(s.maxLineLength+2, 4096)), s.maxLineLength+2)

	for scanner.Scan() {
		select {
		case <-s.closed:
			return nil
		default:
		}

		onLine(strings.TrimSuffix(scanner.Text(), "\r"))
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || s.isClosed() {
		return nil
	}

	return fmt.Errorf("read from %s: %w", s.id, err)
}

// Send writes data followed by a newline.
//
// Returns:
//   - ErrSessionClosed after Close, or the write error
func (s *Session) Send(data []byte) error {
	if s.isClosed() {
		return fmt.Errorf("send to %s: %w", s.id, ErrSessionClosed)
	}

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("send to %s: %w", s.id, err)
		}

		defer func() {
			_ = s.conn.SetWriteDeadline(time.Time{})
		}()
	}

	if _, err := s.conn.Write(line); err != nil {
		return fmt.Errorf("send to %s: %w", s.id, err)
	}

	return nil
}

// Close closes the connection. It is safe to call multiple times; later calls
// return the result of the first.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
