package chatclient

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineServer accepts connections and records the lines each one sends.
type lineServer struct {
	ln    net.Listener
	mu    sync.Mutex
	conns []net.Conn
	lines []string
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &lineServer{ln: ln}
	go s.accept()
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, c := range s.conns {
			_ = c.Close()
		}
	})

	return s
}

func (s *lineServer) accept() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		go func() {
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				s.mu.Lock()
				s.lines = append(s.lines, scanner.Text())
				s.mu.Unlock()
			}
		}()
	}
}

func (s *lineServer) addr() string {
	return s.ln.Addr().String()
}

func (s *lineServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *lineServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *lineServer) write(t *testing.T, i int, data string) {
	t.Helper()

	s.mu.Lock()
	conn := s.conns[i]
	s.mu.Unlock()

	_, err := conn.Write([]byte(data))
	require.NoError(t, err)
}

func (s *lineServer) drop(i int) {
	s.mu.Lock()
	conn := s.conns[i]
	s.mu.Unlock()
	_ = conn.Close()
}

type stateLog struct {
	mu     sync.Mutex
	states []ConnectionState
}

func (l *stateLog) record(e ConnectionStateEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, e.State)
}

func (l *stateLog) snapshot() []ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ConnectionState(nil), l.states...)
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "Disconnected", Disconnected.String())
	assert.Equal(t, "Connecting", Connecting.String())
	assert.Equal(t, "Connected", Connected.String())
	assert.Equal(t, "Reconnecting", Reconnecting.String())
	assert.Equal(t, "Closed", Closed.String())
	assert.Equal(t, "Unknown", ConnectionState(99).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("localhost:5555")
	assert.Equal(t, "localhost:5555", cfg.Address)
	assert.False(t, cfg.AutoReconnect)
	assert.Equal(t, 5*time.Second, cfg.ReconnectInterval)
	assert.Equal(t, 4096, cfg.MaxLineLength)
}

func TestClient_SendBeforeConnect(t *testing.T) {
	c := New(DefaultConfig("127.0.0.1:1"))
	assert.Equal(t, Disconnected, c.State())
	assert.ErrorIs(t, c.Send("hi"), ErrNotConnected)
}

func TestClient_ConnectSendReceive(t *testing.T) {
	server := newLineServer(t)
	c := New(DefaultConfig(server.addr()))
	t.Cleanup(func() { _ = c.Close() })

	states := &stateLog{}
	c.OnConnectionState(states.record)

	var mu sync.Mutex
	var lines []string
	c.OnLine(func(e LineEvent) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, e.Line)
	})

	require.NoError(t, c.Connect())
	assert.Equal(t, Connected, c.State())
	assert.Equal(t, []ConnectionState{Connecting, Connected}, states.snapshot())

	t.Run("second connect fails", func(t *testing.T) {
		assert.Error(t, c.Connect())
	})

	t.Run("login and send arrive as lines", func(t *testing.T) {
		require.NoError(t, c.Login("alice"))
		require.NoError(t, c.Send("hi"))

		require.Eventually(t, func() bool {
			return len(server.received()) == 2
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"#login alice", "hi"}, server.received())
	})

	t.Run("received lines are delivered in order", func(t *testing.T) {
		require.Eventually(t, func() bool { return server.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)
		server.write(t, 0, "alice> hi\r\nbob> yo\n")

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(lines) == 2
		}, 2*time.Second, 10*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"alice> hi", "bob> yo"}, lines)
	})
}

func TestClient_ServerDrop(t *testing.T) {
	server := newLineServer(t)
	c := New(DefaultConfig(server.addr()))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Connect())
	require.Eventually(t, func() bool { return server.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	server.drop(0)

	require.Eventually(t, func() bool {
		return c.State() == Disconnected
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, c.Send("late"), ErrNotConnected)
}

func TestClient_AutoReconnect(t *testing.T) {
	server := newLineServer(t)
	cfg := DefaultConfig(server.addr())
	cfg.AutoReconnect = true
	cfg.ReconnectInterval = 20 * time.Millisecond

	c := New(cfg)
	t.Cleanup(func() { _ = c.Close() })

	states := &stateLog{}
	c.OnConnectionState(states.record)

	require.NoError(t, c.Connect())
	require.Eventually(t, func() bool { return server.connCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	server.drop(0)

	require.Eventually(t, func() bool {
		return server.connCount() == 2 && c.State() == Connected
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, states.snapshot(), Reconnecting)
}

func TestClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := New(DefaultConfig(addr))

	var errs []ErrorEvent
	c.OnError(func(e ErrorEvent) { errs = append(errs, e) })

	assert.Error(t, c.Connect())
	assert.Equal(t, Disconnected, c.State())
	assert.Len(t, errs, 1)
}

func TestClient_Close(t *testing.T) {
	server := newLineServer(t)
	c := New(DefaultConfig(server.addr()))
	require.NoError(t, c.Connect())

	require.NoError(t, c.Close())
	assert.Equal(t, Closed, c.State())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Connect(), ErrClientClosed)
	assert.ErrorIs(t, c.Send("x"), ErrNotConnected)
}
