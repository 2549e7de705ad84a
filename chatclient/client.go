// Package chatclient provides an event-driven client for the relay's
// line-based protocol. Callers register handlers for connection state changes,
// received lines and errors, then Connect. Optional auto-reconnect is supported.
package chatclient

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// ConnectionState represents the current state of the connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected and not attempting to connect
	Connecting                          // Connection attempt in progress
	Connected                           // Successfully connected
	Reconnecting                        // Lost the connection and waiting to redial
	Closed                              // Client has been closed and will not reconnect
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Reconnecting:
		return "Reconnecting"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

var (
	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("chatclient: client is closed")
	// ErrNotConnected is returned by Send while no connection is open.
	ErrNotConnected = errors.New("chatclient: not connected")
)

// ConnectionStateEvent is emitted when the connection state changes.
type ConnectionStateEvent struct {
	State     ConnectionState
	Address   string
	Timestamp time.Time
	Error     error
}

// LineEvent carries one line received from the relay, terminator stripped.
type LineEvent struct {
	Line      string
	Timestamp time.Time
}

// ErrorEvent is emitted when a read, write or dial error occurs.
type ErrorEvent struct {
	Error     error
	Timestamp time.Time
}

// Handlers are called from the client's reader goroutine in event order; they
// must not block for long and must not call Close.
type (
	ConnectionStateHandler func(event ConnectionStateEvent)
	LineHandler            func(event LineEvent)
	ErrorHandler           func(event ErrorEvent)
)

// Config holds configuration for the client.
type Config struct {
	// Address is the "host:port" of the relay.
	Address string
	// AutoReconnect redials after the connection is lost.
	AutoReconnect bool
	// ReconnectInterval is the delay between reconnection attempts.
	ReconnectInterval time.Duration
	// WriteTimeout bounds a single line write; 0 means no timeout.
	WriteTimeout time.Duration
	// ConnectionTimeout bounds establishing a new connection.
	ConnectionTimeout time.Duration
	// MaxLineLength bounds a single received line.
	MaxLineLength int
}

// DefaultConfig returns a Config with default values for the given address.
//
// Returns:
//   - A Config with defaults: AutoReconnect false, ReconnectInterval 5s,
//     WriteTimeout 10s, ConnectionTimeout 10s, MaxLineLength 4096.
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		ReconnectInterval: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		ConnectionTimeout: 10 * time.Second,
		MaxLineLength:     4096,
	}
}

// Client is a line-oriented relay client. It is safe for concurrent use.
type Client struct {
	config Config

	mu      sync.RWMutex
	conn    net.Conn
	state   ConnectionState
	closed  bool
	onState ConnectionStateHandler
	onLine  LineHandler
	onError ErrorHandler

	writeMu sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Client in the Disconnected state.
func New(config Config) *Client {
	if config.MaxLineLength <= 0 {
		config.MaxLineLength = 4096
	}

	return &Client{
		config: config,
		state:  Disconnected,
		stop:   make(chan struct{}),
	}
}

// OnConnectionState registers the handler for state changes, replacing any previous one.
func (c *Client) OnConnectionState(handler ConnectionStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// OnLine registers the handler for received lines, replacing any previous one.
func (c *Client) OnLine(handler LineHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLine = handler
}

// OnError registers the handler for errors, replacing any previous one.
func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect dials the configured address and starts the reader goroutine.
//
// Returns:
//   - ErrClientClosed after Close, an error if already connected, or the dial error
func (c *Client) Connect() error {
	c.mu.RLock()
	closed, state := c.closed, c.state
	c.mu.RUnlock()

	if closed {
		return ErrClientClosed
	}
	if state == Connected || state == Connecting {
		return fmt.Errorf("chatclient: already %s", strings.ToLower(state.String()))
	}

	return c.connect()
}

// Send writes text as one line.
//
// Returns:
//   - ErrNotConnected while disconnected, or the write error
func (c *Client) Send(text string) error {
	c.mu.RLock()
	conn, state := c.conn, c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = conn.SetWriteDeadline(time.Time{})
		}()
	}

	if _, err := conn.Write([]byte(text + "\n")); err != nil {
		c.emitError(err)
		return err
	}

	return nil
}

// Login sends the login command for id.
func (c *Client) Login(id string) error {
	return c.Send("#login " + id)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Close shuts the client down and waits for its goroutines. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	close(c.stop)
	var err error
	if conn != nil {
		err = conn.Close()
	}

	c.wg.Wait()
	c.setState(Closed, nil)

	return err
}

func (c *Client) connect() error {
	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	conn, err := dialer.Dial("tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		c.emitError(err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClientClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)

	return nil
}

func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), c.config.MaxLineLength+2)
	for scanner.Scan() {
		c.emitLine(strings.TrimSuffix(scanner.Text(), "\r"))
	}

	if c.isClosed() {
		return
	}

	err := scanner.Err()
	if err != nil {
		c.emitError(err)
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()

	c.setState(Disconnected, err)

	if c.config.AutoReconnect {
		c.reconnect()
	}
}

func (c *Client) reconnect() {
	for {
		c.setState(Reconnecting, nil)

		select {
		case <-c.stop:
			return
		case <-time.After(c.config.ReconnectInterval):
		}

		if c.isClosed() {
			return
		}

		if err := c.connect(); err == nil || errors.Is(err, ErrClientClosed) {
			return
		}
	}
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(ConnectionStateEvent{
			State:     state,
			Address:   c.config.Address,
			Timestamp: time.Now(),
			Error:     err,
		})
	}
}

func (c *Client) emitLine(line string) {
	c.mu.RLock()
	handler := c.onLine
	c.mu.RUnlock()

	if handler != nil {
		handler(LineEvent{Line: line, Timestamp: time.Now()})
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		handler(ErrorEvent{Error: err, Timestamp: time.Now()})
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
