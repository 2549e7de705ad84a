package chat

import (
	"errors"
	"strings"
	"sync"

	"github.com/cyberinferno/simplechat/handle"
	"github.com/cyberinferno/simplechat/logger"
)

var errFakeIO = errors.New("fake i/o failure")

// fakeTransport records everything the core asks of the connection layer.
type fakeTransport struct {
	mu          sync.Mutex
	sent        map[handle.Handle][]string
	closed      []handle.Handle
	listening   bool
	listenPorts []int
	listenErr   error
	stopErr     error
	failSend    map[handle.Handle]bool
	failClose   map[handle.Handle]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:      make(map[handle.Handle][]string),
		failSend:  make(map[handle.Handle]bool),
		failClose: make(map[handle.Handle]bool),
	}
}

func (f *fakeTransport) Listen(port int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listenErr != nil {
		return f.listenErr
	}

	f.listening = true
	f.listenPorts = append(f.listenPorts, port)
	return nil
}

func (f *fakeTransport) StopListening() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listening = false
	return f.stopErr
}

func (f *fakeTransport) Send(h handle.Handle, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSend[h] {
		return errFakeIO
	}

	f.sent[h] = append(f.sent[h], string(data))
	return nil
}

func (f *fakeTransport) Close(h handle.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = append(f.closed, h)
	if f.failClose[h] {
		return errFakeIO
	}

	return nil
}

func (f *fakeTransport) received(h handle.Handle) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[h]...)
}

func (f *fakeTransport) closedHandles() []handle.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]handle.Handle(nil), f.closed...)
}

func (f *fakeTransport) isListening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}

type logEntry struct {
	level string
	msg   string
}

// captureLogger keeps every entry; derived loggers share the same record.
type captureLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (c *captureLogger) add(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.entries = append(*c.entries, logEntry{level: level, msg: msg})
}

func (c *captureLogger) Debug(msg string, _ ...logger.Field) { c.add("debug", msg) }
func (c *captureLogger) Info(msg string, _ ...logger.Field)  { c.add("info", msg) }
func (c *captureLogger) Warn(msg string, _ ...logger.Field)  { c.add("warn", msg) }
func (c *captureLogger) Error(msg string, _ ...logger.Field) { c.add("error", msg) }
func (c *captureLogger) With(...logger.Field) logger.Logger  { return c }
func (c *captureLogger) Close() error                        { return nil }

func (c *captureLogger) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(*c.entries))
	for _, e := range *c.entries {
		out = append(out, e.msg)
	}

	return out
}

func (c *captureLogger) has(msg string) bool {
	for _, m := range c.messages() {
		if m == msg {
			return true
		}
	}

	return false
}

func (c *captureLogger) hasPrefix(prefix string) bool {
	for _, m := range c.messages() {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}

	return false
}

func (c *captureLogger) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.entries = nil
}

// newTestServer returns a stopped server on port 5555 over a fake transport.
func newTestServer() (*Server, *fakeTransport, *captureLogger) {
	transport := newFakeTransport()
	log := newCaptureLogger()
	srv := NewServer(transport, Options{Port: 5555, Logger: log})
	return srv, transport, log
}

// connect registers handle h as if the transport had accepted it.
func connect(srv *Server, h handle.Handle) {
	srv.OnConnect(h, "127.0.0.1:"+strings.TrimPrefix(h.String(), "conn-"))
}
