// Package chat is the connection lifecycle and message routing core of the
// relay: per-connection login enforcement, broadcast fan-out and the operator
// command interpreter that controls the listening state.
//
// The transport reports connection events to Server through OnConnect,
// OnMessage and OnDisconnect; the operator console feeds OnOperatorLine.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cyberinferno/simplechat/cooldown"
	"github.com/cyberinferno/simplechat/handle"
	"github.com/cyberinferno/simplechat/logger"
	"golang.org/x/sync/errgroup"
)

// ReplyCooldown is sent to hosts refused because of a recent kick.
const ReplyCooldown = "Try again later"

const cooldownLookupTimeout = 2 * time.Second

// Transport is what the core needs from the connection layer.
type Transport interface {
	Listener
	Sender
	Close(h handle.Handle) error
}

// Options configures a Server.
type Options struct {
	// Port is the initial listening port.
	Port int
	// Logger receives the operator display and diagnostics.
	Logger logger.Logger
	// Cooldown, with KickCooldown > 0, refuses hosts for a while after a kick.
	Cooldown     cooldown.Tracker
	KickCooldown time.Duration
}

// Server routes connection events and operator commands.
type Server struct {
	log          logger.Logger
	transport    Transport
	registry     *Registry
	gate         AuthGate
	broadcaster  *Broadcaster
	state        *ListeningState
	interpreter  *Interpreter
	cooldown     cooldown.Tracker
	kickCooldown time.Duration

	done     chan struct{}
	doneOnce sync.Once
}

// NewServer creates a Server delivering through transport. The server is
// stopped until Listen is called.
func NewServer(transport Transport, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	s := &Server{
		log:          opts.Logger,
		transport:    transport,
		registry:     NewRegistry(),
		cooldown:     opts.Cooldown,
		kickCooldown: opts.KickCooldown,
		done:         make(chan struct{}),
	}

	s.broadcaster = NewBroadcaster(s.registry, transport, opts.Logger)
	s.state = NewListeningState(transport, opts.Port)
	s.interpreter = NewInterpreter(s.state, s.broadcaster, s, opts.Logger, s.terminate)

	return s
}

// Listen starts accepting connections on the configured port.
func (s *Server) Listen() error {
	return s.interpreter.StartListening()
}

// Done is closed after #quit has shut the server down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Registry returns the live session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// State returns the listening state.
func (s *Server) State() *ListeningState {
	return s.state
}

// OnConnect registers the session of a new connection.
func (s *Server) OnConnect(h handle.Handle, remoteAddr string) {
	s.log.Info(fmt.Sprintf("Client connected from %s", remoteAddr), logger.Field{Key: "handle", Value: h.String()})

	if !h.Valid() {
		s.log.Error("Couldn't register client", logger.Field{Key: "remote", Value: remoteAddr}, logger.Field{Key: "reason", Value: "reserved handle"})
		_ = s.transport.Close(h)
		return
	}

	if s.coolingDown(remoteAddr) {
		s.log.Warn("Refusing client under cooldown", logger.Field{Key: "remote", Value: remoteAddr})
		s.sendPrivate(h, ReplyCooldown)
		if err := s.transport.Close(h); err != nil {
			s.log.Error("Couldn't close client", logger.Field{Key: "handle", Value: h.String()}, logger.Field{Key: "error", Value: err})
		}
		return
	}

	if err := s.registry.Add(NewSession(h, remoteAddr)); err != nil {
		s.log.Error("Couldn't register client", logger.Field{Key: "error", Value: err})
		_ = s.transport.Close(h)
	}
}

// OnMessage runs one inbound line through the login gate and routes the
// outcome. Lines from connections that are no longer registered are dropped.
func (s *Server) OnMessage(h handle.Handle, text string) {
	session, ok := s.registry.Get(h)
	if !ok {
		s.log.Debug("dropping message from closed session", logger.Field{Key: "handle", Value: h.String()})
		return
	}

	s.log.Info(fmt.Sprintf("Message received: %s from %s", text, session.RemoteAddr()))

	action := s.gate.OnMessage(session, text)
	switch action.Verdict {
	case VerdictConsumed:
		s.log.Debug("client logged in", logger.Field{Key: "handle", Value: h.String()}, logger.Field{Key: "login", Value: session.LoginID()})
	case VerdictReply:
		s.sendPrivate(h, action.Text)
	case VerdictKick:
		s.log.Warn(fmt.Sprintf("%s broke the login protocol. Kicking from server", session), logger.Field{Key: "error", Value: action.Err})
		s.sendPrivate(h, action.Text)
		s.kick(session)
	case VerdictBroadcast:
		s.broadcaster.Broadcast(action.Text)
	}
}

// OnDisconnect forgets a connection the transport lost. Unknown handles are
// ignored, which covers sessions the relay closed itself.
func (s *Server) OnDisconnect(h handle.Handle) {
	session, ok := s.registry.Remove(h)
	if !ok {
		return
	}

	s.logDisconnect(session)
}

// OnOperatorLine executes one line typed by the operator.
func (s *Server) OnOperatorLine(line string) {
	s.interpreter.HandleLine(line)
}

// CloseAll closes every session concurrently. Each failure is logged; the
// first one is returned after all closes were attempted.
func (s *Server) CloseAll() error {
	var g errgroup.Group
	for _, session := range s.registry.Drain() {
		g.Go(func() error {
			err := s.closeTransport(session)
			s.logDisconnect(session)
			return err
		})
	}

	return g.Wait()
}

// CloseSession closes one session from the control path.
func (s *Server) CloseSession(h handle.Handle) error {
	session, ok := s.registry.Remove(h)
	if !ok {
		return nil
	}

	defer s.logDisconnect(session)
	return s.closeTransport(session)
}

func (s *Server) kick(session *Session) {
	_ = s.CloseSession(session.Handle())

	if s.cooldown == nil || s.kickCooldown <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cooldownLookupTimeout)
	defer cancel()

	if err := s.cooldown.Mark(ctx, cooldown.HostOf(session.RemoteAddr()), s.kickCooldown); err != nil {
		s.log.Warn("Couldn't record cooldown", logger.Field{Key: "remote", Value: session.RemoteAddr()}, logger.Field{Key: "error", Value: err})
	}
}

func (s *Server) coolingDown(remoteAddr string) bool {
	if s.cooldown == nil || s.kickCooldown <= 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), cooldownLookupTimeout)
	defer cancel()

	active, err := s.cooldown.Active(ctx, cooldown.HostOf(remoteAddr))
	if err != nil {
		s.log.Warn("Couldn't check cooldown", logger.Field{Key: "remote", Value: remoteAddr}, logger.Field{Key: "error", Value: err})
		return false
	}

	return active
}

func (s *Server) closeTransport(session *Session) error {
	if err := s.transport.Close(session.Handle()); err != nil {
		s.log.Error("Couldn't close client", logger.Field{Key: "handle", Value: session.Handle().String()}, logger.Field{Key: "error", Value: err})
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}

	return nil
}

func (s *Server) sendPrivate(h handle.Handle, text string) {
	if err := s.transport.Send(h, []byte(text)); err != nil {
		s.log.Error("Couldn't send message to client", logger.Field{Key: "handle", Value: h.String()}, logger.Field{Key: "error", Value: err})
	}
}

func (s *Server) logDisconnect(session *Session) {
	s.log.Info(fmt.Sprintf("client %s disconnected from IP: %s", session.LoginID(), session.RemoteAddr()))
}

func (s *Server) terminate() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}
