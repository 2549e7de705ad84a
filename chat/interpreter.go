package chat

import (
	"errors"
	"fmt"

	"github.com/cyberinferno/simplechat/logger"
)

// Operator-visible messages.
const (
	MsgListening        = "Server listening for connections on port %d"
	MsgStopped          = "Server has stopped listening for connections."
	MsgNotListening     = "Server is not listening for connections."
	MsgStartFailed      = "Couldn't listen for new clients."
	MsgClosed           = "Clients disconnected and server no longer listening."
	MsgCloseFailed      = "An error occurred while closing server."
	MsgTerminating      = "Terminating server."
	MsgPortSet          = "Port set to %d"
	MsgPort             = "Port: %d"
	MsgPortNotNumber    = "Port must be a number."
	MsgPortMissing      = "Enter the command followed by a port number"
	MsgPortOutOfRange   = "Port must be between 0 and 65535."
	MsgPortWhileRunning = "Cannot change port while listening. Use #stop or #close first."
)

// HelpText lists the operator commands.
const HelpText = `The command qualifier was used without a valid command.
here's a list of valid commands:
#quit stops the server and terminates the server process.
#stop stops the server listening for new clients.
#close closes server socket and disconnects all clients.
#start starts the server listening for new clients.
#setport <port> sets the port number.
#getport displays the current port number.`

// SessionCloser disconnects every client.
type SessionCloser interface {
	CloseAll() error
}

// Interpreter applies operator lines to the server. Its output goes to the
// operator log.
type Interpreter struct {
	state       *ListeningState
	broadcaster *Broadcaster
	sessions    SessionCloser
	log         logger.Logger
	terminate   func()
}

// NewInterpreter wires an Interpreter. terminate is called once #quit has
// closed everything.
func NewInterpreter(state *ListeningState, broadcaster *Broadcaster, sessions SessionCloser, log logger.Logger, terminate func()) *Interpreter {
	return &Interpreter{
		state:       state,
		broadcaster: broadcaster,
		sessions:    sessions,
		log:         log,
		terminate:   terminate,
	}
}

// HandleLine parses and executes one operator line.
func (i *Interpreter) HandleLine(line string) {
	i.Execute(ParseCommand(line))
}

// Execute runs a parsed command.
func (i *Interpreter) Execute(cmd Command) {
	switch cmd.Kind {
	case CmdEmpty:
	case CmdChat:
		msg := ServerMessagePrefix + cmd.Text
		i.broadcaster.Broadcast(msg)
		i.log.Info(msg)
	case CmdQuit:
		i.closeServer()
		i.log.Info(MsgTerminating)
		i.terminate()
	case CmdStop:
		i.stopListening()
	case CmdClose:
		i.closeServer()
	case CmdStart:
		_ = i.StartListening()
	case CmdSetPort:
		i.setPort(cmd)
	case CmdGetPort:
		i.log.Info(fmt.Sprintf(MsgPort, i.state.Port()))
	default:
		i.log.Info(HelpText)
	}
}

// StartListening moves the server to Listening and reports the outcome.
func (i *Interpreter) StartListening() error {
	if err := i.state.Start(); err != nil {
		i.log.Error(MsgStartFailed, logger.Field{Key: "error", Value: err})
		return err
	}

	i.log.Info(fmt.Sprintf(MsgListening, i.state.Port()))
	return nil
}

func (i *Interpreter) stopListening() {
	changed, err := i.state.Stop()
	if err != nil {
		i.log.Error("stop listening failed", logger.Field{Key: "error", Value: err})
	}

	if changed {
		i.log.Info(MsgStopped)
	} else {
		i.log.Info(MsgNotListening)
	}
}

// closeServer stops listening and disconnects every client. Failures are
// reported and the sequence always runs to the end.
func (i *Interpreter) closeServer() {
	changed, err := i.state.Stop()
	if err != nil {
		i.log.Error(MsgCloseFailed, logger.Field{Key: "error", Value: err})
	}
	if changed {
		i.log.Info(MsgStopped)
	}

	if err := i.sessions.CloseAll(); err != nil {
		i.log.Error(MsgCloseFailed, logger.Field{Key: "error", Value: err})
	}

	i.log.Info(MsgClosed)
}

func (i *Interpreter) setPort(cmd Command) {
	switch {
	case errors.Is(cmd.Err, ErrMissingPort):
		i.log.Warn(MsgPortMissing)
		return
	case errors.Is(cmd.Err, ErrPortNotNumber):
		i.log.Warn(MsgPortNotNumber)
		return
	case errors.Is(cmd.Err, ErrPortOutOfRange):
		i.log.Warn(MsgPortOutOfRange)
		return
	}

	if err := i.state.SetPort(cmd.Port); err != nil {
		i.log.Warn(MsgPortWhileRunning, logger.Field{Key: "error", Value: err})
		return
	}

	i.log.Info(fmt.Sprintf(MsgPortSet, cmd.Port))
}
