package chat

import (
	"errors"
	"fmt"
)

// Error kinds reported by the relay. Every error is handled at the boundary
// where it occurs (one connection, one command) and shown to the operator;
// none of them stops the server.
var (
	// ErrProtocolViolation: login attempted after other traffic, or content
	// sent before logging in. The session is closed.
	ErrProtocolViolation = errors.New("chat: protocol violation")

	// ErrDuplicateLogin: #LOGIN after a successful login. The session stays open.
	ErrDuplicateLogin = errors.New("chat: login id already set")

	// ErrEmptyLoginID: #LOGIN without an id. The session stays open.
	ErrEmptyLoginID = errors.New("chat: empty login id")

	// ErrMalformedCommand: operator command with a missing or invalid argument.
	ErrMalformedCommand = errors.New("chat: malformed command")

	// ErrTransportFailure: a send or close on one connection failed.
	ErrTransportFailure = errors.New("chat: transport failure")

	// ErrInvalidStateTransition: a command that is not valid in the current
	// listening state, such as setport while listening.
	ErrInvalidStateTransition = errors.New("chat: invalid state transition")

	// ErrDuplicateConnection: a handle was registered twice.
	ErrDuplicateConnection = errors.New("chat: duplicate connection")
)

// Malformed command details; all of them wrap ErrMalformedCommand.
var (
	ErrMissingPort    = fmt.Errorf("%w: missing port", ErrMalformedCommand)
	ErrPortNotNumber  = fmt.Errorf("%w: port is not a number", ErrMalformedCommand)
	ErrPortOutOfRange = fmt.Errorf("%w: port out of range", ErrMalformedCommand)
)
