package chat

import (
	"strconv"
	"strings"
)

// CommandMarker starts an operator command line.
const CommandMarker = "#"

// ServerMessagePrefix is put in front of chat lines typed by the operator.
const ServerMessagePrefix = "SERVER MSG> "

// CommandKind enumerates operator inputs.
type CommandKind int

const (
	// CmdEmpty is a blank line; it is ignored.
	CmdEmpty CommandKind = iota
	// CmdChat is a line without the command marker, broadcast as a server message.
	CmdChat
	CmdQuit
	CmdStop
	CmdClose
	CmdStart
	CmdSetPort
	CmdGetPort
	// CmdHelp is any unrecognised command.
	CmdHelp
)

var commandNames = map[string]CommandKind{
	"quit":    CmdQuit,
	"stop":    CmdStop,
	"close":   CmdClose,
	"start":   CmdStart,
	"setport": CmdSetPort,
	"getport": CmdGetPort,
}

// String returns the command verb, or a descriptive name for non-verbs.
func (k CommandKind) String() string {
	for name, kind := range commandNames {
		if kind == k {
			return name
		}
	}

	switch k {
	case CmdEmpty:
		return "empty"
	case CmdChat:
		return "chat"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Command is one parsed operator line.
type Command struct {
	Kind CommandKind
	// Text is the chat text for CmdChat and the unrecognised verb for CmdHelp.
	Text string
	// Port is the argument of a well-formed CmdSetPort.
	Port int
	// Err is set for a CmdSetPort with a missing or invalid argument.
	Err error
}

// ParseCommand parses one operator line. Verbs are case-insensitive; extra
// arguments are ignored.
func ParseCommand(line string) Command {
	if strings.TrimSpace(line) == "" {
		return Command{Kind: CmdEmpty}
	}

	if !strings.HasPrefix(line, CommandMarker) {
		return Command{Kind: CmdChat, Text: line}
	}

	fields := strings.Fields(strings.ToLower(strings.TrimPrefix(line, CommandMarker)))
	if len(fields) == 0 {
		return Command{Kind: CmdHelp}
	}

	kind, ok := commandNames[fields[0]]
	if !ok {
		return Command{Kind: CmdHelp, Text: fields[0]}
	}

	cmd := Command{Kind: kind}
	if kind == CmdSetPort {
		cmd.Port, cmd.Err = parsePort(fields[1:])
	}

	return cmd
}

func parsePort(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrMissingPort
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, ErrPortNotNumber
	}

	if port < 0 || port > 65535 {
		return 0, ErrPortOutOfRange
	}

	return port, nil
}
