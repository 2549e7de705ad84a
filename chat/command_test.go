package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"blank line", "   ", Command{Kind: CmdEmpty}},
		{"chat line", "hello all", Command{Kind: CmdChat, Text: "hello all"}},
		{"chat line keeps marker in the middle", "see #quit", Command{Kind: CmdChat, Text: "see #quit"}},
		{"quit", "#quit", Command{Kind: CmdQuit}},
		{"upper case verb", "#STOP", Command{Kind: CmdStop}},
		{"close", "#close", Command{Kind: CmdClose}},
		{"start", "#Start", Command{Kind: CmdStart}},
		{"getport", "#getport", Command{Kind: CmdGetPort}},
		{"setport", "#setport 7000", Command{Kind: CmdSetPort, Port: 7000}},
		{"setport ignores extra args", "#setport 7000 8000", Command{Kind: CmdSetPort, Port: 7000}},
		{"setport missing arg", "#setport", Command{Kind: CmdSetPort, Err: ErrMissingPort}},
		{"setport not a number", "#setport abc", Command{Kind: CmdSetPort, Err: ErrPortNotNumber}},
		{"setport out of range", "#setport 70000", Command{Kind: CmdSetPort, Err: ErrPortOutOfRange}},
		{"setport negative", "#setport -1", Command{Kind: CmdSetPort, Err: ErrPortOutOfRange}},
		{"unknown verb", "#dance", Command{Kind: CmdHelp, Text: "dance"}},
		{"bare marker", "#", Command{Kind: CmdHelp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.line))
		})
	}
}

func TestParseCommand_MalformedErrorsWrapSentinel(t *testing.T) {
	for _, line := range []string{"#setport", "#setport x", "#setport 99999"} {
		assert.ErrorIs(t, ParseCommand(line).Err, ErrMalformedCommand, line)
	}
}

func TestCommandKind_String(t *testing.T) {
	assert.Equal(t, "setport", CmdSetPort.String())
	assert.Equal(t, "chat", CmdChat.String())
	assert.Equal(t, "help", CmdHelp.String())
	assert.Equal(t, "empty", CmdEmpty.String())
	assert.Equal(t, "unknown", CommandKind(99).String())
}
