package chat

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LoginMarker starts a login message. It is matched case-insensitively at the
// very start of the line and must be followed by whitespace or the line end.
const LoginMarker = "#login"

// Private replies sent to a client.
const (
	ReplyLoginAlreadySet  = "Login ID already set"
	ReplyLoginMustBeFirst = "#LOGIN command must be the first message you send"
	ReplyLoginRequired    = "Log in before sending messages"
	ReplyLoginMissingID   = "Enter #LOGIN followed by a login ID"
)

// Verdict tells the caller what to do with one inbound message.
type Verdict int

const (
	// VerdictConsumed: the message was a successful login; nothing is sent.
	VerdictConsumed Verdict = iota
	// VerdictReply: send Action.Text privately to the sender only.
	VerdictReply
	// VerdictKick: send Action.Text privately, then close the session.
	VerdictKick
	// VerdictBroadcast: broadcast Action.Text to every session.
	VerdictBroadcast
)

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictConsumed:
		return "consumed"
	case VerdictReply:
		return "reply"
	case VerdictKick:
		return "kick"
	case VerdictBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Action is the outcome of AuthGate.OnMessage.
type Action struct {
	Verdict Verdict
	Text    string
	// Err classifies rejected messages: ErrDuplicateLogin, ErrEmptyLoginID
	// or ErrProtocolViolation.
	Err error
}

// AuthGate enforces login-before-chat for each session. It only mutates the
// session it is given and performs no I/O.
type AuthGate struct{}

// OnMessage applies one inbound message to s and returns what must happen
// next. The rules are evaluated in order and exactly one applies:
//
//   - login, no login yet and nothing sent before: the id is stored silently
//   - login while logged in: private "Login ID already set"
//   - login after other traffic: private notice, then kick
//   - content before login: private "Log in before sending messages", then kick
//   - content after login: broadcast as "<loginID>> <text>"
//
// Whatever the branch, the session is marked as having sent a message.
func (AuthGate) OnMessage(s *Session, text string) Action {
	defer s.markSent()

	if rest, ok := cutLoginMarker(text); ok {
		return login(s, strings.Fields(rest))
	}

	loginID := s.LoginID()
	if loginID == "" {
		return Action{
			Verdict: VerdictKick,
			Text:    ReplyLoginRequired,
			Err:     fmt.Errorf("%w: message before login", ErrProtocolViolation),
		}
	}

	return Action{Verdict: VerdictBroadcast, Text: FormatChat(loginID, text)}
}

// cutLoginMarker reports whether text begins with the login marker and
// returns what follows it. Leading whitespace makes the line content.
func cutLoginMarker(text string) (string, bool) {
	if len(text) < len(LoginMarker) || !strings.EqualFold(text[:len(LoginMarker)], LoginMarker) {
		return "", false
	}

	rest := text[len(LoginMarker):]
	if rest == "" {
		return rest, true
	}

	r, _ := utf8.DecodeRuneInString(rest)
	return rest, unicode.IsSpace(r)
}

func login(s *Session, args []string) Action {
	loginID := s.LoginID()

	switch {
	case loginID == "" && !s.HasSentAny():
		if len(args) == 0 {
			return Action{Verdict: VerdictReply, Text: ReplyLoginMissingID, Err: ErrEmptyLoginID}
		}

		if err := s.setLoginID(args[0]); err != nil {
			return Action{Verdict: VerdictReply, Text: ReplyLoginAlreadySet, Err: err}
		}

		return Action{Verdict: VerdictConsumed}
	case loginID != "":
		return Action{Verdict: VerdictReply, Text: ReplyLoginAlreadySet, Err: ErrDuplicateLogin}
	default:
		return Action{
			Verdict: VerdictKick,
			Text:    ReplyLoginMustBeFirst,
			Err:     fmt.Errorf("%w: login after other traffic", ErrProtocolViolation),
		}
	}
}

// FormatChat renders a client message the way it is broadcast.
func FormatChat(loginID, text string) string {
	return loginID + "> " + text
}
