package router

import (
	"context"
	"strings"
	"time"
	"unicode"

	kit "suggestbot/internal/transport"
	logx "suggestbot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string   // without the leading slash
	Aliases     []string // extra names, never shown in the menu
	Description string   // menu text; empty hides the command from the menu
	Timeout     time.Duration
	Handle      HandlerFunc
}

// Routes is the full handler set. Message handles every message that is
// not a registered command; Callback handles every inline button press.
type Routes struct {
	Commands []Command
	Message  HandlerFunc
	Callback HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string // matched command name, or "" for plain messages and callbacks
	Args    string // raw text after the command word
	ReqID   string
	Logger  logx.Logger
}

// Message returns the inbound message, or nil for callbacks.
func (r *Request) Message() *kit.Message { return r.Update.Message }

// Callback returns the inbound callback, or nil for messages.
func (r *Request) Callback() *kit.Callback { return r.Update.Callback }

// route names a request for logs and metrics.
func (r *Request) route() string {
	switch {
	case r.Command != "":
		return "/" + r.Command
	case r.Update.Kind == kit.UpdateCallback:
		return "callback"
	default:
		return "message"
	}
}

// parseCommand splits "/cmd@bot rest" into ("cmd", "rest"). ok is false
// when text is not a command.
func parseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", "", false
	}
	word, rest := text[1:], ""
	if i := strings.IndexFunc(word, unicode.IsSpace); i >= 0 {
		word, rest = word[:i], word[i:]
	}
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return "", "", false
	}
	return strings.ToLower(word), strings.TrimSpace(rest), true
}
