package transport

import (
	"context"
	"errors"
)

// ErrForbidden reports that the platform refused delivery to a chat, e.g.
// because the user blocked the bot or deactivated their account.
var ErrForbidden = errors.New("transport: delivery forbidden")

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
	// MediaOther marks documents, stickers, voice notes and the like.
	MediaOther MediaKind = "other"
)

// Media is an attachment already stored by the platform. Ref is the
// platform's reusable file handle.
type Media struct {
	Kind MediaKind
	Ref  string
}

func (m Media) IsZero() bool { return m.Kind == MediaNone || m.Ref == "" }

// Supported reports whether m can be relayed as a photo or video.
func (m Media) Supported() bool {
	return (m.Kind == MediaPhoto || m.Kind == MediaVideo) && m.Ref != ""
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromUsername string
	FromFullName string
	Text         string // text body, or the caption for media messages
	Media        Media
	IsGroup      bool
}

type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	ThreadID  int
	MessageID int
	Data      string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	// SendMedia sends a photo or video by reference with an optional caption.
	SendMedia(ctx context.Context, to ChatTarget, media Media, caption string, opt *SendOptions) (MessageRef, error)
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
