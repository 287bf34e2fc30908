// Package bot maps the chat surface (commands, reply-keyboard buttons,
// content messages and inline callbacks) onto the moderation, broadcast and
// compose services.
package bot

import (
	"context"
	"time"

	"suggestbot/internal/access"
	"suggestbot/internal/broadcast"
	"suggestbot/internal/compose"
	"suggestbot/internal/moderation"
	"suggestbot/internal/storage"
	"suggestbot/internal/texts"
	kit "suggestbot/internal/transport"
	"suggestbot/internal/transport/telegram/router"
	logx "suggestbot/pkg/logx"
	"suggestbot/pkg/tgui"
)

// Runner runs detached work that outlives a single request, such as a
// broadcast sweep. *supervisor.Supervisor satisfies it.
type Runner interface {
	Go(name string, fn func(ctx context.Context) error)
}

type Deps struct {
	Store      storage.Store
	Gate       *access.Gate
	Moderation *moderation.Service
	Broadcast  *broadcast.Broadcaster
	Drafts     compose.Store
	Out        kit.Adapter
	Runner     Runner
	Log        logx.Logger

	// BroadcastTimeout bounds one sweep; 0 means no limit.
	BroadcastTimeout time.Duration
}

type Bot struct {
	store  storage.Store
	gate   *access.Gate
	mod    *moderation.Service
	bc     *broadcast.Broadcaster
	drafts compose.Store
	out    kit.Adapter
	runner Runner
	log    logx.Logger

	broadcastTimeout time.Duration
}

func New(d Deps) *Bot {
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Bot{
		store:            d.Store,
		gate:             d.Gate,
		mod:              d.Moderation,
		bc:               d.Broadcast,
		drafts:           d.Drafts,
		out:              d.Out,
		runner:           d.Runner,
		log:              log.With(logx.String("comp", "bot")),
		broadcastTimeout: d.BroadcastTimeout,
	}
}

// Routes returns the handler set for the router.
func (b *Bot) Routes() router.Routes {
	touch := b.touch
	return router.Routes{
		Commands: []router.Command{
			{Name: "start", Description: "Начать", Handle: touch(b.handleStart)},
			{Name: "help", Description: "Помощь", Handle: touch(b.handleHelp)},
			{Name: "admin", Handle: touch(b.adminOnly(b.handleAdmin))},
			{Name: "send_ad", Handle: touch(b.adminOnly(b.handleSendAd))},
			{Name: "stats", Handle: touch(b.adminOnly(b.handleStats))},
			{Name: "cancel", Handle: touch(b.adminOnly(b.handleCancel))},
		},
		Message:  touch(b.handleMessage),
		Callback: b.handleCallback,
	}
}

// touch registers or refreshes the sender before the handler runs.
func (b *Bot) touch(next router.HandlerFunc) router.HandlerFunc {
	return func(ctx context.Context, req *router.Request) error {
		if m := req.Message(); m != nil {
			if _, err := b.gate.Touch(ctx, access.Actor{ID: m.FromID, FullName: m.FromFullName, Username: m.FromUsername}); err != nil {
				return err
			}
		}
		return next(ctx, req)
	}
}

// adminOnly replies "access denied" to everyone else.
func (b *Bot) adminOnly(next router.HandlerFunc) router.HandlerFunc {
	return func(ctx context.Context, req *router.Request) error {
		if err := b.gate.RequireAdmin(ctx, req.FromID); err != nil {
			req.Logger.Warn("admin command denied", logx.String("cmd", req.Command))
			return b.reply(ctx, req.Chat, texts.AccessDenied, nil)
		}
		return next(ctx, req)
	}
}

func (b *Bot) reply(ctx context.Context, to kit.ChatTarget, text string, markup any) error {
	_, err := b.out.SendText(ctx, to, text, &kit.SendOptions{ReplyMarkupAdapter: markup})
	return err
}

func keyboard(k compose.Keyboard) any {
	switch k {
	case compose.YesNoKeyboard:
		return tgui.Reply(true, []string{texts.Yes, texts.No})
	case compose.RemoveKeyboard:
		return tgui.RemoveKeyboard()
	}
	return nil
}

func adminKeyboard() any {
	return tgui.Reply(false, []string{texts.MenuBroadcast}, []string{texts.MenuStats})
}
