package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"suggestbot/internal/broadcast"
	"suggestbot/internal/compose"
	"suggestbot/internal/domain"
	"suggestbot/internal/moderation"
	"suggestbot/internal/storage"
	"suggestbot/internal/texts"
	kit "suggestbot/internal/transport"
	"suggestbot/internal/transport/telegram/router"
	logx "suggestbot/pkg/logx"
	"suggestbot/pkg/tgui"
)

func (b *Bot) handleStart(ctx context.Context, req *router.Request) error {
	return b.reply(ctx, req.Chat, texts.Start, nil)
}

func (b *Bot) handleHelp(ctx context.Context, req *router.Request) error {
	return b.reply(ctx, req.Chat, texts.Help, tgui.RemoveKeyboard())
}

func (b *Bot) handleAdmin(ctx context.Context, req *router.Request) error {
	return b.reply(ctx, req.Chat, texts.AdminMenu, adminKeyboard())
}

// handleSendAd broadcasts the command text right away, or opens the guided
// builder when no text follows the command.
func (b *Bot) handleSendAd(ctx context.Context, req *router.Request) error {
	if req.Args != "" {
		return b.launchBroadcast(ctx, req, broadcast.Announcement{Text: req.Args})
	}
	return b.startDraft(ctx, req)
}

func (b *Bot) handleStats(ctx context.Context, req *router.Request) error {
	users, err := b.store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	blocked, err := b.store.CountBlockedUsers(ctx)
	if err != nil {
		return fmt.Errorf("count blocked users: %w", err)
	}
	pending, err := b.store.CountQuestions(ctx)
	if err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	return b.reply(ctx, req.Chat, texts.Stats(users, blocked, pending), nil)
}

func (b *Bot) handleCancel(ctx context.Context, req *router.Request) error {
	existed, err := b.drafts.Delete(ctx, draftKey(req))
	if err != nil {
		return fmt.Errorf("drop draft: %w", err)
	}
	if !existed {
		return b.reply(ctx, req.Chat, texts.NothingToCancel, tgui.RemoveKeyboard())
	}
	req.Logger.Info("draft canceled")
	return b.reply(ctx, req.Chat, texts.ComposeCanceled, tgui.RemoveKeyboard())
}

// handleMessage serves every non-command message. An open draft takes the
// message first; then the admin menu buttons; everything else from a
// regular user in a private chat is a submission.
func (b *Bot) handleMessage(ctx context.Context, req *router.Request) error {
	m := req.Message()
	if m.IsGroup {
		return nil
	}

	d, ok, err := b.drafts.Get(ctx, draftKey(req))
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}
	if ok {
		return b.continueDraft(ctx, req, d)
	}

	admin := b.gate.IsAdmin(ctx, m.FromID)
	if admin && m.Media.IsZero() {
		switch strings.TrimSpace(m.Text) {
		case texts.MenuBroadcast:
			return b.startDraft(ctx, req)
		case texts.MenuStats:
			return b.handleStats(ctx, req)
		}
	}
	if admin {
		req.Logger.Debug("submission from admin ignored")
		return nil
	}
	return b.submit(ctx, req)
}

func (b *Bot) submit(ctx context.Context, req *router.Request) error {
	m := req.Message()
	_, err := b.mod.Submit(ctx, moderation.Submission{OwnerID: m.FromID, Text: m.Text, Media: m.Media})
	switch {
	case err == nil:
		return b.reply(ctx, req.Chat, texts.ThanksForQuestion, nil)
	case errors.Is(err, domain.ErrTooLong):
		return b.reply(ctx, req.Chat, texts.TooLong(b.mod.MaxLength()), nil)
	case errors.Is(err, domain.ErrEmptySubmission), errors.Is(err, domain.ErrUnsupported):
		return b.reply(ctx, req.Chat, texts.EmptySubmission, nil)
	}
	if rerr := b.reply(context.WithoutCancel(ctx), req.Chat, texts.SubmissionFailed, nil); rerr != nil {
		req.Logger.Warn("failure notice not delivered", logx.Err(rerr))
	}
	return err
}

func (b *Bot) handleCallback(ctx context.Context, req *router.Request) error {
	cb := req.Callback()
	return b.mod.Decide(ctx, moderation.Press{
		CallbackID: cb.ID,
		ActorID:    cb.FromID,
		Data:       cb.Data,
		Message:    kit.MessageRef{ChatID: cb.ChatID, ThreadID: cb.ThreadID, MessageID: cb.MessageID},
	})
}

func draftKey(req *router.Request) compose.Key {
	return compose.Key{ChatID: req.Chat.ChatID, UserID: req.FromID}
}

func (b *Bot) startDraft(ctx context.Context, req *router.Request) error {
	d, p := compose.Start()
	if err := b.drafts.Put(ctx, draftKey(req), d); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	req.Logger.Info("draft opened")
	return b.reply(ctx, req.Chat, p.Text, keyboard(p.Keyboard))
}

func (b *Bot) continueDraft(ctx context.Context, req *router.Request, d compose.Draft) error {
	m := req.Message()
	next, p := compose.Advance(d, compose.Input{Text: m.Text, Media: m.Media})
	if !next.Done() {
		if err := b.drafts.Put(ctx, draftKey(req), next); err != nil {
			return fmt.Errorf("save draft: %w", err)
		}
		return b.reply(ctx, req.Chat, p.Text, keyboard(p.Keyboard))
	}

	if _, err := b.drafts.Delete(ctx, draftKey(req)); err != nil {
		return fmt.Errorf("drop draft: %w", err)
	}
	if next.Post.Empty() {
		return b.reply(ctx, req.Chat, texts.NothingToSend, tgui.RemoveKeyboard())
	}
	return b.launchBroadcast(ctx, req, next.Post)
}

// launchBroadcast runs the sweep on the background runner so a long
// broadcast does not hold the admin's dispatcher shard. The summary and a
// preview rendered for the admin follow when the sweep ends.
func (b *Bot) launchBroadcast(ctx context.Context, req *router.Request, ann broadcast.Announcement) error {
	if ann.Empty() {
		return b.reply(ctx, req.Chat, texts.NothingToSend, tgui.RemoveKeyboard())
	}
	users, err := b.store.ListUsers(ctx, storage.UserFilter{IncludeAdmins: true})
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}
	// admins are who the gate holds now, not every stored flag
	recipients := users[:0]
	for _, u := range users {
		if !b.gate.Holds(u) {
			recipients = append(recipients, u)
		}
	}
	admin, err := b.store.GetUser(ctx, req.FromID)
	if err != nil {
		return fmt.Errorf("load admin: %w", err)
	}
	log := req.Logger
	chat := req.Chat
	log.Info("broadcast started", logx.Int("recipients", len(recipients)))

	b.runner.Go("broadcast."+req.ReqID, func(rctx context.Context) (err error) {
		// runner errors stop the app
		defer func() {
			if r := recover(); r != nil {
				log.Error("broadcast panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
				err = nil
			}
		}()
		if b.broadcastTimeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(rctx, b.broadcastTimeout)
			defer cancel()
		}
		sum := b.bc.Run(rctx, ann, recipients)

		// report even when the sweep was cut short
		out := context.WithoutCancel(rctx)
		if err := b.reply(out, chat, texts.BroadcastSummary(sum.Delivered, sum.Blocked, sum.Failed), tgui.RemoveKeyboard()); err != nil {
			log.Warn("broadcast summary not delivered", logx.Err(err))
			return nil
		}
		if err := b.reply(out, chat, texts.PostPreview, nil); err != nil {
			log.Warn("broadcast preview not delivered", logx.Err(err))
			return nil
		}
		if _, err := b.bc.Send(out, chat, ann, admin); err != nil {
			log.Warn("broadcast preview not delivered", logx.Err(err))
		}
		return nil
	})
	return nil
}
