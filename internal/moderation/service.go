// Package moderation relays user submissions to the moderator chat and
// applies accept/decline decisions.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"suggestbot/internal/access"
	"suggestbot/internal/domain"
	"suggestbot/internal/observability/metrics"
	"suggestbot/internal/storage"
	"suggestbot/internal/texts"
	kit "suggestbot/internal/transport"
	logx "suggestbot/pkg/logx"
	"suggestbot/pkg/tgui"
)

type Config struct {
	Chat           kit.ChatTarget // moderator chat
	MaxLength      int            // runes; 0 disables the check
	NotifyOnAccept bool
}

type Service struct {
	store storage.Store
	gate  *access.Gate
	out   kit.Adapter
	log   logx.Logger

	mu  sync.RWMutex
	cfg Config
}

func New(cfg Config, store storage.Store, gate *access.Gate, out kit.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, gate: gate, out: out, log: log}
}

// Apply swaps the runtime config. Safe during hot-reload.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// MaxLength is the current submission limit in runes; 0 means unbounded.
func (s *Service) MaxLength() int { return s.config().MaxLength }

func (s *Service) config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Submission is one inbound text, photo or video from a regular user.
type Submission struct {
	OwnerID int64
	Text    string // body or caption
	Media   kit.Media
}

func (sub Submission) kind() string {
	if sub.Media.IsZero() {
		return "text"
	}
	return string(sub.Media.Kind)
}

// Submit validates, persists and forwards a submission. On a forward failure
// the persisted question is removed again so no orphan is left behind.
func (s *Service) Submit(ctx context.Context, sub Submission) (domain.Question, error) {
	cfg := s.config()
	kind := sub.kind()

	if !sub.Media.IsZero() && !sub.Media.Supported() {
		metrics.Submission(kind, "unsupported")
		return domain.Question{}, domain.ErrUnsupported
	}
	if strings.TrimSpace(sub.Text) == "" && sub.Media.IsZero() {
		metrics.Submission(kind, "empty")
		return domain.Question{}, domain.ErrEmptySubmission
	}
	if cfg.MaxLength > 0 && utf8.RuneCountInString(sub.Text) > cfg.MaxLength {
		metrics.Submission(kind, "too_long")
		return domain.Question{}, domain.ErrTooLong
	}

	q := domain.Question{OwnerID: sub.OwnerID, Text: sub.Text}
	if !sub.Media.IsZero() {
		q.AttachmentKind = domain.AttachmentKind(sub.Media.Kind)
		q.AttachmentPath = sub.Media.Ref
	}
	if err := s.store.CreateQuestion(ctx, &q); err != nil {
		metrics.Submission(kind, "error")
		return domain.Question{}, fmt.Errorf("persist question: %w", err)
	}

	if err := s.Forward(ctx, &q); err != nil {
		if _, derr := s.store.DeleteQuestion(context.WithoutCancel(ctx), q.ID); derr != nil {
			s.log.Error("compensating delete failed; question left unforwarded",
				logx.Int64("question_id", q.ID), logx.Err(derr))
		}
		metrics.Submission(kind, "error")
		return domain.Question{}, fmt.Errorf("forward question %d: %w", q.ID, err)
	}

	metrics.Submission(kind, "ok")
	s.log.Info("question forwarded",
		logx.Int64("question_id", q.ID),
		logx.Int64("owner_id", q.OwnerID),
		logx.String("kind", kind),
		logx.Int("moderation_msg", q.ModerationMessageID),
	)
	return q, nil
}

// Forward posts q to the moderator chat with decision buttons and records
// the resulting message on q and in storage.
func (s *Service) Forward(ctx context.Context, q *domain.Question) error {
	cfg := s.config()
	if cfg.Chat.ChatID == 0 {
		return errors.New("moderation chat is not configured")
	}

	markup, err := decisionMarkup(q.ID)
	if err != nil {
		return err
	}
	opt := &kit.SendOptions{ReplyMarkupAdapter: markup, DisablePreview: true}

	var ref kit.MessageRef
	if q.AttachmentKind == domain.AttachmentNone {
		ref, err = s.out.SendText(ctx, cfg.Chat, texts.ForwardBody(q.Text, q.OwnerID), opt)
	} else {
		suffix := utf8.RuneCountInString(texts.ForwardBody("", q.OwnerID))
		// one rune reserved for the truncation ellipsis
		caption := tgui.TruncRunes(q.Text, tgui.MaxCaptionLen-suffix-1)
		media := kit.Media{Kind: kit.MediaKind(q.AttachmentKind), Ref: q.AttachmentPath}
		ref, err = s.out.SendMedia(ctx, cfg.Chat, media, texts.ForwardBody(caption, q.OwnerID), opt)
	}
	if err != nil {
		return err
	}

	q.ModerationChatID = ref.ChatID
	q.ModerationMessageID = ref.MessageID
	if err := s.store.SetModerationMessage(ctx, q.ID, ref.ChatID, ref.MessageID); err != nil {
		// The moderator already sees the question; a later sweep may repost it.
		s.log.Warn("record moderation message failed",
			logx.Int64("question_id", q.ID), logx.Int("moderation_msg", ref.MessageID), logx.Err(err))
	}
	return nil
}

func decisionMarkup(id int64) (any, error) {
	accept, err := EncodePayload(id, domain.ActionAccept)
	if err != nil {
		return nil, err
	}
	decline, err := EncodePayload(id, domain.ActionDecline)
	if err != nil {
		return nil, err
	}
	return tgui.NewInline().Row(
		tgui.Btn(texts.AcceptButton, accept),
		tgui.Btn(texts.DeclineButton, decline),
	).Markup(), nil
}

// Press is one activation of a decision button.
type Press struct {
	CallbackID string
	ActorID    int64
	Data       string
	Message    kit.MessageRef // message that carried the button
}

// Decide applies an accept/decline press. Every outcome is reported to the
// moderator through the callback answer; only storage failures are returned.
func (s *Service) Decide(ctx context.Context, p Press) error {
	log := s.log.With(logx.Int64("actor_id", p.ActorID), logx.String("callback_id", p.CallbackID))

	payload, err := DecodePayload(p.Data)
	if err != nil {
		metrics.Decision("unknown", "invalid")
		log.Warn("invalid decision payload", logx.String("data", p.Data), logx.Err(err))
		return s.answer(ctx, p.CallbackID, texts.InvalidPayload)
	}
	log = log.With(logx.Int64("question_id", payload.Question), logx.String("action", string(payload.Action)))

	if err := s.gate.RequireAdmin(ctx, p.ActorID); err != nil {
		metrics.Decision(string(payload.Action), "denied")
		log.Warn("decision denied")
		return s.answer(ctx, p.CallbackID, texts.AccessDenied)
	}

	q, err := s.store.GetQuestion(ctx, payload.Question)
	if errors.Is(err, storage.ErrNotFound) {
		return s.notFound(ctx, log, p, payload)
	}
	if err != nil {
		return s.failed(ctx, log, p, payload, fmt.Errorf("load question %d: %w", payload.Question, err))
	}

	// Claiming by delete keeps a decision effective at most once even when
	// two presses race.
	claimed, err := s.store.DeleteQuestion(ctx, q.ID)
	if err != nil {
		return s.failed(ctx, log, p, payload, fmt.Errorf("claim question %d: %w", q.ID, err))
	}
	if !claimed {
		return s.notFound(ctx, log, p, payload)
	}

	switch payload.Action {
	case domain.ActionAccept:
		if err := s.answer(ctx, p.CallbackID, texts.QuestionAccepted); err != nil {
			log.Warn("answer callback failed", logx.Err(err))
		}
		if s.config().NotifyOnAccept {
			s.notifyOwner(ctx, log, q.OwnerID)
		}
	case domain.ActionDecline:
		if err := s.answer(ctx, p.CallbackID, texts.QuestionDeclined); err != nil {
			log.Warn("answer callback failed", logx.Err(err))
		}
	}

	ref := p.Message
	if ref.MessageID == 0 {
		ref = kit.MessageRef{ChatID: q.ModerationChatID, MessageID: q.ModerationMessageID}
	}
	if ref.MessageID != 0 {
		if err := s.out.DeleteMessage(ctx, ref); err != nil {
			log.Warn("delete moderation message failed", logx.Int("moderation_msg", ref.MessageID), logx.Err(err))
		}
	}

	metrics.Decision(string(payload.Action), "ok")
	log.Info("question decided", logx.Int64("owner_id", q.OwnerID))
	return nil
}

func (s *Service) notFound(ctx context.Context, log logx.Logger, p Press, payload Payload) error {
	metrics.Decision(string(payload.Action), "not_found")
	log.Info("question not found")
	return s.answer(ctx, p.CallbackID, texts.QuestionNotFound(payload.Question))
}

// failed tells the moderator the press did not go through and returns err.
func (s *Service) failed(ctx context.Context, log logx.Logger, p Press, payload Payload, err error) error {
	metrics.Decision(string(payload.Action), "error")
	if aerr := s.answer(context.WithoutCancel(ctx), p.CallbackID, texts.ActionFailed); aerr != nil {
		log.Warn("answer callback failed", logx.Err(aerr))
	}
	return err
}

func (s *Service) notifyOwner(ctx context.Context, log logx.Logger, ownerID int64) {
	_, err := s.out.SendText(ctx, kit.ChatTarget{ChatID: ownerID}, texts.UserQuestionAccepted, nil)
	if err == nil {
		return
	}
	if errors.Is(err, kit.ErrForbidden) {
		if berr := s.store.SetUserBlocked(ctx, ownerID, true); berr != nil {
			log.Warn("mark owner blocked failed", logx.Int64("owner_id", ownerID), logx.Err(berr))
		}
		return
	}
	log.Warn("notify owner failed", logx.Int64("owner_id", ownerID), logx.Err(err))
}

func (s *Service) answer(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return nil
	}
	return s.out.AnswerCallback(ctx, callbackID, text)
}
