// Package broadcast delivers one announcement to many users, one at a time.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"suggestbot/internal/domain"
	"suggestbot/internal/observability/metrics"
	"suggestbot/internal/storage"
	"suggestbot/internal/texts"
	kit "suggestbot/internal/transport"
	logx "suggestbot/pkg/logx"
	"suggestbot/pkg/tgui"
)

type LinkButton struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Announcement is a text template with an optional photo/video and an
// optional link button. Text is HTML and may contain {name} and {username}.
type Announcement struct {
	Text   string      `json:"text,omitempty"`
	Media  kit.Media   `json:"media"`
	Button *LinkButton `json:"button,omitempty"`
}

func (a Announcement) Empty() bool {
	return strings.TrimSpace(a.Text) == "" && a.Media.IsZero()
}

// Render fills the per-recipient placeholders. Other braces are kept as-is.
func Render(text string, u domain.User) string {
	name := u.FullName
	if strings.TrimSpace(name) == "" {
		name = texts.DefaultName
	}
	return strings.NewReplacer(
		"{name}", tgui.Esc(name).String(),
		"{username}", tgui.Esc(u.Username).String(),
	).Replace(text)
}

type Outcome string

const (
	Delivered Outcome = "delivered"
	Blocked   Outcome = "blocked"
	Failed    Outcome = "failed"
)

type Result struct {
	UserID  int64
	Outcome Outcome
	Err     error
}

type Summary struct {
	Total     int
	Delivered int
	Blocked   int
	Failed    int
	Results   []Result
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case Delivered:
		s.Delivered++
	case Blocked:
		s.Blocked++
	case Failed:
		s.Failed++
	}
}

type Broadcaster struct {
	out   kit.Adapter
	users storage.Users
	log   logx.Logger

	mu      sync.RWMutex
	limiter *rate.Limiter
}

// New returns a Broadcaster sending at most perSec messages per second.
// perSec <= 0 disables pacing.
func New(out kit.Adapter, users storage.Users, perSec float64, log logx.Logger) *Broadcaster {
	if log.IsZero() {
		log = logx.Nop()
	}
	b := &Broadcaster{out: out, users: users, log: log}
	b.SetRate(perSec)
	return b
}

// SetRate changes pacing. Safe during hot-reload.
func (b *Broadcaster) SetRate(perSec float64) {
	var l *rate.Limiter
	if perSec > 0 {
		l = rate.NewLimiter(rate.Limit(perSec), 1)
	}
	b.mu.Lock()
	b.limiter = l
	b.mu.Unlock()
}

func (b *Broadcaster) wait(ctx context.Context) error {
	b.mu.RLock()
	l := b.limiter
	b.mu.RUnlock()
	if l == nil {
		return ctx.Err()
	}
	return l.Wait(ctx)
}

// Run sends ann to every recipient in order. Users already marked blocked are
// skipped; a forbidden delivery marks the user blocked. No single failure
// stops the sweep, only ctx does.
func (b *Broadcaster) Run(ctx context.Context, ann Announcement, recipients []domain.User) Summary {
	sum := Summary{Total: len(recipients), Results: make([]Result, 0, len(recipients))}

	for _, u := range recipients {
		if u.IsBlocked {
			sum.add(Result{UserID: u.ID, Outcome: Blocked})
			metrics.Delivery("skipped")
			continue
		}
		if err := b.wait(ctx); err != nil {
			b.log.Warn("broadcast interrupted",
				logx.Int("attempted", len(sum.Results)), logx.Int("total", sum.Total), logx.Err(err))
			break
		}

		err := b.deliver(ctx, ann, u)
		switch {
		case err == nil:
			sum.add(Result{UserID: u.ID, Outcome: Delivered})
			metrics.Delivery("delivered")
		case errors.Is(err, kit.ErrForbidden):
			if berr := b.users.SetUserBlocked(ctx, u.ID, true); berr != nil {
				b.log.Warn("mark user blocked failed", logx.Int64("user_id", u.ID), logx.Err(berr))
			}
			sum.add(Result{UserID: u.ID, Outcome: Blocked, Err: err})
			metrics.Delivery("blocked")
		default:
			b.log.Warn("broadcast delivery failed", logx.Int64("user_id", u.ID), logx.Err(err))
			sum.add(Result{UserID: u.ID, Outcome: Failed, Err: err})
			metrics.Delivery("failed")
		}
	}

	b.log.Info("broadcast finished",
		logx.Int("total", sum.Total),
		logx.Int("delivered", sum.Delivered),
		logx.Int("blocked", sum.Blocked),
		logx.Int("failed", sum.Failed),
	)
	return sum
}

// deliver sends to one recipient. A panic in the transport counts as a
// failed delivery so the rest of the sweep still runs.
func (b *Broadcaster) deliver(ctx context.Context, ann Announcement, u domain.User) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("broadcast delivery panicked", logx.Int64("user_id", u.ID), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = b.Send(ctx, kit.ChatTarget{ChatID: u.ID}, ann, u)
	return err
}

// Send renders ann for u and delivers it to one chat.
func (b *Broadcaster) Send(ctx context.Context, to kit.ChatTarget, ann Announcement, u domain.User) (kit.MessageRef, error) {
	text := Render(ann.Text, u)
	opt := &kit.SendOptions{ParseMode: "HTML"}
	if ann.Button != nil {
		opt.ReplyMarkupAdapter = tgui.NewInline().Row(tgui.URLBtn(ann.Button.Label, ann.Button.URL)).Markup()
	}
	if ann.Media.IsZero() {
		return b.out.SendText(ctx, to, text, opt)
	}
	return b.out.SendMedia(ctx, to, ann.Media, text, opt)
}
