// Package transporttest provides an in-memory transport.Adapter for tests.
package transporttest

import (
	"context"
	"strconv"
	"sync"

	kit "suggestbot/internal/transport"
)

// Sent is one outbound message captured by Recorder.
type Sent struct {
	Ref     kit.MessageRef
	To      kit.ChatTarget
	Text    string
	Media   kit.Media
	Options kit.SendOptions
}

// Answer is one callback answer captured by Recorder.
type Answer struct {
	CallbackID string
	Text       string
}

// Recorder records every outbound call. FailChat maps a chat id to the error
// returned for sends to that chat; a send to a chat in PanicChat panics.
type Recorder struct {
	mu sync.Mutex

	FailChat   map[int64]error
	PanicChat  map[int64]bool
	FailDelete error

	nextID  int
	Sent    []Sent
	Deleted []kit.MessageRef
	Answers []Answer
}

func New() *Recorder {
	return &Recorder{FailChat: map[int64]error{}, PanicChat: map[int64]bool{}}
}

var _ kit.Adapter = (*Recorder)(nil)

func (r *Recorder) Start(context.Context, chan<- kit.Update) error { return nil }
func (r *Recorder) Stop(context.Context) error                     { return nil }

func (r *Recorder) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return r.send(ctx, to, text, kit.Media{}, opt)
}

func (r *Recorder) SendMedia(ctx context.Context, to kit.ChatTarget, media kit.Media, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return r.send(ctx, to, caption, media, opt)
}

func (r *Recorder) send(ctx context.Context, to kit.ChatTarget, text string, media kit.Media, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PanicChat[to.ChatID] {
		panic("transporttest: send to " + strconv.FormatInt(to.ChatID, 10))
	}
	if err := r.FailChat[to.ChatID]; err != nil {
		return kit.MessageRef{}, err
	}
	r.nextID++
	ref := kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: r.nextID}
	s := Sent{Ref: ref, To: to, Text: text, Media: media}
	if opt != nil {
		s.Options = *opt
	}
	r.Sent = append(r.Sent, s)
	return ref, nil
}

func (r *Recorder) DeleteMessage(_ context.Context, ref kit.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailDelete != nil {
		return r.FailDelete
	}
	r.Deleted = append(r.Deleted, ref)
	return nil
}

func (r *Recorder) AnswerCallback(_ context.Context, callbackID string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Answers = append(r.Answers, Answer{CallbackID: callbackID, Text: text})
	return nil
}

// SentTo returns the messages delivered to chatID, in order.
func (r *Recorder) SentTo(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.Sent {
		if s.To.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the most recent message sent to chatID.
func (r *Recorder) Last(chatID int64) (Sent, bool) {
	all := r.SentTo(chatID)
	if len(all) == 0 {
		return Sent{}, false
	}
	return all[len(all)-1], true
}

// LastAnswer returns the most recent callback answer.
func (r *Recorder) LastAnswer() (Answer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Answers) == 0 {
		return Answer{}, false
	}
	return r.Answers[len(r.Answers)-1], true
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = nil
	r.Deleted = nil
	r.Answers = nil
}
