package router

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "suggestbot/internal/transport"
	"suggestbot/internal/transport/transporttest"
	logx "suggestbot/pkg/logx"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in         string
		name, args string
		ok         bool
	}{
		{"/start", "start", "", true},
		{"/send_ad Привет, {name}!\nвторая строка", "send_ad", "Привет, {name}!\nвторая строка", true},
		{"/Stats@suggest_bot", "stats", "", true},
		{"  /cancel  ", "cancel", "", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"/@bot", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := parseCommand(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.args, args, tc.in)
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "send_ad", sanitizeTelegramCommand("send-ad"))
	assert.Equal(t, "stats", sanitizeTelegramCommand(" /Stats "))
	assert.Equal(t, "cmd_1x", sanitizeTelegramCommand("1x"))
	assert.Empty(t, sanitizeTelegramCommand("привет"))
}

func TestBuildMenuCommandsSkipsHidden(t *testing.T) {
	t.Parallel()

	got := buildMenuCommands([]Command{
		{Name: "start", Description: "Начать"},
		{Name: "admin"},
		{Name: "help", Description: "Помощь"},
	})
	assert.Equal(t, []kit.BotCommand{
		{Command: "help", Description: "Помощь"},
		{Command: "start", Description: "Начать"},
	}, got)
}

type collector struct {
	mu   sync.Mutex
	reqs []*Request
}

func (c *collector) handle(_ context.Context, req *Request) error {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	return nil
}

func (c *collector) snapshot() []*Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Request(nil), c.reqs...)
}

func startRouter(t *testing.T, r *Router) chan<- kit.Update {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, 128)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Dispatch(ctx, updates)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return updates
}

func textUpdate(chatID int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: chatID, FromID: chatID, Text: text}}
}

func TestDispatchRoutesCommandsMessagesAndCallbacks(t *testing.T) {
	t.Parallel()

	var cmds, msgs, cbs collector
	r := New(Config{Workers: 2}, transporttest.New(), logx.Nop())
	r.SetRoutes(Routes{
		Commands: []Command{{Name: "send_ad", Aliases: []string{"ad"}, Handle: cmds.handle}},
		Message:  msgs.handle,
		Callback: cbs.handle,
	})
	updates := startRouter(t, r)

	updates <- textUpdate(1, "/send_ad hello {name}")
	updates <- textUpdate(1, "/ad")
	updates <- textUpdate(1, "/unknown")
	updates <- textUpdate(2, "a question")
	updates <- kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "cb", FromID: 3, ChatID: -100, Data: "{}"}}
	// a captioned photo that happens to start with a slash is content
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 2, Text: "/x", Media: kit.Media{Kind: kit.MediaPhoto, Ref: "f"}}}

	require.Eventually(t, func() bool {
		return len(cmds.snapshot()) == 2 && len(msgs.snapshot()) == 2 && len(cbs.snapshot()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	got := cmds.snapshot()
	assert.Equal(t, "send_ad", got[0].Command)
	assert.Equal(t, "hello {name}", got[0].Args)
	assert.Equal(t, "send_ad", got[1].Command, "aliases resolve to the canonical name")
	assert.NotEmpty(t, got[0].ReqID)

	cb := cbs.snapshot()[0]
	assert.Equal(t, int64(3), cb.FromID)
	require.NotNil(t, cb.Callback())
	assert.Nil(t, cb.Message())
}

func TestDispatchKeepsPerChatOrder(t *testing.T) {
	t.Parallel()

	var msgs collector
	r := New(Config{Workers: 4, QueueSize: 512}, transporttest.New(), logx.Nop())
	r.SetRoutes(Routes{Message: msgs.handle})
	updates := startRouter(t, r)

	const n = 60
	for i := range n {
		updates <- textUpdate(int64(i%3), strconv.Itoa(i))
	}
	require.Eventually(t, func() bool { return len(msgs.snapshot()) == n }, 2*time.Second, 5*time.Millisecond)

	last := map[int64]int{0: -1, 1: -1, 2: -1}
	for _, req := range msgs.snapshot() {
		v, err := strconv.Atoi(req.Message().Text)
		require.NoError(t, err)
		assert.Greater(t, v, last[req.Chat.ChatID], "chat %d out of order", req.Chat.ChatID)
		last[req.Chat.ChatID] = v
	}
}

func TestFullShardRepliesBusy(t *testing.T) {
	t.Parallel()

	rec := transporttest.New()
	r := New(Config{Workers: 1, QueueSize: 1, BusyText: "busy"}, rec, logx.Nop())
	r.SetRoutes(Routes{
		Message:  func(context.Context, *Request) error { return nil },
		Callback: func(context.Context, *Request) error { return nil },
	})

	// no workers are running, so the single slot stays taken
	ctx := context.Background()
	r.route(ctx, textUpdate(5, "first"))
	r.route(ctx, textUpdate(5, "second"))
	r.route(ctx, kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "c1", ChatID: 5}})

	sent := rec.SentTo(5)
	require.Len(t, sent, 1)
	assert.Equal(t, "busy", sent[0].Text)
	ans, ok := rec.LastAnswer()
	require.True(t, ok)
	assert.Equal(t, transporttest.Answer{CallbackID: "c1", Text: "busy"}, ans)
}

func TestCommandTimeoutOverridesDefault(t *testing.T) {
	t.Parallel()

	deadlines := make(chan time.Duration, 2)
	observe := func(ctx context.Context, _ *Request) error {
		dl, ok := ctx.Deadline()
		if !ok {
			deadlines <- 0
			return nil
		}
		deadlines <- time.Until(dl)
		return nil
	}
	r := New(Config{Workers: 1, HandlerTimeout: time.Second}, transporttest.New(), logx.Nop())
	r.SetRoutes(Routes{
		Commands: []Command{{Name: "long", Timeout: time.Hour, Handle: observe}},
		Message:  observe,
	})
	updates := startRouter(t, r)

	updates <- textUpdate(1, "/long")
	assert.Greater(t, <-deadlines, time.Minute)
	updates <- textUpdate(1, "plain")
	assert.LessOrEqual(t, <-deadlines, time.Second)
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	t.Parallel()

	h := Chain(func(context.Context, *Request) error { panic("boom") }, MWPanicRecover(logx.Nop()), MWRequestLog(logx.Nop()))
	err := h(context.Background(), &Request{Update: textUpdate(1, "x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: boom")
}

func TestRequestLogPassesErrorsThrough(t *testing.T) {
	t.Parallel()

	want := errors.New("storage down")
	h := Chain(func(context.Context, *Request) error { return want }, MWRequestLog(logx.Nop()))
	assert.ErrorIs(t, h(context.Background(), &Request{Update: textUpdate(1, "x")}), want)
}
