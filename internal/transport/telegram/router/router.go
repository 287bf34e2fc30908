// Package router dispatches inbound updates to handlers on a worker pool
// sharded by chat, so updates from one conversation run in arrival order.
package router

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	rtsup "suggestbot/internal/runtime/supervisor"
	kit "suggestbot/internal/transport"
	logx "suggestbot/pkg/logx"
)

type Config struct {
	Workers        int           // default runtime.NumCPU(), at least 2
	QueueSize      int           // total across shards, default 256
	HandlerTimeout time.Duration // default per-request timeout; 0 disables
	BusyText       string        // reply when a shard queue is full
}

type Router struct {
	cfg     Config
	log     logx.Logger
	adapter kit.Adapter

	mu       sync.RWMutex
	commands map[string]Command
	message  HandlerFunc
	callback HandlerFunc
	menu     []kit.BotCommand

	shards []chan func()
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = max(runtime.NumCPU(), 2)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	per := max(cfg.QueueSize/cfg.Workers, 1)
	shards := make([]chan func(), cfg.Workers)
	for i := range shards {
		shards[i] = make(chan func(), per)
	}
	return &Router{
		cfg:      cfg,
		log:      log,
		adapter:  adapter,
		commands: map[string]Command{},
		shards:   shards,
	}
}

// SetRoutes replaces the handler set. Safe while dispatching.
func (r *Router) SetRoutes(rt Routes) {
	cmds := make(map[string]Command, len(rt.Commands))
	for _, c := range rt.Commands {
		if c.Handle == nil {
			continue
		}
		for _, n := range append([]string{c.Name}, c.Aliases...) {
			n = strings.ToLower(strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if _, dup := cmds[n]; !dup {
				cmds[n] = c
			}
		}
	}
	menu := buildMenuCommands(rt.Commands)

	r.mu.Lock()
	r.commands = cmds
	r.message = rt.Message
	r.callback = rt.Callback
	r.menu = menu
	r.mu.Unlock()
}

// Dispatch consumes updates until ctx ends or the channel closes. Queued
// but not yet started jobs are dropped on return.
func (r *Router) Dispatch(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.New(ctx,
		rtsup.WithLogger(r.log.With(logx.String("comp", "telegram.router"))),
		rtsup.WithCancelOnError(false),
	)
	r.log.Info("dispatcher started", logx.Int("workers", len(r.shards)), logx.Int("shard_queue_cap", cap(r.shards[0])))

	for i, jobs := range r.shards {
		idx := i
		sup.GoRestart("router.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-jobs:
					job()
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithPublishFirstError(true),
		)
	}

	r.mu.RLock()
	menu := r.menu
	r.mu.RUnlock()
	if up, ok := r.adapter.(kit.CommandMenuUpdater); ok && len(menu) > 0 {
		sup.Go0("telegram.menu.update", func(c context.Context) {
			cctx, cancel := context.WithTimeout(c, 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(cctx, menu); err != nil {
				r.log.Warn("menu update failed", logx.Err(err))
			}
		})
	}

	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		r.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.route(ctx, up)
		}
	}
}

func (r *Router) route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		r.routeMessage(ctx, up)
	case kit.UpdateCallback:
		r.routeCallback(ctx, up)
	}
}

func (r *Router) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	req := &Request{
		Update: up,
		Chat:   kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID},
		FromID: msg.FromID,
	}

	r.mu.RLock()
	h := r.message
	timeout := r.cfg.HandlerTimeout
	if name, args, ok := parseCommand(msg.Text); ok && msg.Media.IsZero() {
		cmd, found := r.commands[name]
		if !found {
			r.mu.RUnlock()
			r.log.Debug("unknown command ignored", logx.String("cmd", name), logx.Int64("from_id", msg.FromID))
			return
		}
		h = cmd.Handle
		req.Command, req.Args = cmd.Name, args
		if cmd.Timeout > 0 {
			timeout = cmd.Timeout
		}
	}
	r.mu.RUnlock()
	if h == nil {
		return
	}

	if !r.enqueue(ctx, req, h, timeout) {
		if r.cfg.BusyText != "" {
			_, _ = r.adapter.SendText(ctx, req.Chat, r.cfg.BusyText, nil)
		}
	}
}

func (r *Router) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	r.mu.RLock()
	h := r.callback
	r.mu.RUnlock()
	if h == nil {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}
	req := &Request{
		Update: up,
		Chat:   kit.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID},
		FromID: cb.FromID,
	}
	if !r.enqueue(ctx, req, h, r.cfg.HandlerTimeout) {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, r.cfg.BusyText)
	}
}

// enqueue schedules h on the chat's shard. It reports false when the shard
// queue is full.
func (r *Router) enqueue(ctx context.Context, req *Request, h HandlerFunc, timeout time.Duration) bool {
	req.ReqID = uuid.NewString()
	req.Logger = r.log.With(
		logx.String("rid", req.ReqID),
		logx.Int64("chat_id", req.Chat.ChatID),
		logx.Int64("from_id", req.FromID),
	)
	final := Chain(h,
		MWPanicRecover(r.log),
		MWRequestLog(r.log),
		MWTimeout(timeout),
	)

	select {
	case r.shard(req.Chat.ChatID) <- func() { _ = final(ctx, req) }:
		return true
	default:
		req.Logger.Warn("shard queue full; update rejected", logx.String("route", req.route()))
		return false
	}
}

func (r *Router) shard(chatID int64) chan func() {
	return r.shards[uint64(chatID)%uint64(len(r.shards))]
}
