package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"suggestbot/internal/access"
	"suggestbot/internal/bot"
	"suggestbot/internal/broadcast"
	"suggestbot/internal/compose"
	"suggestbot/internal/config"
	"suggestbot/internal/moderation"
	"suggestbot/internal/observability/ops"
	"suggestbot/internal/reconcile"
	rtsup "suggestbot/internal/runtime/supervisor"
	"suggestbot/internal/storage"
	kit "suggestbot/internal/transport"
	telegram "suggestbot/internal/transport/telegram/adapter"
	"suggestbot/internal/transport/telegram/router"
	logx "suggestbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	store   storage.Store

	drafts      compose.Store
	closeDrafts func() error

	gate    *access.Gate
	mod     *moderation.Service
	bc      *broadcast.Broadcaster
	sweeper *reconcile.Sweeper
	ops     *ops.Service
	router  *router.Router

	broadcastTimeout time.Duration

	updates chan kit.Update
}

// NewApp loads the config and builds every component. Nothing runs until
// Start.
func NewApp(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: config.Duration(cfg.Telegram.PollTimeout, defaultPollTimeout),
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// The report chat is set before the final Apply so the sink never sees
	// an enabled config without a target.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Report.Enabled = false
	logSvc, log := logx.New(bootCfg, ad)
	logSvc.SetReportChat(cfg.Telegram.DeveloperChatID)
	logSvc.Apply(logCfg)
	log = log.With(logx.String("comp", "app"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	drafts, closeDrafts, err := openDrafts(ctx, cfg)
	if err != nil {
		_ = store.Close()
		logSvc.Close()
		return nil, fmt.Errorf("open drafts: %w", err)
	}
	log.Info("storage ready", logx.String("driver", storage.ResolveDriver(sc)), logx.String("drafts", cfg.Drafts.Driver))

	gate := access.NewGate(store, cfg.Telegram.AdminIDs, log.With(logx.String("comp", "access")))
	mod := moderation.New(mapModerationConfig(cfg), store, gate, ad, log.With(logx.String("comp", "moderation")))
	bc := broadcast.New(ad, store, cfg.Broadcast.RatePerSec, log.With(logx.String("comp", "broadcast")))
	sweeper := reconcile.New(mapReconcileConfig(cfg), store, mod, log.With(logx.String("comp", "reconcile")))
	opsSvc := ops.New(mapOpsConfig(cfg), store.Ping, log.With(logx.String("comp", "ops")))
	rt := router.New(mapRouterConfig(cfg), ad, log.With(logx.String("comp", "router")))

	return &App{
		cfgm:             cfgm,
		log:              log,
		logs:             logSvc,
		adapter:          ad,
		store:            store,
		drafts:           drafts,
		closeDrafts:      closeDrafts,
		gate:             gate,
		mod:              mod,
		bc:               bc,
		sweeper:          sweeper,
		ops:              opsSvc,
		router:           rt,
		broadcastTimeout: config.Duration(cfg.Router.BroadcastTimeout, defaultBroadcastTimeout),
		updates:          make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if s := strings.TrimSpace(cfg.Reconcile.Schedule); s != "" {
			if err := a.sweeper.Validate(s); err != nil {
				return fmt.Errorf("reconcile.schedule: %w", err)
			}
		}
		return nil
	})

	b := bot.New(bot.Deps{
		Store:            a.store,
		Gate:             a.gate,
		Moderation:       a.mod,
		Broadcast:        a.bc,
		Drafts:           a.drafts,
		Out:              a.adapter,
		Runner:           a.sup,
		Log:              a.log,
		BroadcastTimeout: a.broadcastTimeout,
	})
	a.router.SetRoutes(b.Routes())

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if err := a.sweeper.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if err := a.ops.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("ops: %w", err)
	}

	a.sup.Go("router.dispatch", func(c context.Context) error {
		return a.router.Dispatch(c, a.updates)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		a.stopStep(ctx, name, limit, fn)
	}

	step("reconcile", 2*time.Second, func(c context.Context) error { a.sweeper.Stop(c); return nil })
	step("ops", time.Second, func(c context.Context) error { a.ops.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })

	// dispatcher, in-flight broadcasts and config loops
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	step("drafts", time.Second, func(context.Context) error { return a.closeDrafts() })
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

// stopStep runs fn with an upper bound so one component can't stall the
// whole stop.
func (a *App) stopStep(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

	stepCtx := ctx
	if limit > 0 {
		// respect the caller's deadline; never extend it
		if dl, ok := ctx.Deadline(); ok {
			limit = min(limit, max(time.Until(dl), 0))
		}
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		// fn must honor stepCtx; anything still running after this is a leak.
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			took := time.Since(start)
			if err != nil {
				a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
			} else {
				a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
			}
		}()
	}
}
