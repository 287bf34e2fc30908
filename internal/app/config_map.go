package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"suggestbot/internal/compose"
	"suggestbot/internal/config"
	"suggestbot/internal/moderation"
	"suggestbot/internal/observability/ops"
	"suggestbot/internal/reconcile"
	"suggestbot/internal/storage"
	"suggestbot/internal/texts"
	kit "suggestbot/internal/transport"
	"suggestbot/internal/transport/telegram/router"
	logx "suggestbot/pkg/logx"
)

const (
	defaultPollTimeout      = 10 * time.Second
	defaultHandlerTimeout   = 30 * time.Second
	defaultBroadcastTimeout = time.Hour
	defaultRouterWorkers    = 4
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Report: logx.ReportConfig{
			Enabled:    cfg.Logging.Report.Enabled && cfg.Telegram.DeveloperChatID != 0,
			MinLevel:   cfg.Logging.Report.MinLevel,
			RatePerSec: cfg.Logging.Report.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.TrimSpace(cfg.Storage.Driver),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		DSN:         strings.TrimSpace(cfg.Storage.DSN),
		BusyTimeout: busy,
		MaxConns:    cfg.Storage.MaxConns,
	}, nil
}

func mapModerationConfig(cfg *config.Config) moderation.Config {
	return moderation.Config{
		Chat:           kit.ChatTarget{ChatID: cfg.Telegram.ModerationChatID},
		MaxLength:      cfg.Submission.MaxLength,
		NotifyOnAccept: cfg.Moderation.NotifyOnAccept,
	}
}

func mapReconcileConfig(cfg *config.Config) reconcile.Config {
	return reconcile.Config{
		Enabled:  cfg.Reconcile.IsEnabled(),
		Schedule: strings.TrimSpace(cfg.Reconcile.Schedule),
		Grace:    config.Duration(cfg.Reconcile.Grace, reconcile.DefaultGrace),
		Timeout:  config.Duration(cfg.Reconcile.Timeout, time.Minute),
	}
}

func mapRouterConfig(cfg *config.Config) router.Config {
	workers := cfg.Router.Workers
	if workers == 0 {
		workers = defaultRouterWorkers
	}
	return router.Config{
		Workers:        workers,
		QueueSize:      cfg.Router.QueueSize,
		HandlerTimeout: config.Duration(cfg.Router.HandlerTimeout, defaultHandlerTimeout),
		BusyText:       texts.Busy,
	}
}

func mapOpsConfig(cfg *config.Config) ops.Config {
	return ops.Config{
		Enabled:       cfg.Ops.Enabled,
		Addr:          strings.TrimSpace(cfg.Ops.Addr),
		Pprof:         cfg.Ops.Pprof,
		Token:         strings.TrimSpace(cfg.Ops.Token),
		AllowInsecure: cfg.Ops.AllowInsecure,
		ReadTimeout:   config.Duration(cfg.Ops.ReadTimeout, 5*time.Second),
		WriteTimeout:  config.Duration(cfg.Ops.WriteTimeout, 30*time.Second),
		IdleTimeout:   config.Duration(cfg.Ops.IdleTimeout, time.Minute),
	}
}

// openDrafts returns the draft store and a closer for its backend.
func openDrafts(ctx context.Context, cfg *config.Config) (compose.Store, func() error, error) {
	ttl := config.Duration(cfg.Drafts.TTL, compose.DefaultTTL)
	switch strings.ToLower(strings.TrimSpace(cfg.Drafts.Driver)) {
	case "redis":
		rdb, err := compose.OpenRedis(ctx, cfg.Drafts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return compose.NewRedisStore(rdb, ttl), rdb.Close, nil
	case "", "memory":
		return compose.NewMemoryStore(ttl), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("drafts.driver: unknown driver %q", cfg.Drafts.Driver)
	}
}
