package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suggestbot/internal/access"
	"suggestbot/internal/broadcast"
	"suggestbot/internal/compose"
	"suggestbot/internal/config"
	"suggestbot/internal/moderation"
	"suggestbot/internal/reconcile"
	"suggestbot/internal/storage"
	"suggestbot/internal/texts"
	"suggestbot/internal/transport/transporttest"
	logx "suggestbot/pkg/logx"
)

func baseConfig() *config.Config {
	cfg := &config.Config{
		Telegram: config.TelegramConfig{
			Token:            "t",
			AdminIDs:         []int64{1},
			ModerationChatID: -100,
		},
		Submission: config.SubmissionConfig{MaxLength: 250},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Storage = config.StorageConfig{Path: "./x.db", BusyTimeout: "3s"}
	sc, err := mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, sc.BusyTimeout)
	assert.Equal(t, "sqlite", storage.ResolveDriver(sc))

	cfg.Storage = config.StorageConfig{DSN: "postgres://bot@db/suggest"}
	sc, err = mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres", storage.ResolveDriver(sc))

	cfg.Storage.BusyTimeout = "soon"
	_, err = mapStorageConfig(cfg)
	assert.Error(t, err)
}

func TestMapDefaults(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	rc := mapRouterConfig(cfg)
	assert.Equal(t, defaultRouterWorkers, rc.Workers)
	assert.Equal(t, defaultHandlerTimeout, rc.HandlerTimeout)
	assert.Equal(t, texts.Busy, rc.BusyText)

	rec := mapReconcileConfig(cfg)
	assert.True(t, rec.Enabled, "an omitted reconcile block is enabled")
	assert.Equal(t, reconcile.DefaultGrace, rec.Grace)

	mc := mapModerationConfig(cfg)
	assert.Equal(t, int64(-100), mc.Chat.ChatID)
	assert.Equal(t, 250, mc.MaxLength)

	lc := mapLogConfig(cfg)
	assert.False(t, lc.Report.Enabled, "reports need a developer chat")
	cfg.Telegram.DeveloperChatID = 42
	cfg.Logging.Report.Enabled = true
	assert.True(t, mapLogConfig(cfg).Report.Enabled)
}

func TestOpenDraftsMemory(t *testing.T) {
	t.Parallel()

	st, closeFn, err := openDrafts(context.Background(), baseConfig())
	require.NoError(t, err)
	require.NoError(t, closeFn())
	_, ok := st.(*compose.MemoryStore)
	assert.True(t, ok)

	cfg := baseConfig()
	cfg.Drafts.Driver = "etcd"
	_, _, err = openDrafts(context.Background(), cfg)
	assert.Error(t, err)
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	st := storage.NewMemory()
	rec := transporttest.New()
	logs, log := logx.New(logx.Config{Level: "error", Console: true}, rec)
	t.Cleanup(func() { _ = logs.Close() })

	gate := access.NewGate(st, cfg.Telegram.AdminIDs, log)
	mod := moderation.New(mapModerationConfig(cfg), st, gate, rec, log)
	return &App{
		log:     log,
		logs:    logs,
		adapter: rec,
		store:   st,
		gate:    gate,
		mod:     mod,
		bc:      broadcast.New(rec, st, 0, log),
		sweeper: reconcile.New(mapReconcileConfig(cfg), st, mod, log),
	}
}

func TestApplyConfigUpdatesLiveServices(t *testing.T) {
	t.Parallel()

	oldCfg := baseConfig()
	a := newTestApp(t, oldCfg)
	t.Cleanup(func() { a.sweeper.Stop(context.Background()) })

	newCfg := baseConfig()
	newCfg.Telegram.AdminIDs = []int64{1, 2}
	newCfg.Submission.MaxLength = 500
	a.applyConfig(context.Background(), oldCfg, newCfg)

	assert.True(t, a.gate.IsAllowListed(2))
	assert.Equal(t, 500, a.mod.MaxLength())
}

func TestApplyConfigIgnoresNoop(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	a := newTestApp(t, cfg)
	a.applyConfig(context.Background(), cfg, baseConfig())
	assert.Equal(t, 250, a.mod.MaxLength())
}

func TestStopStepBoundsSlowSteps(t *testing.T) {
	t.Parallel()

	a := &App{log: logx.Nop()}
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	start := time.Now()
	a.stopStep(context.Background(), "slow", 50*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})
	assert.Less(t, time.Since(start), time.Second)

	a.stopStep(context.Background(), "panics", time.Second, func(context.Context) error { panic("boom") })
}
