// Package reconcile re-forwards questions that were stored but never reached
// the moderator chat, e.g. because the process died between the insert and
// the forward.
package reconcile

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"suggestbot/internal/domain"
	"suggestbot/internal/storage"
	logx "suggestbot/pkg/logx"
)

const (
	DefaultSchedule = "@every 5m"
	DefaultGrace    = 2 * time.Minute
)

type Config struct {
	Enabled  bool
	Schedule string        // cron spec; seconds field optional
	Grace    time.Duration // minimum question age before it counts as lost
	Timeout  time.Duration // per sweep
}

// Forwarder posts a stored question to the moderator chat and records the
// resulting message on it.
type Forwarder interface {
	Forward(ctx context.Context, q *domain.Question) error
}

type Sweeper struct {
	questions storage.Questions
	fwd       Forwarder
	log       logx.Logger
	parser    cron.Parser
	now       func() time.Time

	mu  sync.Mutex
	cfg Config
	c   *cron.Cron
}

func New(cfg Config, questions storage.Questions, fwd Forwarder, log logx.Logger) *Sweeper {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sweeper{
		cfg:       normalize(cfg),
		questions: questions,
		fwd:       fwd,
		log:       log,
		parser:    cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:       time.Now,
	}
}

func normalize(cfg Config) Config {
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return cfg
}

// Validate checks a schedule before it is applied.
func (s *Sweeper) Validate(spec string) error {
	_, err := s.parser.Parse(spec)
	return err
}

// Apply swaps the config, restarting the cron when the schedule changed and
// starting or stopping it when Enabled flipped.
func (s *Sweeper) Apply(ctx context.Context, cfg Config) {
	cfg = normalize(cfg)
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	running := s.c != nil
	s.mu.Unlock()

	if running == cfg.Enabled && old.Schedule == cfg.Schedule {
		return
	}
	s.Stop(ctx)
	if err := s.Start(ctx); err != nil {
		s.log.Error("restart after config change failed", logx.Err(err))
	}
}

// Start registers the sweep on its schedule. A disabled sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}

	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	base := context.WithoutCancel(ctx)
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.run(base) }); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("service started", logx.String("schedule", s.cfg.Schedule), logx.Duration("grace", s.cfg.Grace))
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("service stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	s.mu.Lock()
	timeout := s.cfg.Timeout
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Warn("sweep failed", logx.Err(err))
	}
}

// Sweep forwards every question older than the grace period that has no
// moderation message yet. It returns how many were forwarded.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	grace := s.cfg.Grace
	s.mu.Unlock()

	lost, err := s.questions.ListUnforwarded(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range lost {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		q := lost[i]
		if err := s.fwd.Forward(ctx, &q); err != nil {
			s.log.Warn("re-forward failed", logx.Int64("question_id", q.ID), logx.Err(err))
			continue
		}
		n++
		s.log.Info("question re-forwarded", logx.Int64("question_id", q.ID), logx.Int("moderation_msg", q.ModerationMessageID))
	}
	return n, nil
}
