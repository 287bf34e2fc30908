package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ApplyDefaults fills the fields whose zero value is not a usable setting.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if !c.Logging.Console && !c.Logging.File.Enabled {
		c.Logging.Console = true
	}
	if c.Telegram.DeveloperChatID != 0 && strings.TrimSpace(c.Logging.Report.MinLevel) == "" {
		c.Logging.Report.MinLevel = "error"
	}
	if strings.TrimSpace(c.Storage.Driver) == "" && strings.TrimSpace(c.Storage.DSN) == "" && strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Driver = "sqlite"
		c.Storage.Path = "./suggestbot.db"
	}
	if strings.TrimSpace(c.Drafts.Driver) == "" {
		c.Drafts.Driver = "memory"
	}
}

// Validate rejects configs the bot cannot start (or keep running) with.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token (API_TOKEN) is required"))
	}
	if c.Telegram.ModerationChatID == 0 {
		errs = append(errs, errors.New("telegram.moderation_chat_id (REPLY_USER_ID) is required"))
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql", "pgx", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.Drafts.Driver)) {
	case "", "memory":
	case "redis":
		if _, err := url.Parse(c.Drafts.RedisURL); err != nil || strings.TrimSpace(c.Drafts.RedisURL) == "" {
			errs = append(errs, errors.New("drafts.redis_url (REDIS_URL) is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("drafts.driver: unknown driver %q", c.Drafts.Driver))
	}
	if _, err := ParseDurationField("drafts.ttl", c.Drafts.TTL); err != nil {
		errs = append(errs, err)
	}

	if c.Router.Workers < 0 || c.Router.QueueSize < 0 {
		errs = append(errs, errors.New("router: workers and queue_size must be >= 0"))
	}
	for path, raw := range map[string]string{
		"router.handler_timeout":   c.Router.HandlerTimeout,
		"router.broadcast_timeout": c.Router.BroadcastTimeout,
		"reconcile.grace":          c.Reconcile.Grace,
		"reconcile.timeout":        c.Reconcile.Timeout,
		"ops.read_timeout":         c.Ops.ReadTimeout,
		"ops.write_timeout":        c.Ops.WriteTimeout,
		"ops.idle_timeout":         c.Ops.IdleTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Submission.MaxLength < 0 {
		errs = append(errs, errors.New("submission.max_length must be >= 0"))
	}
	if c.Broadcast.RatePerSec < 0 {
		errs = append(errs, errors.New("broadcast.rate_per_sec must be >= 0"))
	}
	if c.Logging.Report.RatePerSec < 0 {
		errs = append(errs, errors.New("logging.report.rate_per_sec must be >= 0"))
	}

	return errors.Join(errs...)
}
