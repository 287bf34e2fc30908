package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Env holds the environment variables understood by the bot. Non-empty values
// override the file config.
type Env struct {
	Token           string   `env:"API_TOKEN"`
	ReplyUserID     int64    `env:"REPLY_USER_ID"`
	AdminIDs        []string `env:"ADMIN_IDS" envSeparator:","`
	DeveloperChatID int64    `env:"DEVELOPER_CHAT_ID"`
	DBURL           string   `env:"DB_URL"`
	RedisURL        string   `env:"REDIS_URL"`
	LogLevel        string   `env:"LOG_LEVEL"`

	// nil when unset, so an explicit 0 or false still overrides the file
	MaxLength      *int  `env:"MAX_LENGTH"`
	NotifyOnAccept *bool `env:"NOTIFY_ON_ACCEPT"`
}

// LoadDotEnv reads .env files into the process environment. Missing files are
// not an error: in production the variables are usually set directly.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("env: %w", err)
	}
	return e, nil
}

// ParseAdminIDs accepts "1, 2,3" style lists.
func ParseAdminIDs(parts []string) ([]int64, error) {
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS: invalid id %q", p)
		}
		out = append(out, id)
	}
	return out, nil
}

// Overlay copies every set variable onto cfg.
func (e Env) Overlay(cfg *Config) error {
	if v := strings.TrimSpace(e.Token); v != "" {
		cfg.Telegram.Token = v
	}
	if e.ReplyUserID != 0 {
		cfg.Telegram.ModerationChatID = e.ReplyUserID
	}
	if len(e.AdminIDs) > 0 {
		ids, err := ParseAdminIDs(e.AdminIDs)
		if err != nil {
			return err
		}
		cfg.Telegram.AdminIDs = ids
	}
	if e.DeveloperChatID != 0 {
		cfg.Telegram.DeveloperChatID = e.DeveloperChatID
		cfg.Logging.Report.Enabled = true
	}
	if v := strings.TrimSpace(e.DBURL); v != "" {
		cfg.Storage.DSN = v
		cfg.Storage.Driver = ""
		cfg.Storage.Path = ""
	}
	if v := strings.TrimSpace(e.RedisURL); v != "" {
		cfg.Drafts.Driver = "redis"
		cfg.Drafts.RedisURL = v
	}
	if v := strings.TrimSpace(e.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if e.MaxLength != nil {
		cfg.Submission.MaxLength = *e.MaxLength
	}
	if e.NotifyOnAccept != nil {
		cfg.Moderation.NotifyOnAccept = *e.NotifyOnAccept
	}
	return nil
}
