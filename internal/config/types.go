package config

// Config is the on-disk configuration (JSON or YAML). Every field can be
// omitted; environment variables are overlaid after decoding (see env.go).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Logging    LoggingConfig    `json:"logging"`
	Storage    StorageConfig    `json:"storage"`
	Drafts     DraftsConfig     `json:"drafts"`
	Router     RouterConfig     `json:"router"`
	Submission SubmissionConfig `json:"submission"`
	Moderation ModerationConfig `json:"moderation"`
	Broadcast  BroadcastConfig  `json:"broadcast"`
	Reconcile  ReconcileConfig  `json:"reconcile"`
	Ops        OpsConfig        `json:"ops,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// AdminIDs is the allow-list that feeds the persisted admin flag.
	AdminIDs []int64 `json:"admin_ids"`
	// ModerationChatID receives forwarded submissions (REPLY_USER_ID).
	ModerationChatID int64 `json:"moderation_chat_id"`
	// DeveloperChatID receives error reports (DEVELOPER_CHAT_ID).
	DeveloperChatID int64  `json:"developer_chat_id,omitempty"`
	PollTimeout     string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Report  LoggingReport `json:"report"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingReport controls error reports to the developer chat.
type LoggingReport struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig selects the persistence backend.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./suggestbot.db" }
//	"storage": { "dsn": "postgres://bot:secret@db/suggestbot" }
//
// When driver is empty it is derived from dsn (DB_URL).
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
	MaxConns    int32  `json:"max_conns,omitempty"`    // postgres
}

// DraftsConfig selects where guided broadcast drafts live.
type DraftsConfig struct {
	Driver   string `json:"driver,omitempty"` // memory (default) | redis
	RedisURL string `json:"redis_url,omitempty"`
	TTL      string `json:"ttl,omitempty"` // default 30m
}

// RouterConfig sizes the update dispatcher.
//
// Defaults: workers=4, queue_size=256, handler_timeout=30s.
type RouterConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	HandlerTimeout string `json:"handler_timeout,omitempty"`
	// BroadcastTimeout bounds a whole broadcast sweep. Default 1h.
	BroadcastTimeout string `json:"broadcast_timeout,omitempty"`
}

type SubmissionConfig struct {
	// MaxLength caps the characters of a text or caption. 0 disables the cap.
	MaxLength int `json:"max_length"`
}

type ModerationConfig struct {
	NotifyOnAccept bool `json:"notify_on_accept"`
}

type BroadcastConfig struct {
	// RatePerSec paces deliveries. 0 sends as fast as the API allows.
	RatePerSec float64 `json:"rate_per_sec"`
}

// ReconcileConfig controls the sweep that re-forwards questions which were
// stored but never reached the moderator chat.
//
// Enabled is a pointer so an omitted block means enabled.
type ReconcileConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Schedule string `json:"schedule,omitempty"` // cron spec, default "@every 5m"
	Grace    string `json:"grace,omitempty"`    // default 2m
	Timeout  string `json:"timeout,omitempty"`  // default 1m
}

func (r ReconcileConfig) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

// OpsConfig controls the optional ops HTTP server (/healthz, /metrics and
// pprof).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:9090").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type OpsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"` // default: "127.0.0.1:9090"
	Pprof         bool   `json:"pprof,omitempty"`
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}
