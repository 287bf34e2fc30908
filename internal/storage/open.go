package storage

import (
	"context"
	"errors"
	"strings"

	logx "suggestbot/pkg/logx"
)

// Open initializes the configured store.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := ResolveDriver(cfg); driver {
	case "sqlite", "sqlite3":
		return openSQLite(ctx, cfg, log)
	case "postgres", "postgresql", "pgx":
		return openPostgres(ctx, cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

// ResolveDriver returns the normalized driver name. Without an explicit
// driver a bare Path means sqlite and a DSN is classified by DriverFromURL.
func ResolveDriver(cfg Config) string {
	if d := strings.ToLower(strings.TrimSpace(cfg.Driver)); d != "" {
		return d
	}
	if strings.TrimSpace(cfg.DSN) == "" && strings.TrimSpace(cfg.Path) != "" {
		return "sqlite"
	}
	return DriverFromURL(cfg.DSN)
}

// DriverFromURL guesses the driver from a DB_URL style value.
// Anything that is not a postgres URL is treated as a sqlite path.
func DriverFromURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "postgres://"), strings.HasPrefix(s, "postgresql://"):
		return "postgres"
	case s == "" || s == ":memory:" || s == "memory":
		return "memory"
	default:
		return "sqlite"
	}
}
