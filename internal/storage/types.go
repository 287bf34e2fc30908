package storage

import (
	"context"
	"time"

	"suggestbot/internal/domain"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = domain.ErrNotFound

// Config configures storage.
type Config struct {
	Driver      string
	Path        string        // sqlite file
	DSN         string        // postgres connection string
	BusyTimeout time.Duration // sqlite only; 0 means default
	MaxConns    int32         // postgres only; 0 means pgx default
}

// UserFilter narrows ListUsers. A nil Blocked matches both states.
type UserFilter struct {
	IncludeAdmins bool
	Blocked       *bool
}

type Users interface {
	// UpsertUser creates u (FirstStart = now when zero) or refreshes name,
	// handle and admin flag of an existing row. Either way the row ends up
	// unblocked. created reports whether a new row was inserted.
	UpsertUser(ctx context.Context, u domain.User) (created bool, err error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error)
	SetUserBlocked(ctx context.Context, id int64, blocked bool) error
	CountUsers(ctx context.Context) (int, error)
	CountBlockedUsers(ctx context.Context) (int, error)
}

type Questions interface {
	// CreateQuestion persists q and sets q.ID.
	CreateQuestion(ctx context.Context, q *domain.Question) error
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	// DeleteQuestion reports whether a row was removed.
	DeleteQuestion(ctx context.Context, id int64) (bool, error)
	SetModerationMessage(ctx context.Context, id, chatID int64, messageID int) error
	CountQuestions(ctx context.Context) (int, error)
	// ListUnforwarded returns questions created before olderThan that never
	// got a moderation message, oldest first.
	ListUnforwarded(ctx context.Context, olderThan time.Time) ([]domain.Question, error)
}

// Store is the persistence API used by services.
type Store interface {
	Users
	Questions
	Ping(ctx context.Context) error
	Close() error
}
