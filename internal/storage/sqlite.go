package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"suggestbot/internal/domain"
	logx "suggestbot/pkg/logx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = strings.TrimSpace(cfg.DSN)
	}
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; one connection also keeps pragmas applied.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = time.Second
	}
	_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Info("sqlite store opened", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations/sqlite.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) UpsertUser(ctx context.Context, u domain.User) (bool, error) {
	if u.FirstStart.IsZero() {
		u.FirstStart = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users(tg_id, fullname, username, first_start, is_admin, is_blocked)
		 VALUES(?,?,?,?,?,0)
		 ON CONFLICT(tg_id) DO NOTHING`,
		u.ID, u.FullName, nullStr(u.Username), u.FirstStart.UnixMilli(), boolInt(u.IsAdmin),
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, _ := res.RowsAffected()
	created := n == 1
	if !created {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET fullname = ?, username = ?, is_admin = ?, is_blocked = 0 WHERE tg_id = ?`,
			u.FullName, nullStr(u.Username), boolInt(u.IsAdmin), u.ID,
		); err != nil {
			return false, fmt.Errorf("update user: %w", err)
		}
	}
	return created, tx.Commit()
}

const sqliteUserCols = `tg_id, fullname, username, first_start, is_admin, is_blocked`

func scanSQLiteUser(sc interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u        domain.User
		username sql.NullString
		first    int64
		admin    int
		blocked  int
	)
	if err := sc.Scan(&u.ID, &u.FullName, &username, &first, &admin, &blocked); err != nil {
		return domain.User{}, err
	}
	u.Username = username.String
	u.FirstStart = time.UnixMilli(first)
	u.IsAdmin = admin != 0
	u.IsBlocked = blocked != 0
	return u, nil
}

func (s *sqliteStore) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanSQLiteUser(s.db.QueryRowContext(ctx, `SELECT `+sqliteUserCols+` FROM users WHERE tg_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (s *sqliteStore) ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error) {
	q := `SELECT ` + sqliteUserCols + ` FROM users WHERE 1=1`
	args := []any{}
	if !f.IncludeAdmins {
		q += ` AND is_admin = 0`
	}
	if f.Blocked != nil {
		q += ` AND is_blocked = ?`
		args = append(args, boolInt(*f.Blocked))
	}
	q += ` ORDER BY tg_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SetUserBlocked(ctx context.Context, id int64, blocked bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_blocked = ? WHERE tg_id = ?`, boolInt(blocked), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (s *sqliteStore) CountBlockedUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users WHERE is_blocked = 1`)
}

func (s *sqliteStore) CountQuestions(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM questions`)
}

func (s *sqliteStore) count(ctx context.Context, q string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, q).Scan(&n)
	return n, err
}

func (s *sqliteStore) CreateQuestion(ctx context.Context, q *domain.Question) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO questions(owner_id, attachment_kind, attachment_path, text, moderation_chat_id, moderation_message_id, created_at)
		 VALUES(?,?,?,?,?,?,?)`,
		q.OwnerID, string(q.AttachmentKind), nullStr(q.AttachmentPath), q.Text,
		q.ModerationChatID, q.ModerationMessageID, q.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = id
	return nil
}

const sqliteQuestionCols = `question_id, owner_id, attachment_kind, attachment_path, text, moderation_chat_id, moderation_message_id, created_at`

func scanSQLiteQuestion(sc interface{ Scan(...any) error }) (domain.Question, error) {
	var (
		q       domain.Question
		kind    string
		path    sql.NullString
		created int64
	)
	if err := sc.Scan(&q.ID, &q.OwnerID, &kind, &path, &q.Text, &q.ModerationChatID, &q.ModerationMessageID, &created); err != nil {
		return domain.Question{}, err
	}
	q.AttachmentKind = domain.AttachmentKind(kind)
	q.AttachmentPath = path.String
	q.CreatedAt = time.UnixMilli(created)
	return q, nil
}

func (s *sqliteStore) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	q, err := scanSQLiteQuestion(s.db.QueryRowContext(ctx, `SELECT `+sqliteQuestionCols+` FROM questions WHERE question_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, ErrNotFound
	}
	return q, err
}

func (s *sqliteStore) DeleteQuestion(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE question_id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *sqliteStore) SetModerationMessage(ctx context.Context, id, chatID int64, messageID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET moderation_chat_id = ?, moderation_message_id = ? WHERE question_id = ?`,
		chatID, messageID, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) ListUnforwarded(ctx context.Context, olderThan time.Time) ([]domain.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteQuestionCols+` FROM questions
		 WHERE moderation_message_id = 0 AND created_at < ?
		 ORDER BY created_at, question_id`,
		olderThan.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanSQLiteQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
