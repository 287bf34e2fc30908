package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"suggestbot/internal/domain"
	logx "suggestbot/pkg/logx"
)

type postgresStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pcfg.MinConns = 0
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	st := &postgresStore{pool: pool, log: log}
	if err := st.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	log.Info("postgres store opened", logx.String("host", pcfg.ConnConfig.Host), logx.String("db", pcfg.ConnConfig.Database))
	return st, nil
}

func (s *postgresStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations/postgres.sql")
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, string(b))
	return err
}

func (s *postgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *postgresStore) UpsertUser(ctx context.Context, u domain.User) (bool, error) {
	if u.FirstStart.IsZero() {
		u.FirstStart = time.Now()
	}
	var inserted bool
	err := s.pool.QueryRow(ctx, `
INSERT INTO users (tg_id, fullname, username, first_start, is_admin, is_blocked)
VALUES ($1, $2, $3, $4, $5, FALSE)
ON CONFLICT (tg_id) DO UPDATE SET
	fullname = EXCLUDED.fullname,
	username = EXCLUDED.username,
	is_admin = EXCLUDED.is_admin,
	is_blocked = FALSE
RETURNING (xmax = 0)
`, u.ID, u.FullName, nullableString(u.Username), u.FirstStart, u.IsAdmin).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return inserted, nil
}

const pgUserCols = `tg_id, fullname, COALESCE(username, ''), first_start, is_admin, is_blocked`

func scanPGUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.FullName, &u.Username, &u.FirstStart, &u.IsAdmin, &u.IsBlocked)
	return u, err
}

func (s *postgresStore) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanPGUser(s.pool.QueryRow(ctx, `SELECT `+pgUserCols+` FROM users WHERE tg_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *postgresStore) ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error) {
	q := `SELECT ` + pgUserCols + ` FROM users WHERE TRUE`
	args := []any{}
	if !f.IncludeAdmins {
		q += ` AND is_admin = FALSE`
	}
	if f.Blocked != nil {
		args = append(args, *f.Blocked)
		q += fmt.Sprintf(` AND is_blocked = $%d`, len(args))
	}
	q += ` ORDER BY tg_id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanPGUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *postgresStore) SetUserBlocked(ctx context.Context, id int64, blocked bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_blocked = $1 WHERE tg_id = $2`, blocked, id)
	if err != nil {
		return fmt.Errorf("set user blocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (s *postgresStore) CountBlockedUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users WHERE is_blocked`)
}

func (s *postgresStore) CountQuestions(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM questions`)
}

func (s *postgresStore) count(ctx context.Context, q string) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *postgresStore) CreateQuestion(ctx context.Context, q *domain.Question) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	err := s.pool.QueryRow(ctx, `
INSERT INTO questions (owner_id, attachment_kind, attachment_path, text, moderation_chat_id, moderation_message_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING question_id
`, q.OwnerID, string(q.AttachmentKind), nullableString(q.AttachmentPath), q.Text,
		q.ModerationChatID, q.ModerationMessageID, q.CreatedAt).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

const pgQuestionCols = `question_id, owner_id, attachment_kind, COALESCE(attachment_path, ''), text, moderation_chat_id, moderation_message_id, created_at`

func scanPGQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q    domain.Question
		kind string
	)
	err := row.Scan(&q.ID, &q.OwnerID, &kind, &q.AttachmentPath, &q.Text, &q.ModerationChatID, &q.ModerationMessageID, &q.CreatedAt)
	q.AttachmentKind = domain.AttachmentKind(kind)
	return q, err
}

func (s *postgresStore) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	q, err := scanPGQuestion(s.pool.QueryRow(ctx, `SELECT `+pgQuestionCols+` FROM questions WHERE question_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, ErrNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *postgresStore) DeleteQuestion(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE question_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *postgresStore) SetModerationMessage(ctx context.Context, id, chatID int64, messageID int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET moderation_chat_id = $1, moderation_message_id = $2 WHERE question_id = $3`,
		chatID, messageID, id,
	)
	if err != nil {
		return fmt.Errorf("set moderation message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) ListUnforwarded(ctx context.Context, olderThan time.Time) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+pgQuestionCols+`
FROM questions
WHERE moderation_message_id = 0 AND created_at < $1
ORDER BY created_at, question_id
`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list unforwarded: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanPGQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func nullableString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
