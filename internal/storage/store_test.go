package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suggestbot/internal/domain"
	logx "suggestbot/pkg/logx"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sq, err := Open(ctx, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	mem, err := Open(ctx, Config{Driver: "memory"}, logx.Nop())
	require.NoError(t, err)

	stores := map[string]Store{"sqlite": sq, "memory": mem}

	// postgres runs only against a disposable database
	if dsn := os.Getenv("SUGGESTBOT_TEST_PG_DSN"); dsn != "" {
		pg, err := Open(ctx, Config{DSN: dsn}, logx.Nop())
		require.NoError(t, err)
		_, err = pg.(*postgresStore).pool.Exec(ctx, `TRUNCATE questions, users RESTART IDENTITY`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pg.Close() })
		stores["postgres"] = pg
	}
	return stores
}

func TestUpsertUserKeepsFirstStartAndResetsBlocked(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

			created, err := st.UpsertUser(ctx, domain.User{ID: 1, FullName: "Ann", Username: "ann", FirstStart: first})
			require.NoError(t, err)
			assert.True(t, created)

			require.NoError(t, st.SetUserBlocked(ctx, 1, true))

			created, err = st.UpsertUser(ctx, domain.User{ID: 1, FullName: "Ann B", Username: "", IsAdmin: true})
			require.NoError(t, err)
			assert.False(t, created)

			u, err := st.GetUser(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "Ann B", u.FullName)
			assert.Equal(t, "", u.Username)
			assert.True(t, u.IsAdmin)
			assert.False(t, u.IsBlocked)
			assert.True(t, u.FirstStart.Equal(first), "first start changed: %v", u.FirstStart)
		})
	}
}

func TestGetUserNotFound(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.GetUser(context.Background(), 404)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, st.SetUserBlocked(context.Background(), 404, true), ErrNotFound)
		})
	}
}

func TestListUsersFilters(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, u := range []domain.User{
				{ID: 1, FullName: "a"},
				{ID: 2, FullName: "b"},
				{ID: 3, FullName: "admin", IsAdmin: true},
			} {
				_, err := st.UpsertUser(ctx, u)
				require.NoError(t, err)
			}
			require.NoError(t, st.SetUserBlocked(ctx, 2, true))

			all, err := st.ListUsers(ctx, UserFilter{IncludeAdmins: true})
			require.NoError(t, err)
			assert.Len(t, all, 3)

			regular, err := st.ListUsers(ctx, UserFilter{})
			require.NoError(t, err)
			require.Len(t, regular, 2)
			assert.Equal(t, int64(1), regular[0].ID)
			assert.Equal(t, int64(2), regular[1].ID)

			notBlocked := false
			active, err := st.ListUsers(ctx, UserFilter{Blocked: &notBlocked})
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, int64(1), active[0].ID)

			n, err := st.CountUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			b, err := st.CountBlockedUsers(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, b)
		})
	}
}

func TestQuestionLifecycle(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := st.UpsertUser(ctx, domain.User{ID: 10, FullName: "owner"})
			require.NoError(t, err)

			q := &domain.Question{OwnerID: 10, Text: "hello", AttachmentKind: domain.AttachmentPhoto, AttachmentPath: "file-1"}
			require.NoError(t, st.CreateQuestion(ctx, q))
			require.NotZero(t, q.ID)

			got, err := st.GetQuestion(ctx, q.ID)
			require.NoError(t, err)
			assert.Equal(t, "hello", got.Text)
			assert.Equal(t, domain.AttachmentPhoto, got.AttachmentKind)
			assert.Equal(t, "file-1", got.AttachmentPath)
			assert.False(t, got.Forwarded())

			pending, err := st.ListUnforwarded(ctx, time.Now().Add(time.Minute))
			require.NoError(t, err)
			require.Len(t, pending, 1)

			require.NoError(t, st.SetModerationMessage(ctx, q.ID, -100, 55))
			got, err = st.GetQuestion(ctx, q.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(-100), got.ModerationChatID)
			assert.Equal(t, 55, got.ModerationMessageID)

			pending, err = st.ListUnforwarded(ctx, time.Now().Add(time.Minute))
			require.NoError(t, err)
			assert.Empty(t, pending)

			n, err := st.CountQuestions(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			removed, err := st.DeleteQuestion(ctx, q.ID)
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = st.DeleteQuestion(ctx, q.ID)
			require.NoError(t, err)
			assert.False(t, removed)

			_, err = st.GetQuestion(ctx, q.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListUnforwardedRespectsAge(t *testing.T) {
	for name, st := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := st.UpsertUser(ctx, domain.User{ID: 1})
			require.NoError(t, err)

			old := &domain.Question{OwnerID: 1, Text: "old", CreatedAt: time.Now().Add(-time.Hour)}
			fresh := &domain.Question{OwnerID: 1, Text: "fresh"}
			require.NoError(t, st.CreateQuestion(ctx, old))
			require.NoError(t, st.CreateQuestion(ctx, fresh))

			got, err := st.ListUnforwarded(ctx, time.Now().Add(-time.Minute))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, old.ID, got[0].ID)
		})
	}
}

func TestDriverFromURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"postgres://u:p@localhost/db": "postgres",
		"postgresql://localhost/db":   "postgres",
		"./data/bot.db":               "sqlite",
		"":                            "memory",
		"sqlite.db":                   "sqlite",
	}
	for in, want := range cases {
		assert.Equal(t, want, DriverFromURL(in), in)
	}
}

func TestResolveDriver(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sqlite", ResolveDriver(Config{Path: "./bot.db"}))
	assert.Equal(t, "postgres", ResolveDriver(Config{DSN: "postgres://db/bot", Path: "./bot.db"}))
	assert.Equal(t, "pgx", ResolveDriver(Config{Driver: " PGX "}))
	assert.Equal(t, "memory", ResolveDriver(Config{}))
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Driver: "mongo"}, logx.Nop())
	assert.Error(t, err)
}
