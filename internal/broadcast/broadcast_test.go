package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"suggestbot/internal/domain"
	"suggestbot/internal/storage"
	kit "suggestbot/internal/transport"
	"suggestbot/internal/transport/transporttest"
	logx "suggestbot/pkg/logx"
)

func seed(t *testing.T, st *storage.Memory, users ...domain.User) []domain.User {
	t.Helper()
	ctx := context.Background()
	for _, u := range users {
		_, err := st.UpsertUser(ctx, u)
		require.NoError(t, err)
		if u.IsBlocked {
			require.NoError(t, st.SetUserBlocked(ctx, u.ID, true))
		}
	}
	out, err := st.ListUsers(ctx, storage.UserFilter{})
	require.NoError(t, err)
	return out
}

func TestRenderPlaceholders(t *testing.T) {
	t.Parallel()

	got := Render("Привет, {name} (@{username}) {other}", domain.User{FullName: "Ann", Username: "ann"})
	assert.Equal(t, "Привет, Ann (@ann) {other}", got)

	got = Render("{name}/{username}", domain.User{})
	assert.Equal(t, "Уважаемый пользователь/", got)

	got = Render("{name}", domain.User{FullName: "<b>x</b>"})
	assert.Equal(t, "&lt;b&gt;x&lt;/b&gt;", got)
}

func TestRunCountsEveryRecipient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storage.NewMemory()
	recipients := seed(t, st,
		domain.User{ID: 1, FullName: "A"},
		domain.User{ID: 2, FullName: "B"},
		domain.User{ID: 3, FullName: "C", IsBlocked: true},
		domain.User{ID: 4, FullName: "D"},
		domain.User{ID: 5, FullName: "E"},
	)

	rec := transporttest.New()
	rec.FailChat[2] = kit.ErrForbidden
	rec.FailChat[4] = errors.New("flood wait")

	b := New(rec, st, 0, logx.Nop())
	sum := b.Run(ctx, Announcement{Text: "hi {name}"}, recipients)

	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 2, sum.Delivered)
	assert.Equal(t, 2, sum.Blocked)
	assert.Equal(t, 1, sum.Failed)
	assert.Len(t, sum.Results, 5)

	assert.Empty(t, rec.SentTo(3), "pre-blocked user is not contacted")
	last, ok := rec.Last(5)
	require.True(t, ok)
	assert.Equal(t, "hi E", last.Text)
	assert.Equal(t, "HTML", last.Options.ParseMode)

	u2, err := st.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.True(t, u2.IsBlocked)
	u4, err := st.GetUser(ctx, 4)
	require.NoError(t, err)
	assert.False(t, u4.IsBlocked, "ordinary failures do not block")
}

func TestRunWithoutNewForbiddenCoversAll(t *testing.T) {
	t.Parallel()

	st := storage.NewMemory()
	recipients := seed(t, st,
		domain.User{ID: 1},
		domain.User{ID: 2, IsBlocked: true},
		domain.User{ID: 3},
	)
	sum := New(transporttest.New(), st, 0, logx.Nop()).Run(context.Background(), Announcement{Text: "x"}, recipients)
	assert.Equal(t, len(recipients), sum.Delivered+sum.Blocked)
}

func TestRunMediaWithButton(t *testing.T) {
	t.Parallel()

	st := storage.NewMemory()
	recipients := seed(t, st, domain.User{ID: 1, FullName: "A"})
	rec := transporttest.New()

	ann := Announcement{
		Text:   "caption",
		Media:  kit.Media{Kind: kit.MediaVideo, Ref: "vid"},
		Button: &LinkButton{Label: "Go", URL: "https://example.org"},
	}
	sum := New(rec, st, 0, logx.Nop()).Run(context.Background(), ann, recipients)
	require.Equal(t, 1, sum.Delivered)

	s, _ := rec.Last(1)
	assert.Equal(t, ann.Media, s.Media)
	assert.Equal(t, "caption", s.Text)
	rm, ok := s.Options.ReplyMarkupAdapter.(*tele.ReplyMarkup)
	require.True(t, ok)
	require.Len(t, rm.InlineKeyboard, 1)
	assert.Equal(t, "https://example.org", rm.InlineKeyboard[0][0].URL)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	st := storage.NewMemory()
	recipients := seed(t, st, domain.User{ID: 1}, domain.User{ID: 2})
	rec := transporttest.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := New(rec, st, 0, logx.Nop()).Run(ctx, Announcement{Text: "x"}, recipients)
	assert.Zero(t, sum.Delivered)
	assert.Empty(t, rec.Sent)
}

func TestRunSurvivesPanickingSend(t *testing.T) {
	t.Parallel()

	st := storage.NewMemory()
	recipients := seed(t, st, domain.User{ID: 1}, domain.User{ID: 2}, domain.User{ID: 3})
	rec := transporttest.New()
	rec.PanicChat[2] = true

	sum := New(rec, st, 0, logx.Nop()).Run(context.Background(), Announcement{Text: "x"}, recipients)
	assert.Equal(t, 2, sum.Delivered)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Results, 3)
	assert.ErrorContains(t, sum.Results[1].Err, "panic")
	assert.Len(t, rec.SentTo(3), 1, "the sweep continues after the panic")
}

func TestRunPaced(t *testing.T) {
	t.Parallel()

	st := storage.NewMemory()
	recipients := seed(t, st, domain.User{ID: 1}, domain.User{ID: 2}, domain.User{ID: 3})
	b := New(transporttest.New(), st, 1000, logx.Nop())
	sum := b.Run(context.Background(), Announcement{Text: "x"}, recipients)
	assert.Equal(t, 3, sum.Delivered)
}

func TestAnnouncementEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, Announcement{}.Empty())
	assert.True(t, Announcement{Text: "  "}.Empty())
	assert.False(t, Announcement{Media: kit.Media{Kind: kit.MediaPhoto, Ref: "p"}}.Empty())
}
