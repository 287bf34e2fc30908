package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suggestbot/internal/domain"
	"suggestbot/internal/storage"
	logx "suggestbot/pkg/logx"
)

type fakeForwarder struct {
	st     *storage.Memory
	fail   map[int64]bool
	called []int64
}

func (f *fakeForwarder) Forward(ctx context.Context, q *domain.Question) error {
	f.called = append(f.called, q.ID)
	if f.fail[q.ID] {
		return errors.New("chat unavailable")
	}
	q.ModerationChatID = -1
	q.ModerationMessageID = int(100 + q.ID)
	return f.st.SetModerationMessage(ctx, q.ID, q.ModerationChatID, q.ModerationMessageID)
}

func TestSweepForwardsOnlyLostQuestions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storage.NewMemory()
	_, err := st.UpsertUser(ctx, domain.User{ID: 1})
	require.NoError(t, err)

	now := time.Now()
	old := domain.Question{OwnerID: 1, Text: "lost", CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, st.CreateQuestion(ctx, &old))
	fresh := domain.Question{OwnerID: 1, Text: "in flight", CreatedAt: now}
	require.NoError(t, st.CreateQuestion(ctx, &fresh))
	done := domain.Question{OwnerID: 1, Text: "forwarded", CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, st.CreateQuestion(ctx, &done))
	require.NoError(t, st.SetModerationMessage(ctx, done.ID, -1, 9))

	fwd := &fakeForwarder{st: st}
	s := New(Config{Grace: time.Minute}, st, fwd, logx.Nop())

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{old.ID}, fwd.called)

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep finds nothing")
}

func TestSweepContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storage.NewMemory()
	_, err := st.UpsertUser(ctx, domain.User{ID: 1})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	a := domain.Question{OwnerID: 1, Text: "a", CreatedAt: past}
	b := domain.Question{OwnerID: 1, Text: "b", CreatedAt: past.Add(time.Second)}
	require.NoError(t, st.CreateQuestion(ctx, &a))
	require.NoError(t, st.CreateQuestion(ctx, &b))

	fwd := &fakeForwarder{st: st, fail: map[int64]bool{a.ID: true}}
	n, err := New(Config{}, st, fwd, logx.Nop()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{a.ID, b.ID}, fwd.called)
}

func TestStartDisabledIsNoop(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: false}, storage.NewMemory(), &fakeForwarder{}, logx.Nop())
	require.NoError(t, s.Start(context.Background()))
	s.Stop(context.Background())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Schedule: "every now and then"}, storage.NewMemory(), &fakeForwarder{}, logx.Nop())
	assert.Error(t, s.Start(context.Background()))
	assert.Error(t, s.Validate("every now and then"))
	assert.NoError(t, s.Validate("*/30 * * * * *"))
	assert.NoError(t, s.Validate(DefaultSchedule))
}
