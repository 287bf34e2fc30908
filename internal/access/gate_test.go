package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suggestbot/internal/domain"
	"suggestbot/internal/storage"
	logx "suggestbot/pkg/logx"
)

func TestClassifyUnknownActorIsRegular(t *testing.T) {
	t.Parallel()

	g := NewGate(storage.NewMemory(), []int64{1}, logx.Nop())
	role, err := g.Classify(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRegular, role, "allow-listed but never registered must not be admin")
	assert.ErrorIs(t, g.RequireAdmin(context.Background(), 1), domain.ErrAccessDenied)
}

func TestTouchFollowsAllowList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storage.NewMemory()
	g := NewGate(st, []int64{7}, logx.Nop())

	created, err := g.Touch(ctx, Actor{ID: 7, FullName: "Boss"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, g.IsAdmin(ctx, 7))

	g.SetAdmins([]int64{8})
	_, err = g.Touch(ctx, Actor{ID: 8})
	require.NoError(t, err)
	assert.True(t, g.IsAdmin(ctx, 8))

	_, err = g.Touch(ctx, Actor{ID: 7, FullName: "Boss"})
	require.NoError(t, err)
	assert.False(t, g.IsAdmin(ctx, 7))
}

func TestRemovedAdminLosesRoleWithoutTouch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storage.NewMemory()
	g := NewGate(st, []int64{10}, logx.Nop())

	_, err := g.Touch(ctx, Actor{ID: 10})
	require.NoError(t, err)
	require.NoError(t, g.RequireAdmin(ctx, 10))

	g.SetAdmins(nil)
	assert.ErrorIs(t, g.RequireAdmin(ctx, 10), domain.ErrAccessDenied)

	u, err := st.GetUser(ctx, 10)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin, "stored flag is stale until the next touch")
	assert.False(t, g.Holds(u))

	// re-adding restores the role from the stored flag
	g.SetAdmins([]int64{10})
	assert.NoError(t, g.RequireAdmin(ctx, 10))
}

func TestTouchUnblocks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storage.NewMemory()
	g := NewGate(st, nil, logx.Nop())

	_, err := g.Touch(ctx, Actor{ID: 3})
	require.NoError(t, err)
	require.NoError(t, st.SetUserBlocked(ctx, 3, true))

	_, err = g.Touch(ctx, Actor{ID: 3, Username: "newname"})
	require.NoError(t, err)
	u, err := st.GetUser(ctx, 3)
	require.NoError(t, err)
	assert.False(t, u.IsBlocked)
	assert.Equal(t, "newname", u.Username)
}

type failingUsers struct{ storage.Users }

func (failingUsers) GetUser(context.Context, int64) (domain.User, error) {
	return domain.User{}, errors.New("db down")
}

func TestLookupErrorDenies(t *testing.T) {
	t.Parallel()

	g := NewGate(failingUsers{}, []int64{1}, logx.Nop())
	assert.False(t, g.IsAdmin(context.Background(), 1))
	_, err := g.Classify(context.Background(), 1)
	assert.Error(t, err)
}
