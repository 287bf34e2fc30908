// Package access decides whether an actor is an administrator.
package access

import (
	"context"
	"errors"
	"sync"

	"suggestbot/internal/domain"
	"suggestbot/internal/storage"
	logx "suggestbot/pkg/logx"
)

// Actor is the identity attached to an inbound update.
type Actor struct {
	ID       int64
	FullName string
	Username string
}

// Gate classifies actors from the persisted admin flag and the current
// allow-list. The flag is refreshed when an actor is touched; dropping an id
// from the allow-list revokes it at once.
type Gate struct {
	users storage.Users
	log   logx.Logger

	mu     sync.RWMutex
	admins map[int64]struct{}
}

func NewGate(users storage.Users, admins []int64, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	g := &Gate{users: users, log: log}
	g.SetAdmins(admins)
	return g
}

// SetAdmins replaces the allow-list. Safe during hot-reload.
func (g *Gate) SetAdmins(ids []int64) {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	g.mu.Lock()
	g.admins = m
	g.mu.Unlock()
}

func (g *Gate) IsAllowListed(id int64) bool {
	g.mu.RLock()
	_, ok := g.admins[id]
	g.mu.RUnlock()
	return ok
}

// Touch creates or refreshes the actor's record. The admin flag follows the
// allow-list and the blocked flag is cleared.
func (g *Gate) Touch(ctx context.Context, a Actor) (created bool, err error) {
	return g.users.UpsertUser(ctx, domain.User{
		ID:       a.ID,
		FullName: a.FullName,
		Username: a.Username,
		IsAdmin:  g.IsAllowListed(a.ID),
	})
}

// Classify returns the actor's role. An unknown actor is regular.
func (g *Gate) Classify(ctx context.Context, id int64) (domain.Role, error) {
	u, err := g.users.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.RoleRegular, nil
	}
	if err != nil {
		return domain.RoleRegular, err
	}
	if g.Holds(u) {
		return domain.RoleAdmin, nil
	}
	return domain.RoleRegular, nil
}

// Holds reports whether a stored user currently has the admin role.
func (g *Gate) Holds(u domain.User) bool {
	return u.IsAdmin && g.IsAllowListed(u.ID)
}

// IsAdmin is Classify reduced to a bool; lookup errors deny.
func (g *Gate) IsAdmin(ctx context.Context, id int64) bool {
	role, err := g.Classify(ctx, id)
	if err != nil {
		g.log.Warn("role lookup failed; treating as regular", logx.Int64("user_id", id), logx.Err(err))
		return false
	}
	return role == domain.RoleAdmin
}

// RequireAdmin returns domain.ErrAccessDenied unless id is an admin.
func (g *Gate) RequireAdmin(ctx context.Context, id int64) error {
	if !g.IsAdmin(ctx, id) {
		return domain.ErrAccessDenied
	}
	return nil
}
