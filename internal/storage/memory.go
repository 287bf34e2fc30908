package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"suggestbot/internal/domain"
)

// Memory is a mutex-guarded in-process Store.
type Memory struct {
	mu        sync.RWMutex
	users     map[int64]domain.User
	questions map[int64]domain.Question
	nextID    int64
}

func NewMemory() *Memory {
	return &Memory{
		users:     map[int64]domain.User{},
		questions: map[int64]domain.Question{},
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

func (m *Memory) UpsertUser(_ context.Context, u domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		if u.FirstStart.IsZero() {
			u.FirstStart = time.Now()
		}
		u.IsBlocked = false
		m.users[u.ID] = u
		return true, nil
	}
	cur.FullName = u.FullName
	cur.Username = u.Username
	cur.IsAdmin = u.IsAdmin
	cur.IsBlocked = false
	m.users[u.ID] = cur
	return false, nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context, f UserFilter) ([]domain.User, error) {
	m.mu.RLock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		if !f.IncludeAdmins && u.IsAdmin {
			continue
		}
		if f.Blocked != nil && u.IsBlocked != *f.Blocked {
			continue
		}
		out = append(out, u)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SetUserBlocked(_ context.Context, id int64, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsBlocked = blocked
	m.users[id] = u
	return nil
}

func (m *Memory) CountUsers(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *Memory) CountBlockedUsers(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, u := range m.users {
		if u.IsBlocked {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateQuestion(_ context.Context, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[q.OwnerID]; !ok {
		return ErrNotFound
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	m.nextID++
	q.ID = m.nextID
	m.questions[q.ID] = *q
	return nil
}

func (m *Memory) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return domain.Question{}, ErrNotFound
	}
	return q, nil
}

func (m *Memory) DeleteQuestion(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return false, nil
	}
	delete(m.questions, id)
	return true, nil
}

func (m *Memory) SetModerationMessage(_ context.Context, id, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return ErrNotFound
	}
	q.ModerationChatID = chatID
	q.ModerationMessageID = messageID
	m.questions[id] = q
	return nil
}

func (m *Memory) CountQuestions(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.questions), nil
}

func (m *Memory) ListUnforwarded(_ context.Context, olderThan time.Time) ([]domain.Question, error) {
	m.mu.RLock()
	var out []domain.Question
	for _, q := range m.questions {
		if !q.Forwarded() && q.CreatedAt.Before(olderThan) {
			out = append(out, q)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
