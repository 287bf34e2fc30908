package compose

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Key identifies one admin conversation.
type Key struct {
	ChatID int64
	UserID int64
}

// Store keeps open drafts between messages. Get reports ok=false for a
// missing or expired draft.
type Store interface {
	Get(ctx context.Context, k Key) (d Draft, ok bool, err error)
	Put(ctx context.Context, k Key, d Draft) error
	Delete(ctx context.Context, k Key) (existed bool, err error)
}

const (
	DefaultTTL = 30 * time.Minute
	defaultMax = 1000
)

// MemoryStore is an in-process TTL map. Drafts are stored as JSON so a value
// read back never aliases one still held by a caller.
type MemoryStore struct {
	mu sync.Mutex

	ttl time.Duration
	max int

	// expired entries are swept at most once per cleanupInterval
	cleanupInterval time.Duration
	nextCleanup     time.Time

	now func() time.Time
	m   map[Key]memEntry
}

type memEntry struct {
	b   []byte
	exp time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:             ttl,
		max:             defaultMax,
		cleanupInterval: time.Minute,
		now:             time.Now,
		m:               map[Key]memEntry{},
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, k Key) (Draft, bool, error) {
	s.mu.Lock()
	now := s.now()
	s.maybeCleanupLocked(now)
	e, ok := s.m[k]
	if ok && now.After(e.exp) {
		delete(s.m, k)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return Draft{}, false, nil
	}
	var d Draft
	if err := json.Unmarshal(e.b, &d); err != nil {
		return Draft{}, false, err
	}
	return d, true, nil
}

func (s *MemoryStore) Put(_ context.Context, k Key, d Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.maybeCleanupLocked(now)
	s.m[k] = memEntry{b: b, exp: now.Add(s.ttl)}
	s.enforceMaxLocked(k)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, k Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[k]
	delete(s.m, k)
	return ok && !s.now().After(e.exp), nil
}

// Len returns the number of stored drafts, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *MemoryStore) maybeCleanupLocked(now time.Time) {
	if s.nextCleanup.IsZero() {
		s.nextCleanup = now.Add(s.cleanupInterval)
		return
	}
	if now.Before(s.nextCleanup) {
		return
	}
	for k, e := range s.m {
		if now.After(e.exp) {
			delete(s.m, k)
		}
	}
	s.nextCleanup = now.Add(s.cleanupInterval)
}

// enforceMaxLocked evicts the entries closest to expiry, never keep.
func (s *MemoryStore) enforceMaxLocked(keep Key) {
	for len(s.m) > s.max {
		var (
			victim Key
			oldest time.Time
			found  bool
		)
		for k, e := range s.m {
			if k == keep {
				continue
			}
			if !found || e.exp.Before(oldest) {
				victim, oldest, found = k, e.exp, true
			}
		}
		if !found {
			return
		}
		delete(s.m, victim)
	}
}
