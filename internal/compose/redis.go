package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "suggestbot:draft:"

// RedisStore keeps drafts in Redis so they survive a restart. Each draft is a
// JSON value whose TTL is refreshed on every Put.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *goredis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// OpenRedis dials the server behind a redis:// URL and pings it.
func OpenRedis(ctx context.Context, rawURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

var _ Store = (*RedisStore)(nil)

func redisKey(k Key) string {
	return fmt.Sprintf("%s%d:%d", redisKeyPrefix, k.ChatID, k.UserID)
}

func (s *RedisStore) Get(ctx context.Context, k Key) (Draft, bool, error) {
	b, err := s.rdb.Get(ctx, redisKey(k)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Draft{}, false, nil
	}
	if err != nil {
		return Draft{}, false, err
	}
	var d Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return Draft{}, false, fmt.Errorf("decode draft: %w", err)
	}
	return d, true, nil
}

func (s *RedisStore) Put(ctx context.Context, k Key, d Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKey(k), b, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, k Key) (bool, error) {
	n, err := s.rdb.Del(ctx, redisKey(k)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
