package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps the anti-CSRF state values of pending consent flows in
// Redis.  Each value can be consumed once.
type StateStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewStateStore(rdb *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{rdb: rdb, ttl: ttl, prefix: "oauth:state:"}
}

// Put records state.
func (s *StateStore) Put(ctx context.Context, state string) error {
	return s.rdb.Set(ctx, s.prefix+state, 1, s.ttl).Err()
}

// Consume deletes state and reports whether it was pending.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	n, err := s.rdb.Del(ctx, s.prefix+state).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n == 1, nil
}
