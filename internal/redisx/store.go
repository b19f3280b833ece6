package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps session-scoped values in Redis. Every write refreshes the
// key's TTL, so abandoned sessions disappear on their own.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, fmt.Sprintf(KeySession, scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SessionStore) Set(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, fmt.Sprintf(KeySession, scope, key), value, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, scope string, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, fmt.Sprintf(KeySession, scope, k))
	}
	return s.rdb.Del(ctx, full...).Err()
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// TryLock implements storage.Locker with SET NX PX.
func (s *SessionStore) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := fmt.Sprintf(KeyLock, name)
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	released := false
	unlock := func() {
		if released {
			return
		}
		released = true
		// the request context may already be gone; release on a short detached one
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, s.rdb, []string{key}, token).Err()
	}
	return unlock, true, nil
}

// Counter tallies activity events, deduplicated by event id.
type Counter struct {
	rdb     *redis.Client
	service string
}

func NewCounter(rdb *redis.Client, service string) *Counter {
	return &Counter{rdb: rdb, service: service}
}

// FirstSeen records eventID and reports whether it had not been seen before.
func (c *Counter) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, c.service, eventID), "1", TTLDedup).Result()
}

func (c *Counter) Incr(ctx context.Context, eventType string) (int64, error) {
	return c.rdb.Incr(ctx, fmt.Sprintf(KeyActivityCount, eventType)).Result()
}
