// Package storage defines the key/value stores that hold visitor state:
// durable values (auth token, user snapshot) and ephemeral per-session caches.
package storage

import (
	"context"
	"time"
)

// KV is a string key/value store partitioned by scope (a visitor or session id).
// Writes replace whole values.
type KV interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Set(ctx context.Context, scope, key, value string) error
	Delete(ctx context.Context, scope string, keys ...string) error
}

// Locker hands out short-lived named locks. unlock is safe to call more than once.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Bucket is a KV bound to one scope.
type Bucket struct {
	kv    KV
	scope string
}

func NewBucket(kv KV, scope string) Bucket {
	return Bucket{kv: kv, scope: scope}
}

func (b Bucket) Scope() string { return b.scope }

func (b Bucket) Get(ctx context.Context, key string) (string, bool, error) {
	return b.kv.Get(ctx, b.scope, key)
}

func (b Bucket) Set(ctx context.Context, key, value string) error {
	return b.kv.Set(ctx, b.scope, key, value)
}

func (b Bucket) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.kv.Delete(ctx, b.scope, keys...)
}
