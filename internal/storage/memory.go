package storage

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value   string
	expires time.Time // zero: never
}

// Memory is an in-process KV and Locker. A zero ttl keeps values forever.
type Memory struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	data  map[string]map[string]memEntry
	locks map[string]memLock
	seq   uint64
}

type memLock struct {
	token   uint64
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:   ttl,
		now:   time.Now,
		data:  map[string]map[string]memEntry{},
		locks: map[string]memLock{},
	}
}

func (m *Memory) Get(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[scope][key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.data[scope], key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[scope]
	if !ok {
		bucket = map[string]memEntry{}
		m.data[scope] = bucket
	}
	e := memEntry{value: value}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	bucket[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, scope string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.data[scope]
	for _, k := range keys {
		delete(bucket, k)
	}
	if len(bucket) == 0 {
		delete(m.data, scope)
	}
	return nil
}

func (m *Memory) TryLock(_ context.Context, name string, ttl time.Duration) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, held := m.locks[name]; held && now.Before(l.expires) {
		return func() {}, false, nil
	}
	m.seq++
	token := m.seq
	m.locks[name] = memLock{token: token, expires: now.Add(ttl)}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if l, held := m.locks[name]; held && l.token == token {
				delete(m.locks, name)
			}
		})
	}
	return unlock, true, nil
}
