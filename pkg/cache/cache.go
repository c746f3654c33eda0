// Package cache memoizes expensive results such as pipeline runs over an
// identical upload. Expiry is decided by a pluggable Policy.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Producer computes the value for a key on a miss.
type Producer[T any] func(ctx context.Context) (T, error)

// Cache returns the cached value for key or produces and stores it.
type Cache[T any] interface {
	Get(ctx context.Context, key string, produce Producer[T]) (T, error)
}

// Policy decides when an entry stored at now expires. A zero time means never.
type Policy interface {
	Expiry(now time.Time) time.Time
}

// TTL expires entries a fixed duration after they are stored.
// A non-positive TTL never expires.
type TTL time.Duration

func (t TTL) Expiry(now time.Time) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(t))
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e entry[T]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Option configures a Memory cache.
type Option func(*options)

type options struct {
	now   func() time.Time
	onHit func(key string)
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithHitHook is called on every cache hit.
func WithHitHook(fn func(key string)) Option {
	return func(o *options) { o.onHit = fn }
}

// Memory is an in-process Cache. Concurrent misses on the same key share a
// single producer call. Errors are never cached.
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	policy  Policy
	group   singleflight.Group
	opts    options
}

var _ Cache[int] = (*Memory[int])(nil)

// NewMemory creates an empty cache. A nil policy never expires entries.
func NewMemory[T any](policy Policy, opts ...Option) *Memory[T] {
	if policy == nil {
		policy = TTL(0)
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory[T]{
		entries: make(map[string]entry[T]),
		policy:  policy,
		opts:    o,
	}
}

func (m *Memory[T]) Get(ctx context.Context, key string, produce Producer[T]) (T, error) {
	if v, ok := m.lookup(key); ok {
		if m.opts.onHit != nil {
			m.opts.onHit(key)
		}
		return v, nil
	}

	res, err, _ := m.group.Do(key, func() (any, error) {
		// Another caller may have stored it while we waited for the group.
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		v, err := produce(ctx)
		if err != nil {
			return v, err
		}
		m.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Set stores v under key using the cache policy.
func (m *Memory[T]) Set(key string, v T) {
	m.mu.Lock()
	m.entries[key] = entry[T]{value: v, expiresAt: m.policy.Expiry(m.opts.now())}
	m.mu.Unlock()
}

func (m *Memory[T]) lookup(key string) (T, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || e.expired(m.opts.now()) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete removes key.
func (m *Memory[T]) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet cleaned.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// CleanExpired drops expired entries and returns how many were removed.
func (m *Memory[T]) CleanExpired() int {
	now := m.opts.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}
