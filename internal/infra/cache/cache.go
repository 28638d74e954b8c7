// Package cache provides the in-memory TTL store behind the categorization
// cache. In production, this could be backed by Redis.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Option configures an InMemory cache.
type Option func(*options)

type options struct {
	maxEntries int
	sweepEvery time.Duration
	now        func() time.Time
}

// WithMaxEntries bounds the cache. When full, expired entries are dropped
// first and then the entry closest to expiry. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithSweepInterval sets how often expired entries are purged. Defaults to the TTL.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepEvery = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	opts  options

	stopCh chan struct{}
	once   sync.Once
}

// New creates a cache whose entries live for ttl, and starts its sweeper.
// Close stops the sweeper.
func New[T any](ttl time.Duration, opts ...Option) *InMemory[T] {
	o := options{sweepEvery: ttl, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c := &InMemory[T]{
		items:  make(map[string]entry[T]),
		ttl:    ttl,
		opts:   o,
		stopCh: make(chan struct{}),
	}
	if o.sweepEvery > 0 {
		go c.sweep()
	}
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.opts.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the configured TTL, evicting when the cache is full.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	if _, exists := c.items[key]; !exists && c.opts.maxEntries > 0 && len(c.items) >= c.opts.maxEntries {
		c.purgeExpired(now)
		if len(c.items) >= c.opts.maxEntries {
			c.evictOldest()
		}
	}
	c.items[key] = entry[T]{value: value, expiresAt: now.Add(c.ttl)}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of stored entries, expired ones included until swept.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweeper. Safe to call more than once.
func (c *InMemory[T]) Close() {
	c.once.Do(func() { close(c.stopCh) })
}

func (c *InMemory[T]) sweep() {
	ticker := time.NewTicker(c.opts.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.purgeExpired(c.opts.now())
			c.mu.Unlock()
		}
	}
}

// purgeExpired must be called with mu held.
func (c *InMemory[T]) purgeExpired(now time.Time) {
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}

// evictOldest drops the entry closest to expiry. With a fixed TTL that is the
// least recently written one. Must be called with mu held.
func (c *InMemory[T]) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.items {
		if !found || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.items, oldestKey)
	}
}
