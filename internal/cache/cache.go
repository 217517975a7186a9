// Package cache provides the bounded, lazily-expiring key/value store shared by
// the classification, filter, embedding, retrieval and response caches.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
)

// Stats is a point-in-time snapshot of a cache instance.
type Stats struct {
	Name     string        `json:"name"`
	Hits     int64         `json:"hits"`
	Misses   int64         `json:"misses"`
	Size     int           `json:"size"`
	Capacity int           `json:"capacity"`
	TTL      time.Duration `json:"ttl"`
}

type settings struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
	counter  *prometheus.CounterVec
}

// Option configures a cache instance.
type Option func(*settings)

// WithTTL makes entries older than ttl invisible; they are pruned lazily on access.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) { s.ttl = ttl }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithMetrics records hits and misses on a counter vec with labels ("cache", "result").
func WithMetrics(counter *prometheus.CounterVec) Option {
	return func(s *settings) { s.counter = counter }
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache maps keys to timestamped values. Capacity is always enforced by evicting
// the oldest inserted entry; TTL is optional. Reads never refresh insertion order.
type Cache[K comparable, V any] struct {
	name    string
	store   *lru.Cache
	cap     int
	ttl     time.Duration
	now     func() time.Time
	counter *prometheus.CounterVec

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache holding at most capacity entries.
func New[K comparable, V any](name string, capacity int, opts ...Option) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache %q: capacity must be positive, got %d", name, capacity)
	}
	s := settings{capacity: capacity, now: time.Now}
	for _, o := range opts {
		o(&s)
	}
	if s.ttl < 0 {
		return nil, fmt.Errorf("cache %q: negative ttl %s", name, s.ttl)
	}

	store, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("cache %q: %w", name, err)
	}
	return &Cache[K, V]{
		name:    name,
		store:   store,
		cap:     capacity,
		ttl:     s.ttl,
		now:     s.now,
		counter: s.counter,
	}, nil
}

// MustNew is New that panics on invalid arguments.
func MustNew[K comparable, V any](name string, capacity int, opts ...Option) *Cache[K, V] {
	c, err := New[K, V](name, capacity, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the instance name used in metrics and statistics.
func (c *Cache[K, V]) Name() string { return c.name }

// Get returns the value stored under key. TTL caches prune expired entries first.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	if c.ttl > 0 {
		c.PruneExpired(c.ttl)
	}

	raw, ok := c.store.Peek(key)
	if !ok {
		c.record(false)
		var zero V
		return zero, false
	}
	c.record(true)
	return raw.(entry[V]).value, true
}

// Set stores value under key with the current timestamp, evicting the oldest entry at capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	if c.ttl > 0 {
		c.PruneExpired(c.ttl)
	}
	c.store.Add(key, entry[V]{value: value, storedAt: c.now()})
}

// PruneExpired removes every entry older than ttl and reports how many were dropped.
func (c *Cache[K, V]) PruneExpired(ttl time.Duration) int {
	cutoff := c.now().Add(-ttl)
	removed := 0
	for _, k := range c.store.Keys() {
		raw, ok := c.store.Peek(k)
		if !ok {
			continue
		}
		if raw.(entry[V]).storedAt.Before(cutoff) {
			c.store.Remove(k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet pruned.
func (c *Cache[K, V]) Len() int { return c.store.Len() }

// Keys returns the stored keys, oldest first.
func (c *Cache[K, V]) Keys() []K {
	raw := c.store.Keys()
	keys := make([]K, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, k.(K))
	}
	return keys
}

// Clear drops every entry and resets the counters.
func (c *Cache[K, V]) Clear() {
	c.store.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns a snapshot of the counters and size.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Name:     c.name,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Size:     c.store.Len(),
		Capacity: c.cap,
		TTL:      c.ttl,
	}
}

func (c *Cache[K, V]) record(hit bool) {
	result := "miss"
	if hit {
		c.hits.Add(1)
		result = "hit"
	} else {
		c.misses.Add(1)
	}
	if c.counter != nil {
		c.counter.WithLabelValues(c.name, result).Inc()
	}
}
