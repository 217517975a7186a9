package cache

import (
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/catalogqa/internal/domain/text"
)

type semanticEntry[V any] struct {
	key   string
	value V
}

// SemanticList is an append-only list of (key, value) pairs searched by lexical
// similarity. The oldest entry is dropped once capacity is exceeded.
type SemanticList[V any] struct {
	name string
	cap  int

	mu      sync.RWMutex
	entries []semanticEntry[V]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewSemanticList creates a list holding at most capacity pairs.
func NewSemanticList[V any](name string, capacity int) *SemanticList[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &SemanticList[V]{
		name:    name,
		cap:     capacity,
		entries: make([]semanticEntry[V], 0, capacity),
	}
}

// Find scans entries in insertion order and returns the first whose key equals
// key or whose text.Similarity to key is at least threshold. It is a first-match
// scan, not a best-match one.
func (l *SemanticList[V]) Find(key string, threshold float64) (V, string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.entries {
		if e.key == key || text.Similarity(e.key, key) >= threshold {
			l.hits.Add(1)
			return e.value, e.key, true
		}
	}
	l.misses.Add(1)
	var zero V
	return zero, "", false
}

// Append adds a pair at the tail, dropping from the head when over capacity.
func (l *SemanticList[V]) Append(key string, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, semanticEntry[V]{key: key, value: value})
	if over := len(l.entries) - l.cap; over > 0 {
		clear(l.entries[:over])
		l.entries = l.entries[over:]
	}
}

// Len returns the number of stored pairs.
func (l *SemanticList[V]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Keys returns stored keys in insertion order.
func (l *SemanticList[V]) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, len(l.entries))
	for i, e := range l.entries {
		keys[i] = e.key
	}
	return keys
}

// Clear drops every pair and resets the counters.
func (l *SemanticList[V]) Clear() {
	l.mu.Lock()
	l.entries = make([]semanticEntry[V], 0, l.cap)
	l.mu.Unlock()
	l.hits.Store(0)
	l.misses.Store(0)
}

// Stats returns a snapshot of the counters and size.
func (l *SemanticList[V]) Stats() Stats {
	return Stats{
		Name:     l.name,
		Hits:     l.hits.Load(),
		Misses:   l.misses.Load(),
		Size:     l.Len(),
		Capacity: l.cap,
	}
}
