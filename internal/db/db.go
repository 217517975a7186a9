package db

import (
	"context"
	"time"
)

// Store is the vector index backend facade combining all sub-interfaces.
type Store interface {
	Pinger
	HashWriter
	IndexManager
	Searcher
	KeyValue
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashWriter stores corpus entries as hashes.
type HashWriter interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
}

// KeyValue stores opaque blobs with an optional expiry.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexSize(ctx context.Context, name string) (int, error)
}

// Searcher provides nearest-neighbour search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
