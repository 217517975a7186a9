package health

import (
	"context"

	"github.com/kailas-cloud/catalogqa/internal/cache"
)

// IndexSizer reports the number of indexed corpus vectors.
type IndexSizer interface {
	Size() int
}

// CorpusSizer reports the number of catalog passages.
type CorpusSizer interface {
	Len() int
}

// Pinger checks remote index availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CacheReporter exposes per-cache statistics.
type CacheReporter interface {
	CacheStatistics() []cache.Stats
}
