package chi

import (
	"context"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

// Resolver answers catalog questions and manages the pipeline caches.
type Resolver interface {
	ResolveQuery(ctx context.Context, query string, opts resolve.Options) (resolve.Result, error)
	CacheStatistics() []cache.Stats
	ClearCaches()
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
