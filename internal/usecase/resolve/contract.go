package resolve

import (
	"context"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/request"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	"github.com/kailas-cloud/catalogqa/internal/usecase/retrieval"
)

// Classifier decides how a query is handled.
type Classifier interface {
	Classify(query string) classify.Classification
	CacheStats() cache.Stats
	ClearCache()
}

// FilterSynthesizer derives a metadata filter from query text.
type FilterSynthesizer interface {
	Synthesize(query string) filter.Filter
	CacheStats() cache.Stats
	ClearCache()
}

// Retriever runs filtered search with the unfiltered retry.
type Retriever interface {
	SearchWithFallback(ctx context.Context, req request.Request) retrieval.Outcome
	CacheStats() []cache.Stats
	ClearCaches()
}

// Completer generates answer text, batch or streamed.
type Completer interface {
	Complete(ctx context.Context, prompt domain.Prompt) (string, error)
	Stream(ctx context.Context, prompt domain.Prompt, onToken domain.TokenFunc) (string, error)
}
