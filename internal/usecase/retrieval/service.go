package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/request"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/result"
	"github.com/kailas-cloud/catalogqa/internal/domain/text"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
)

// Defaults for the embedding and retrieval caches.
const (
	DefaultSemanticThreshold  = 0.82
	DefaultEmbeddingCacheSize = 256
	DefaultSemanticListSize   = 256
	DefaultRetrievalCacheSize = 1000
	DefaultRetrievalTTL       = 5 * time.Minute
)

// Config tunes the orchestrator caches. Zero values mean "use default".
type Config struct {
	SemanticThreshold  float64
	EmbeddingCacheSize int
	SemanticListSize   int
	RetrievalCacheSize int
	RetrievalTTL       time.Duration
	// Clock overrides time.Now for the retrieval cache (tests).
	Clock func() time.Time
}

func (c *Config) applyDefaults() {
	if c.SemanticThreshold <= 0 {
		c.SemanticThreshold = DefaultSemanticThreshold
	}
	if c.EmbeddingCacheSize <= 0 {
		c.EmbeddingCacheSize = DefaultEmbeddingCacheSize
	}
	if c.SemanticListSize <= 0 {
		c.SemanticListSize = DefaultSemanticListSize
	}
	if c.RetrievalCacheSize <= 0 {
		c.RetrievalCacheSize = DefaultRetrievalCacheSize
	}
	if c.RetrievalTTL <= 0 {
		c.RetrievalTTL = DefaultRetrievalTTL
	}
}

// Outcome is the result of a search with fallback.
type Outcome struct {
	Results      []result.Result
	FallbackUsed bool
}

// Service resolves query embeddings through the exact and semantic caches, runs
// nearest-neighbour search and applies score and metadata filters.
type Service struct {
	embed   Embedder
	index   VectorIndex
	catalog Catalog
	logger  *zap.Logger

	threshold  float64
	embeddings *cache.Cache[string, []float32]
	semantic   *cache.SemanticList[[]float32]
	results    *cache.Cache[string, []result.Result]
}

// New creates a retrieval orchestrator.
func New(embed Embedder, index VectorIndex, catalog Catalog, cfg Config, logger *zap.Logger) (*Service, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	embeddings, err := cache.New[string, []float32]("embedding", cfg.EmbeddingCacheSize,
		cache.WithMetrics(metrics.CacheRequestsTotal))
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}

	resultOpts := []cache.Option{cache.WithTTL(cfg.RetrievalTTL), cache.WithMetrics(metrics.CacheRequestsTotal)}
	if cfg.Clock != nil {
		resultOpts = append(resultOpts, cache.WithClock(cfg.Clock))
	}
	results, err := cache.New[string, []result.Result]("retrieval", cfg.RetrievalCacheSize, resultOpts...)
	if err != nil {
		return nil, fmt.Errorf("retrieval cache: %w", err)
	}

	return &Service{
		embed:      embed,
		index:      index,
		catalog:    catalog,
		logger:     logger,
		threshold:  cfg.SemanticThreshold,
		embeddings: embeddings,
		semantic:   cache.NewSemanticList[[]float32]("embedding_semantic", cfg.SemanticListSize),
		results:    results,
	}, nil
}

// QueryEmbedding resolves the vector for query: exact cache, then the semantic
// list (first entry at or above the similarity threshold), then the provider.
func (s *Service) QueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := text.Normalize(query)

	if vec, ok := s.embeddings.Get(key); ok {
		return vec, nil
	}

	if vec, matched, ok := s.semantic.Find(key, s.threshold); ok {
		s.logger.Debug("Semantic embedding cache hit",
			zap.String("query", key), zap.String("matched", matched))
		s.embeddings.Set(key, vec)
		return vec, nil
	}

	res, err := s.embed.Embed(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(res.TotalTokens)

	s.embeddings.Set(key, res.Embedding)
	s.semantic.Append(key, res.Embedding)
	return res.Embedding, nil
}

// Search runs a single retrieval attempt. Accepted lists, including empty ones,
// are cached under the request's composite key until the TTL expires.
func (s *Service) Search(ctx context.Context, req request.Request) ([]result.Result, error) {
	key := req.CacheKey()
	if cached, ok := s.results.Get(key); ok {
		return cached, nil
	}

	vec, err := s.QueryEmbedding(ctx, req.Query())
	if err != nil {
		return nil, err
	}

	corpusSize := s.catalog.Len()
	k := min(req.SearchK(), corpusSize)

	var neighbors []domain.Neighbor
	if k > 0 {
		neighbors, err = s.index.Search(ctx, vec, k)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
	}

	accepted := s.accept(neighbors, req)
	s.results.Set(key, accepted)
	return accepted, nil
}

func (s *Service) accept(neighbors []domain.Neighbor, req request.Request) []result.Result {
	accepted := make([]result.Result, 0, req.TopK())
	for _, n := range neighbors {
		if len(accepted) >= req.TopK() {
			break
		}
		doc, ok := s.catalog.Document(n.ID)
		if !ok {
			continue
		}
		if n.Score < req.MinScore() {
			continue
		}
		if !filter.Match(req.Filter(), doc.Metadata) {
			continue
		}
		accepted = append(accepted, result.New(n.ID, n.Score, doc))
	}
	return accepted
}

// SearchWithFallback runs a filtered attempt and, when it yields nothing and a
// filter was supplied, one unfiltered retry. Collaborator failures are logged
// and count as an empty attempt; they are never returned to the caller.
func (s *Service) SearchWithFallback(ctx context.Context, req request.Request) Outcome {
	results := s.attempt(ctx, req)
	if len(results) > 0 || req.Filter() == nil {
		return Outcome{Results: results}
	}

	metrics.RetrievalFallbacksTotal.Inc()
	s.logger.Info("Filtered search empty, retrying without filter",
		zap.String("filter", filter.Key(req.Filter())))

	return Outcome{Results: s.attempt(ctx, req.WithoutFilter()), FallbackUsed: true}
}

func (s *Service) attempt(ctx context.Context, req request.Request) []result.Result {
	results, err := s.Search(ctx, req)
	if err != nil {
		metrics.RetrievalErrorsTotal.WithLabelValues(errorStage(err)).Inc()
		s.logger.Warn("Retrieval attempt failed",
			zap.Bool("filtered", req.Filter() != nil),
			zap.Error(err),
		)
		return nil
	}
	return results
}

func errorStage(err error) string {
	if errors.Is(err, domain.ErrEmbeddingProviderError) || errors.Is(err, domain.ErrVectorDimMismatch) {
		return "embedding"
	}
	return "index"
}

// ClearCaches empties the embedding and retrieval caches.
func (s *Service) ClearCaches() {
	s.embeddings.Clear()
	s.semantic.Clear()
	s.results.Clear()
}

// CacheStats returns snapshots of the embedding, semantic and retrieval caches.
func (s *Service) CacheStats() []cache.Stats {
	return []cache.Stats{s.embeddings.Stats(), s.semantic.Stats(), s.results.Stats()}
}
