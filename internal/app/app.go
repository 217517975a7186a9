// Package app is the composition root shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/config"
	"github.com/kailas-cloud/catalogqa/internal/db"
	dbRedis "github.com/kailas-cloud/catalogqa/internal/db/redis"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/index/memory"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
	"github.com/kailas-cloud/catalogqa/internal/repository/catalog"
	"github.com/kailas-cloud/catalogqa/internal/repository/embcache"
	"github.com/kailas-cloud/catalogqa/internal/repository/vectorindex"
	openaiTransport "github.com/kailas-cloud/catalogqa/internal/transport/openai"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	"github.com/kailas-cloud/catalogqa/internal/usecase/filtersynth"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
	"github.com/kailas-cloud/catalogqa/internal/usecase/retrieval"
)

// App holds the wired query pipeline.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Catalog    *catalog.Catalog
	Index      domain.VectorIndex
	Classifier *classify.Classifier
	Synth      *filtersynth.Synthesizer
	Retrieval  *retrieval.Service
	Resolver   *resolve.Service
	Health     *healthuc.Service

	store db.Store
}

// NewClassifier builds the classifier from built-in and configured routes.
func NewClassifier(cfg config.Config, logger *zap.Logger) (*classify.Classifier, error) {
	extra, err := cfg.Classifier.RouteDefs()
	if err != nil {
		return nil, fmt.Errorf("classifier routes: %w", err)
	}
	c, err := cache.New[string, classify.Classification]("classification", cfg.Cache.ClassificationSize,
		cache.WithMetrics(metrics.CacheRequestsTotal))
	if err != nil {
		return nil, fmt.Errorf("classification cache: %w", err)
	}
	classifier, err := classify.New(classify.MergeRoutes(classify.DefaultRoutes(), extra), c, logger)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}
	return classifier, nil
}

// NewSynthesizer builds the filter synthesizer with its configured cache.
func NewSynthesizer(cfg config.Config, logger *zap.Logger) (*filtersynth.Synthesizer, error) {
	c, err := cache.New[string, filter.Filter]("filter", cfg.Cache.FilterSize,
		cache.WithMetrics(metrics.CacheRequestsTotal))
	if err != nil {
		return nil, fmt.Errorf("filter cache: %w", err)
	}
	s, err := filtersynth.New(c, logger)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}
	return s, nil
}

// Deps overrides collaborators New would otherwise build from the config.
// Nil fields fall back to the configured catalog file and OpenAI providers.
type Deps struct {
	Catalog   *catalog.Catalog
	Embedder  domain.Embedder
	Completer domain.Completer
}

// New loads the catalog, opens the configured index and wires every service.
// The index and the catalog must agree on corpus size.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	return NewWithDeps(ctx, cfg, logger, Deps{})
}

// NewWithDeps is New with injected collaborators.
func NewWithDeps(ctx context.Context, cfg config.Config, logger *zap.Logger, deps Deps) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	cat := deps.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
			return nil, err
		}
	}
	a.Catalog = cat
	logger.Info("Catalog loaded", zap.String("path", cfg.Catalog.Path), zap.Int("documents", cat.Len()))

	if err := a.openIndex(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if a.Index.Size() != cat.Len() {
		a.Close()
		return nil, fmt.Errorf("%w: index has %d vectors, catalog has %d documents",
			domain.ErrCorpusMismatch, a.Index.Size(), cat.Len())
	}

	embedder := a.buildEmbedder(deps.Embedder)
	completer := deps.Completer
	if completer == nil {
		completer = openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
			Config: openaiTransport.Config{
				APIKey:   cfg.Completion.APIKey,
				BaseURL:  cfg.Completion.BaseURL,
				Model:    cfg.Completion.Model,
				Provider: cfg.Completion.Provider,
				Logger:   logger,
			},
			MaxTokens:   cfg.Completion.MaxTokens,
			Temperature: cfg.Completion.Temperature,
		})
	}

	var err error
	if a.Classifier, err = NewClassifier(cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	if a.Synth, err = NewSynthesizer(cfg, logger); err != nil {
		a.Close()
		return nil, err
	}

	a.Retrieval, err = retrieval.New(embedder, a.Index, cat, retrieval.Config{
		SemanticThreshold:  cfg.Retrieval.SemanticThreshold,
		EmbeddingCacheSize: cfg.Cache.EmbeddingSize,
		SemanticListSize:   cfg.Cache.SemanticSize,
		RetrievalCacheSize: cfg.Cache.RetrievalSize,
		RetrievalTTL:       cfg.Cache.RetrievalTTL(),
	}, logger.Named("retrieval"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create retrieval: %w", err)
	}

	a.Resolver, err = resolve.New(a.Classifier, a.Synth, a.Retrieval, completer, resolve.Config{
		PassageBudget:      cfg.Retrieval.PassageBudget,
		SystemPrompt:       cfg.Completion.SystemPrompt,
		ConversationPrompt: cfg.Completion.ConversationPrompt,
		NoResultsMessage:   cfg.Retrieval.NoResultsMessage,
		ResponseTTL:        cfg.Cache.ResponseTTL(),
		ResponseCacheSize:  cfg.Cache.ResponseSize,
	}, logger.Named("resolve"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	// Pass a nil interface, not a typed nil pointer, when there is no remote index.
	var pinger healthuc.Pinger
	if a.store != nil {
		pinger = a.store
	}
	a.Health = healthuc.New(a.Index, cat, pinger, embedder, a.Resolver)

	return a, nil
}

// Defaults returns the per-query options configured for callers that omit them.
func (a *App) Defaults() resolve.Options {
	minScore := a.Config.Retrieval.MinScore
	return resolve.Options{TopK: a.Config.Retrieval.TopK, MinScore: &minScore}
}

// Close releases the remote index connection, if any.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}

func (a *App) openIndex(ctx context.Context) error {
	switch a.Config.Index.Backend {
	case config.BackendRedis:
		repo, err := a.openRedisIndex(ctx)
		if err != nil {
			return err
		}
		if err := repo.Refresh(ctx); err != nil {
			return fmt.Errorf("load redis index: %w", err)
		}
		a.Index = repo
	default:
		vectors := a.Catalog.Vectors()
		if vectors == nil {
			return fmt.Errorf("%w: catalog %s carries no vectors for the memory index",
				domain.ErrCorpusMismatch, a.Config.Catalog.Path)
		}
		idx, err := memory.New(a.Catalog.Dimensions(), vectors)
		if err != nil {
			return fmt.Errorf("build memory index: %w", err)
		}
		a.Index = idx
	}
	a.Logger.Info("Vector index ready",
		zap.String("backend", a.Config.Index.Backend),
		zap.Int("size", a.Index.Size()),
	)
	return nil
}

// OpenRedisIndex connects to Redis and returns the index repository without
// loading its size. Used by the seed command before the index exists.
func (a *App) OpenRedisIndex(ctx context.Context) (*vectorindex.Repo, error) {
	return a.openRedisIndex(ctx)
}

func (a *App) openRedisIndex(ctx context.Context) (*vectorindex.Repo, error) {
	if a.store == nil {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    a.Config.Index.Addrs,
			Password: a.Config.Index.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		timeout := time.Duration(a.Config.Index.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		a.store = store
		a.Logger.Info("Connected to redis", zap.Strings("addrs", a.Config.Index.Addrs))
	}
	return vectorindex.New(a.store, vectorindex.Config{
		IndexName: a.Config.Index.Name,
		Prefix:    a.Config.Index.KeyPrefix,
		Dim:       a.Config.Embedding.Dimensions,
	}), nil
}

// queryEmbedder is the embedder handed to retrieval and the health check.
type queryEmbedder interface {
	domain.Embedder
	domain.HealthChecker
}

// buildEmbedder assembles the decorator chain:
// provider -> persistent cache (redis only) -> dimension check -> instruction.
// base defaults to the configured OpenAI-compatible embedder.
func (a *App) buildEmbedder(base domain.Embedder) queryEmbedder {
	cfg := a.Config.Embedding
	if base == nil {
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     a.Logger,
		})
	}
	if a.store != nil && a.Config.Cache.PersistEmbeddings {
		base = embcache.New(base, a.store, embcache.Config{
			KeyPrefix: a.Config.Index.KeyPrefix + "emb:",
			Model:     cfg.Model,
			TTL:       a.Config.Cache.EmbeddingStoreTTL(),
		}, a.Logger.Named("embcache"))
	}

	var embedder queryEmbedder = domain.NewDimensionCheckedEmbedder(base, a.indexDim())
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return embedder
}

// indexDim is the dimension query vectors must have to be comparable with the corpus.
func (a *App) indexDim() int {
	if a.Config.Index.Backend == config.BackendMemory && a.Catalog.Dimensions() > 0 {
		return a.Catalog.Dimensions()
	}
	return a.Config.Embedding.Dimensions
}
