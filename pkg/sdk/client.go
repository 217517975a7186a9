package catalogqa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/app"
	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/config"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/repository/catalog"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

// Internal interfaces so tests can substitute the pipeline.
type resolverUseCase interface {
	ResolveQuery(ctx context.Context, query string, opts resolve.Options) (resolve.Result, error)
	CacheStatistics() []cache.Stats
	ClearCaches()
}

type classifierUseCase interface {
	Classify(query string) classify.Classification
}

type synthesizerUseCase interface {
	Synthesize(query string) filter.Filter
}

// Client is the catalogqa SDK entry point. It is safe for concurrent use.
type Client struct {
	resolver   resolverUseCase
	classifier classifierUseCase
	synth      synthesizerUseCase
	healthSvc  healthUseCase
	defaults   resolve.Options
	closeFn    func()
	obs        *observer
}

// New builds the pipeline. With WithRedis the provided context bounds the
// readiness check and the index size lookup.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	deps, err := buildDeps(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Catalog == nil && cfg.catalogPath == "" {
		return nil, errors.New("catalogqa: corpus required (use WithDocuments or WithCatalogFile)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	a, err := app.NewWithDeps(ctx, buildConfig(cfg), zap.NewNop(), deps)
	if err != nil {
		return nil, fmt.Errorf("catalogqa: %w", err)
	}
	return wireClient(a, obs), nil
}

func buildDeps(cfg *clientConfig) (app.Deps, error) {
	var deps app.Deps

	switch {
	case cfg.embedder != nil:
		deps.Embedder = &embedderAdapter{inner: cfg.embedder}
	case cfg.openAI == nil || cfg.openAI.embeddingModel == "":
		return deps, errors.New("catalogqa: embedder required (use WithEmbedder or WithOpenAI)")
	}
	switch {
	case cfg.completer != nil:
		deps.Completer = &completerAdapter{inner: cfg.completer}
	case cfg.openAI == nil || cfg.openAI.completionModel == "":
		return deps, errors.New("catalogqa: completer required (use WithCompleter or WithOpenAI)")
	}

	if cfg.documents != nil {
		docs, vectors := toDomainDocuments(cfg.documents)
		cat, err := catalog.New(docs, vectors)
		if err != nil {
			return deps, fmt.Errorf("catalogqa: documents: %w", err)
		}
		deps.Catalog = cat
	}
	return deps, nil
}

func buildConfig(cfg *clientConfig) config.Config {
	var c config.Config
	c.Catalog.Path = cfg.catalogPath

	if cfg.openAI != nil {
		c.Embedding.APIKey = cfg.openAI.apiKey
		c.Embedding.BaseURL = cfg.openAI.baseURL
		c.Embedding.Model = cfg.openAI.embeddingModel
		c.Completion.Model = cfg.openAI.completionModel
	}
	c.Embedding.Dimensions = cfg.vectorDimensions
	c.Embedding.QueryInstruction = cfg.queryInstruction

	if len(cfg.redisAddrs) > 0 {
		c.Index.Backend = config.BackendRedis
		c.Index.Addrs = cfg.redisAddrs
		c.Index.Password = cfg.redisPassword
	}

	c.Retrieval.TopK = cfg.topK
	c.Retrieval.MinScore = cfg.minScore
	c.Retrieval.SemanticThreshold = cfg.semanticThreshold
	for _, r := range cfg.routes {
		c.Classifier.Routes = append(c.Classifier.Routes, config.RouteConfig{
			Name: r.name, Keywords: r.keywords, Filter: r.filter,
		})
	}

	c.ApplyDefaults()
	return c
}

func wireClient(a *app.App, obs *observer) *Client {
	return &Client{
		resolver:   a.Resolver,
		classifier: a.Classifier,
		synth:      a.Synth,
		healthSvc:  a.Health,
		defaults:   a.Defaults(),
		closeFn:    a.Close,
		obs:        obs,
	}
}

// Ask answers question from the catalog. Provider failures do not surface as
// errors: they yield an extractive or no-results Answer. Errors report invalid
// input (ErrEmptyQuery, ErrInvalidRequest, ErrInvalidFilter).
func (c *Client) Ask(ctx context.Context, question string, opts ...AskOption) (Answer, error) {
	return c.ask(ctx, "ask", question, nil, opts)
}

// AskStream is Ask with incremental delivery: onToken receives answer text as
// it is generated. Cached answers arrive as a single token.
func (c *Client) AskStream(
	ctx context.Context, question string, onToken func(token string), opts ...AskOption,
) (Answer, error) {
	if onToken == nil {
		return Answer{}, fmt.Errorf("%w: onToken is required", ErrInvalidRequest)
	}
	return c.ask(ctx, "ask_stream", question, onToken, opts)
}

func (c *Client) ask(
	ctx context.Context, op, question string, onToken func(string), opts []AskOption,
) (ans Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observeAnswer(op, start, ans, err) }()

	ro, err := c.resolveOptions(opts)
	if err != nil {
		return Answer{}, err
	}
	if onToken != nil {
		ro.OnToken = onToken
	}

	res, err := c.resolver.ResolveQuery(ctx, question, ro)
	if err != nil {
		return Answer{}, fmt.Errorf("catalogqa: %w", err)
	}
	return answerFromDomain(res), nil
}

func (c *Client) resolveOptions(opts []AskOption) (resolve.Options, error) {
	var ac askConfig
	for _, o := range opts {
		o(&ac)
	}

	ro := c.defaults
	if ac.topK != 0 {
		ro.TopK = ac.topK
	}
	if ac.minScore != nil {
		ro.MinScore = ac.minScore
	}
	if ac.filter != nil {
		f, err := decodeFilter(ac.filter)
		if err != nil {
			return resolve.Options{}, fmt.Errorf("catalogqa: %w", err)
		}
		ro.Filter = f
	}
	return ro, nil
}

// decodeFilter accepts Go values as well as JSON text; Go values go through
// JSON so typed slices and maps take the same path as HTTP input.
func decodeFilter(v any) (filter.Filter, error) {
	var data []byte
	switch t := v.(type) {
	case json.RawMessage:
		data = t
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
	}
	return filter.Decode(data) //nolint:wrapcheck // already wraps ErrInvalidFilter
}

// Classify reports how question would be handled, without retrieval or generation.
func (c *Client) Classify(question string) Classification {
	start := time.Now()
	cl := classificationFromDomain(c.classifier.Classify(question))
	c.obs.observe("classify", start, statusOK, nil)
	return cl
}

// Filter returns the metadata filter synthesized for question in JSON shape,
// or nil when none applies.
func (c *Client) Filter(question string) any {
	start := time.Now()
	f := filter.ToValue(c.synth.Synthesize(question))
	c.obs.observe("filter", start, statusOK, nil)
	return f
}

// CacheStats returns statistics for every pipeline cache.
func (c *Client) CacheStats() []CacheStats {
	return cacheStatsFromDomain(c.resolver.CacheStatistics())
}

// ClearCaches empties every pipeline cache.
func (c *Client) ClearCaches() {
	start := time.Now()
	c.resolver.ClearCaches()
	c.obs.observe("clear_caches", start, statusOK, nil)
}

// Close releases the Redis connection, if any.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}
