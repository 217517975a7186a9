package catalogqa

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type openAIConfig struct {
	apiKey          string
	baseURL         string
	embeddingModel  string
	completionModel string
}

type routeConfig struct {
	name     string
	keywords []string
	filter   any
}

type clientConfig struct {
	catalogPath string
	documents   []Document

	embedder  Embedder
	completer Completer
	openAI    *openAIConfig

	redisAddrs    []string
	redisPassword string

	vectorDimensions  int
	queryInstruction  string
	topK              int
	minScore          float64
	semanticThreshold float64
	routes            []routeConfig

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalogFile loads the corpus from a catalog YAML file.
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithDocuments uses an in-memory corpus. Takes precedence over WithCatalogFile.
// Either every document carries a Vector or none does; the in-memory index
// needs vectors, a Redis index does not.
func WithDocuments(docs []Document) Option {
	return optionFunc(func(c *clientConfig) {
		c.documents = docs
	})
}

// WithEmbedder sets the query embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter sets the answer generation provider.
func WithCompleter(cm Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cm
	})
}

// WithOpenAI uses an OpenAI-compatible API for both embeddings and completions.
// WithEmbedder and WithCompleter take precedence for their half.
// An empty baseURL means api.openai.com.
func WithOpenAI(apiKey, baseURL, embeddingModel, completionModel string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAI = &openAIConfig{
			apiKey:          apiKey,
			baseURL:         baseURL,
			embeddingModel:  embeddingModel,
			completionModel: completionModel,
		}
	})
}

// WithRedis serves nearest-neighbour search from a Redis search index seeded
// by the catalogqa CLI instead of the in-memory index.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithVectorDimensions sets the query vector dimension expected by a Redis index.
// The in-memory index takes it from the corpus vectors. Default: 384.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithQueryInstruction prepends text to every query before embedding
// (e.g. "query: " for e5 models).
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithTopK sets the default number of passages per answer. Default: 3.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMinScore sets the default similarity floor. Default: 0.45.
func WithMinScore(score float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minScore = score
	})
}

// WithSemanticThreshold sets the similarity at which a previously embedded
// query is reused for a new one. Default: 0.82.
func WithSemanticThreshold(threshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.semanticThreshold = threshold
	})
}

// WithRoute adds a keyword route. A route with the name of a built-in one replaces it.
// filter uses the JSON filter shape, e.g. map[string]any{"product": "greenlake"}.
func WithRoute(name string, keywords []string, filter any) Option {
	return optionFunc(func(c *clientConfig) {
		c.routes = append(c.routes, routeConfig{name: name, keywords: keywords, filter: filter})
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// AskOption tunes a single Ask call.
type AskOption func(*askConfig)

type askConfig struct {
	topK     int
	minScore *float64
	filter   any
}

// AskTopK overrides the number of passages for one call.
func AskTopK(k int) AskOption {
	return func(c *askConfig) { c.topK = k }
}

// AskMinScore overrides the similarity floor for one call.
func AskMinScore(score float64) AskOption {
	return func(c *askConfig) { c.minScore = &score }
}

// AskFilter restricts retrieval with an explicit metadata filter, bypassing
// route and synthesized filters. Accepts the JSON filter shape as a Go value,
// a JSON string or raw JSON bytes.
func AskFilter(filter any) AskOption {
	return func(c *askConfig) { c.filter = filter }
}
