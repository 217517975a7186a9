package resolve

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/answer"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/request"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/result"
	"github.com/kailas-cloud/catalogqa/internal/domain/text"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
)

// Response cache defaults and fallback texts.
const (
	DefaultResponseTTL       = 5 * time.Minute
	DefaultResponseCacheSize = 500

	DefaultNoResultsMessage = "I could not find anything in the product catalog about that. " +
		"Could you rephrase or name the product you are interested in?"
	DefaultConversationReply = "Hello! Ask me anything about the product catalog."
)

// Resolution outcomes used as the duration histogram label.
const (
	outcomeAnswered     = "answered"
	outcomeNoResults    = "no_results"
	outcomeConversation = "conversation"
	outcomeCached       = "cached"
)

// Config tunes prompt assembly, fallback texts and the response cache.
// Zero values mean "use default".
type Config struct {
	PassageBudget      int
	SystemPrompt       string
	ConversationPrompt string
	NoResultsMessage   string
	ConversationReply  string
	ResponseTTL        time.Duration
	ResponseCacheSize  int
	// Clock overrides time.Now for the response cache (tests).
	Clock func() time.Time
}

func (c *Config) applyDefaults() {
	if c.PassageBudget <= 0 {
		c.PassageBudget = DefaultPassageBudget
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	if c.ConversationPrompt == "" {
		c.ConversationPrompt = defaultConversationPrompt
	}
	if c.NoResultsMessage == "" {
		c.NoResultsMessage = DefaultNoResultsMessage
	}
	if c.ConversationReply == "" {
		c.ConversationReply = DefaultConversationReply
	}
	if c.ResponseTTL <= 0 {
		c.ResponseTTL = DefaultResponseTTL
	}
	if c.ResponseCacheSize <= 0 {
		c.ResponseCacheSize = DefaultResponseCacheSize
	}
}

// Options are per-query parameters. A non-nil Filter overrides the route and
// synthesized filters. OnToken, when set, receives streamed completion text.
type Options struct {
	TopK     int
	MinScore *float64
	Filter   filter.Filter
	OnToken  domain.TokenFunc
}

// Result is a resolved answer together with the classification that drove it.
type Result struct {
	Answer         answer.Answer           `json:"answer"`
	Classification classify.Classification `json:"classification"`
}

// Service is the query resolution entry point.
type Service struct {
	classifier Classifier
	synth      FilterSynthesizer
	retriever  Retriever
	completer  Completer
	responses  *cache.Cache[string, Result]
	cfg        Config
	logger     *zap.Logger
}

// New creates a resolution service.
func New(
	classifier Classifier, synth FilterSynthesizer, retriever Retriever, completer Completer,
	cfg Config, logger *zap.Logger,
) (*Service, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []cache.Option{cache.WithTTL(cfg.ResponseTTL), cache.WithMetrics(metrics.CacheRequestsTotal)}
	if cfg.Clock != nil {
		opts = append(opts, cache.WithClock(cfg.Clock))
	}
	responses, err := cache.New[string, Result]("response", cfg.ResponseCacheSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("response cache: %w", err)
	}

	return &Service{
		classifier: classifier,
		synth:      synth,
		retriever:  retriever,
		completer:  completer,
		responses:  responses,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// ResolveQuery answers query. Collaborator failures never surface as errors:
// retrieval failures become a NoResults answer and completion failures an
// extractive one. Errors are returned only for invalid input.
func (s *Service) ResolveQuery(ctx context.Context, query string, opts Options) (Result, error) {
	start := time.Now()
	norm := text.Normalize(query)
	if norm == "" {
		return Result{}, fmt.Errorf("%w: query is required", domain.ErrEmptyQuery)
	}

	key := responseKey(norm, opts)
	if cached, ok := s.responses.Get(key); ok {
		cached.Answer.Cached = true
		if opts.OnToken != nil {
			opts.OnToken(cached.Answer.Text)
		}
		observe(outcomeCached, start)
		return cached, nil
	}

	c := s.classifier.Classify(query)
	logger := s.logger.With(zap.String("type", string(c.Type)), zap.String("rule", string(c.Rule)))

	if !classify.ShouldUseIntelligentResponse(c) {
		res := Result{Answer: s.converse(ctx, query, c, opts.OnToken, logger), Classification: c}
		s.responses.Set(key, res)
		observe(outcomeConversation, start)
		return res, nil
	}

	f := s.selectFilter(query, c, opts.Filter)
	req, err := request.New(query, request.Options{TopK: opts.TopK, MinScore: opts.MinScore, Filter: f})
	if err != nil {
		return Result{}, fmt.Errorf("build search request: %w", err)
	}

	outcome := s.retriever.SearchWithFallback(ctx, req)
	if len(outcome.Results) == 0 {
		logger.Info("No catalog passages found", zap.Bool("fallback_used", outcome.FallbackUsed))
		observe(outcomeNoResults, start)
		return Result{
			Answer: answer.Answer{
				Text:         s.cfg.NoResultsMessage,
				Sources:      []answer.Source{},
				NoResults:    true,
				FallbackUsed: outcome.FallbackUsed,
			},
			Classification: c,
		}, nil
	}

	prompt := buildPrompt(s.cfg.SystemPrompt, query, outcome.Results, s.cfg.PassageBudget)
	generated, err := s.generate(ctx, prompt, opts.OnToken)

	ans := answer.Answer{
		Sources:      sources(outcome.Results),
		Confidence:   outcome.Results[0].Score(),
		FallbackUsed: outcome.FallbackUsed,
	}
	if err != nil || strings.TrimSpace(generated) == "" {
		logger.Warn("Completion failed, answering extractively", zap.Error(err))
		ans.Text = answer.EnsureCompleteSentence(truncate(outcome.Results[0].Text(), s.cfg.PassageBudget))
		ans.Extractive = true
	} else {
		ans.Text = answer.EnsureCompleteSentence(generated)
	}

	res := Result{Answer: ans, Classification: c}
	s.responses.Set(key, res)
	observe(outcomeAnswered, start)

	logger.Debug("Query resolved",
		zap.Int("sources", len(ans.Sources)),
		zap.Float64("confidence", ans.Confidence),
		zap.Bool("extractive", ans.Extractive),
	)
	return res, nil
}

// selectFilter applies precedence: caller override, then route filter, then
// synthesized. Synthesis runs only for classifications that warrant retrieval;
// free-form intelligent responses search the whole catalog.
func (s *Service) selectFilter(query string, c classify.Classification, override filter.Filter) filter.Filter {
	if override != nil {
		return override
	}
	if c.Route != nil {
		return c.Route
	}
	if !classify.ShouldUseRAG(c) {
		return nil
	}
	return s.synth.Synthesize(query)
}

func (s *Service) converse(
	ctx context.Context, query string, c classify.Classification, onToken domain.TokenFunc, logger *zap.Logger,
) answer.Answer {
	generated, err := s.generate(ctx, conversationPrompt(s.cfg.ConversationPrompt, query), onToken)
	if err != nil || strings.TrimSpace(generated) == "" {
		logger.Warn("Conversational completion failed, using canned reply", zap.Error(err))
		generated = s.cfg.ConversationReply
	}
	return answer.Answer{
		Text:       answer.EnsureCompleteSentence(generated),
		Sources:    []answer.Source{},
		Confidence: c.Confidence,
	}
}

func (s *Service) generate(ctx context.Context, prompt domain.Prompt, onToken domain.TokenFunc) (string, error) {
	var (
		out string
		err error
	)
	if onToken != nil {
		out, err = s.completer.Stream(ctx, prompt, onToken)
	} else {
		out, err = s.completer.Complete(ctx, prompt)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletionFailed, err)
	}
	return out, nil
}

// ClearCaches empties every cache in the pipeline.
func (s *Service) ClearCaches() {
	s.classifier.ClearCache()
	s.synth.ClearCache()
	s.retriever.ClearCaches()
	s.responses.Clear()
	s.logger.Info("Caches cleared")
}

// CacheStatistics returns hit counts and sizes for every cache in the pipeline.
func (s *Service) CacheStatistics() []cache.Stats {
	stats := []cache.Stats{s.classifier.CacheStats(), s.synth.CacheStats()}
	stats = append(stats, s.retriever.CacheStats()...)
	return append(stats, s.responses.Stats())
}

func sources(results []result.Result) []answer.Source {
	out := make([]answer.Source, len(results))
	for i := range results {
		r := &results[i]
		out[i] = answer.Source{ID: r.ID(), Source: r.Source(), Score: r.Score()}
	}
	return out
}

func responseKey(norm string, opts Options) string {
	var b strings.Builder
	b.WriteString(norm)
	b.WriteString("|f=")
	b.WriteString(filter.Key(opts.Filter))
	b.WriteString("|k=")
	b.WriteString(strconv.Itoa(opts.TopK))
	b.WriteString("|s=")
	if opts.MinScore != nil {
		b.WriteString(strconv.FormatFloat(*opts.MinScore, 'g', -1, 64))
	}
	return b.String()
}

func observe(outcome string, start time.Time) {
	metrics.ResolveDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
