package chi

import (
	"context"
	"sync"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/answer"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

// fakeResolver records the last call and replies with a canned result.
type fakeResolver struct {
	mu       sync.Mutex
	result   resolve.Result
	err      error
	tokens   []string
	calls    int
	lastQ    string
	lastOpts resolve.Options
	cleared  int

	embeddingTokens  int
	completionTokens int
}

func (f *fakeResolver) ResolveQuery(ctx context.Context, query string, opts resolve.Options) (resolve.Result, error) {
	if f.embeddingTokens > 0 {
		domain.UsageFromContext(ctx).AddEmbeddingTokens(f.embeddingTokens)
	}
	domain.UsageFromContext(ctx).AddCompletionTokens(f.completionTokens)

	f.mu.Lock()
	f.calls++
	f.lastQ = query
	f.lastOpts = opts
	f.mu.Unlock()

	if f.err != nil {
		return resolve.Result{}, f.err
	}
	if opts.OnToken != nil {
		for _, tok := range f.tokens {
			opts.OnToken(tok)
		}
	}
	return f.result, nil
}

func (f *fakeResolver) CacheStatistics() []cache.Stats {
	return []cache.Stats{{Name: "classification", Hits: 1, Misses: 2, Size: 2, Capacity: 100}}
}

func (f *fakeResolver) ClearCaches() { f.cleared++ }

type fakeHealth struct {
	report healthuc.Report
}

func (f *fakeHealth) Check(_ context.Context) healthuc.Report { return f.report }

func specsResult() resolve.Result {
	return resolve.Result{
		Answer: answer.Answer{
			Text:       "The DL380 Gen12 supports two processors.",
			Sources:    []answer.Source{{ID: "dl380-gen12-specs", Source: "QuickSpecs", Score: 0.87}},
			Confidence: 0.87,
		},
		Classification: classify.Classification{
			Type:       classify.Route,
			Confidence: 0.96,
			Reason:     "matched keyword route",
			Rule:       classify.RuleKeyword,
			RouteName:  "specifications",
			Route:      filter.NewEquals("category", "specifications"),
		},
	}
}

func newTestServer(res *fakeResolver) *Server {
	h := &fakeHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	return NewServer(res, h, resolve.Options{TopK: 3}, nil)
}
