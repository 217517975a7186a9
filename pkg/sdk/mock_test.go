package catalogqa

import (
	"context"
	"errors"
	"sync"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

// --- resolverUseCase mock ---

type mockResolver struct {
	resolveFn func(ctx context.Context, query string, opts resolve.Options) (resolve.Result, error)
	stats     []cache.Stats
	cleared   int
}

func (m *mockResolver) ResolveQuery(ctx context.Context, query string, opts resolve.Options) (resolve.Result, error) {
	return m.resolveFn(ctx, query, opts)
}

func (m *mockResolver) CacheStatistics() []cache.Stats { return m.stats }

func (m *mockResolver) ClearCaches() { m.cleared++ }

// --- classifierUseCase / synthesizerUseCase mocks ---

type mockClassifier struct {
	result classify.Classification
}

func (m *mockClassifier) Classify(string) classify.Classification { return m.result }

type mockSynth struct {
	result filter.Filter
}

func (m *mockSynth) Synthesize(string) filter.Filter { return m.result }

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func newMockClient(r *mockResolver) *Client {
	minScore := 0.45
	return &Client{
		resolver:   r,
		classifier: &mockClassifier{},
		synth:      &mockSynth{},
		healthSvc:  &mockHealth{},
		defaults:   resolve.Options{TopK: 3, MinScore: &minScore},
	}
}

// --- public provider fakes ---

type fakeEmbedder struct {
	mu     sync.Mutex
	vector []float32
	calls  int
	err    error
	health error
}

func (f *fakeEmbedder) Embed(context.Context, string) (EmbeddingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return EmbeddingResult{}, f.err
	}
	return EmbeddingResult{Embedding: append([]float32(nil), f.vector...), TotalTokens: 3}, nil
}

func (f *fakeEmbedder) HealthCheck(context.Context) error { return f.health }

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, user)
	return f.reply, f.err
}

// fakeStreamer splits its reply into words.
type fakeStreamer struct {
	fakeCompleter
	tokens []string
}

func (f *fakeStreamer) Stream(ctx context.Context, system, user string, onToken func(string)) (string, error) {
	if _, err := f.Complete(ctx, system, user); err != nil {
		return "", err
	}
	for _, t := range f.tokens {
		onToken(t)
	}
	return f.reply, nil
}

var errProvider = errors.New("provider down")
