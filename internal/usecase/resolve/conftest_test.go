package resolve

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	"github.com/kailas-cloud/catalogqa/internal/usecase/filtersynth"
	"github.com/kailas-cloud/catalogqa/internal/usecase/retrieval"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}, TotalTokens: 3}, nil
}

type fakeIndex struct {
	neighbors []domain.Neighbor
	calls     int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]domain.Neighbor, error) {
	f.calls++
	if k < len(f.neighbors) {
		return f.neighbors[:k], nil
	}
	return f.neighbors, nil
}

type fakeCatalog struct {
	docs []domain.Document
}

func (f *fakeCatalog) Len() int { return len(f.docs) }

func (f *fakeCatalog) Document(i int) (domain.Document, bool) {
	if i < 0 || i >= len(f.docs) {
		return domain.Document{}, false
	}
	return f.docs[i], true
}

type fakeCompleter struct {
	text        string
	tokens      []string
	err         error
	calls       int
	streamCalls int
	lastPrompt  domain.Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, prompt domain.Prompt) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeCompleter) Stream(_ context.Context, prompt domain.Prompt, onToken domain.TokenFunc) (string, error) {
	f.streamCalls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	for _, tok := range f.tokens {
		onToken(tok)
	}
	return strings.Join(f.tokens, ""), nil
}

// corpus positions: 0 specs, 1 performance, 2 case study.
func testCatalog() *fakeCatalog {
	return &fakeCatalog{docs: []domain.Document{
		{
			ID: "dl380-gen12-specs", Source: "DL380 Gen12 QuickSpecs",
			Text:     "The DL380 Gen12 supports 32 DIMMs.",
			Metadata: map[string]any{"category": "specifications", "product": "DL380 Gen12"},
		},
		{
			ID: "dl380-gen12-perf", Source: "DL380 Gen12 benchmarks",
			Text:     "The DL380 Gen12 leads its class on SPECrate.",
			Metadata: map[string]any{"category": "performance", "product": "DL380 Gen12"},
		},
		{
			ID: "retail-case-study", Source: "Customer story",
			Text:     "A retailer consolidated 40 racks.",
			Metadata: map[string]any{"document_type": "case_study", "product": "all"},
		},
	}}
}

type pipeline struct {
	svc       *Service
	index     *fakeIndex
	completer *fakeCompleter
	synth     *filtersynth.Synthesizer
	clock     *fakeClock
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newPipeline(t *testing.T, neighbors []domain.Neighbor, completer *fakeCompleter) *pipeline {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	classifier, err := classify.New(classify.DefaultRoutes(), nil, nil)
	if err != nil {
		t.Fatalf("classify.New: %v", err)
	}
	synth, err := filtersynth.New(nil, nil)
	if err != nil {
		t.Fatalf("filtersynth.New: %v", err)
	}
	idx := &fakeIndex{neighbors: neighbors}
	retriever, err := retrieval.New(stubEmbedder{}, idx, testCatalog(), retrieval.Config{Clock: clock.Now}, nil)
	if err != nil {
		t.Fatalf("retrieval.New: %v", err)
	}
	svc, err := New(classifier, synth, retriever, completer, Config{Clock: clock.Now}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &pipeline{svc: svc, index: idx, completer: completer, synth: synth, clock: clock}
}

func allNeighbors() []domain.Neighbor {
	return []domain.Neighbor{{ID: 1, Score: 0.91}, {ID: 0, Score: 0.87}, {ID: 2, Score: 0.6}}
}
