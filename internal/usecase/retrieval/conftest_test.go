package retrieval

import (
	"context"
	"time"

	"github.com/kailas-cloud/catalogqa/internal/domain"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	vec, ok := f.vectors[text]
	if !ok {
		vec = []float32{1, 0, 0}
	}
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: 4, TotalTokens: 4}, nil
}

type fakeIndex struct {
	neighbors []domain.Neighbor
	err       error
	calls     int
	lastK     int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]domain.Neighbor, error) {
	f.calls++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
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

func testCatalog() *fakeCatalog {
	return &fakeCatalog{docs: []domain.Document{
		{
			ID: "dl380-gen12-specs", Source: "DL380 Gen12 QuickSpecs", Text: "The DL380 Gen12 supports 32 DIMMs.",
			Metadata: map[string]any{"category": "specifications", "product": "DL380 Gen12"},
		},
		{
			ID: "dl380-gen12-perf", Source: "DL380 Gen12 benchmarks", Text: "SPECrate results.",
			Metadata: map[string]any{"category": "performance", "product": "DL380 Gen12"},
		},
		{
			ID: "greenlake-case-study", Source: "Customer story", Text: "A retailer moved to GreenLake.",
			Metadata: map[string]any{"category": "case_study", "product": "all", "tags": []any{"retail"}},
		},
	}}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
