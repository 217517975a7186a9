package catalogqa

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/answer"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

func testDocuments() []Document {
	return []Document{
		{
			ID: "gl-install", Source: "greenlake-guide.pdf",
			Text:     "GreenLake is installed by the onboarding team within two weeks.",
			Metadata: map[string]any{"product": "GreenLake", "category": "installation"},
			Vector:   []float32{1, 0},
		},
		{
			ID: "ezmeral-pricing", Source: "ezmeral-pricing.pdf",
			Text:     "Ezmeral is licensed per core.",
			Metadata: map[string]any{"product": "Ezmeral", "category": "pricing"},
			Vector:   []float32{0, 1},
		},
	}
}

func newTestClient(t *testing.T, emb Embedder, cm Completer, opts ...Option) *Client {
	t.Helper()
	all := append([]Option{WithDocuments(testDocuments()), WithEmbedder(emb), WithCompleter(cm)}, opts...)
	c, err := New(context.Background(), all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_RequiresProviders(t *testing.T) {
	ctx := context.Background()
	docs := WithDocuments(testDocuments())

	if _, err := New(ctx, docs, WithCompleter(&fakeCompleter{})); err == nil ||
		!strings.Contains(err.Error(), "embedder required") {
		t.Errorf("missing embedder: got %v", err)
	}
	if _, err := New(ctx, docs, WithEmbedder(&fakeEmbedder{})); err == nil ||
		!strings.Contains(err.Error(), "completer required") {
		t.Errorf("missing completer: got %v", err)
	}
	if _, err := New(ctx, WithEmbedder(&fakeEmbedder{}), WithCompleter(&fakeCompleter{})); err == nil ||
		!strings.Contains(err.Error(), "corpus required") {
		t.Errorf("missing corpus: got %v", err)
	}
}

func TestNew_PartialVectors(t *testing.T) {
	docs := testDocuments()
	docs[1].Vector = nil
	_, err := New(context.Background(),
		WithDocuments(docs), WithEmbedder(&fakeEmbedder{}), WithCompleter(&fakeCompleter{}))
	if !errors.Is(err, ErrCorpusMismatch) {
		t.Fatalf("got %v, want ErrCorpusMismatch", err)
	}
}

func TestNew_DocumentsWithoutVectorsNeedRedis(t *testing.T) {
	docs := testDocuments()
	for i := range docs {
		docs[i].Vector = nil
	}
	_, err := New(context.Background(),
		WithDocuments(docs), WithEmbedder(&fakeEmbedder{}), WithCompleter(&fakeCompleter{}))
	if !errors.Is(err, ErrCorpusMismatch) {
		t.Fatalf("got %v, want ErrCorpusMismatch", err)
	}
}

func TestAsk_EndToEnd(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	cm := &fakeCompleter{reply: "GreenLake is installed by the onboarding team"}
	c := newTestClient(t, emb, cm)

	ans, err := c.Ask(context.Background(), "How do I install GreenLake in my data center?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Text != "GreenLake is installed by the onboarding team." {
		t.Errorf("Text = %q", ans.Text)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].ID != "gl-install" {
		t.Fatalf("Sources = %+v", ans.Sources)
	}
	if ans.Confidence < 0.99 || ans.NoResults || ans.FallbackUsed || ans.Cached {
		t.Errorf("answer flags = %+v", ans)
	}
	if ans.Classification.Type != string(classify.IntelligentResponse) &&
		ans.Classification.Type != string(classify.KnowledgeBase) {
		t.Errorf("Classification = %+v", ans.Classification)
	}
	if len(cm.prompts) != 1 || !strings.Contains(cm.prompts[0], "onboarding team within two weeks") {
		t.Errorf("prompt did not carry the passage: %q", cm.prompts)
	}

	again, err := c.Ask(context.Background(), "how do i install greenlake in my data center?")
	if err != nil {
		t.Fatalf("Ask again: %v", err)
	}
	if !again.Cached || again.Text != ans.Text {
		t.Errorf("second answer = %+v, want cached copy", again)
	}
	if emb.calls != 1 {
		t.Errorf("embedder calls = %d, want 1", emb.calls)
	}
}

func TestAsk_CompletionFailureIsExtractive(t *testing.T) {
	c := newTestClient(t, &fakeEmbedder{vector: []float32{1, 0}}, &fakeCompleter{err: errProvider})

	ans, err := c.Ask(context.Background(), "How do I install GreenLake in my data center?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !ans.Extractive || !strings.HasPrefix(ans.Text, "GreenLake is installed") {
		t.Errorf("answer = %+v", ans)
	}
}

func TestAsk_EmbeddingFailureIsNoResults(t *testing.T) {
	c := newTestClient(t, &fakeEmbedder{err: errProvider}, &fakeCompleter{reply: "unused"})

	ans, err := c.Ask(context.Background(), "How do I install GreenLake in my data center?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !ans.NoResults || len(ans.Sources) != 0 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestAskStream_ForwardsTokens(t *testing.T) {
	cm := &fakeStreamer{
		fakeCompleter: fakeCompleter{reply: "Installed in two weeks."},
		tokens:        []string{"Installed ", "in two ", "weeks."},
	}
	c := newTestClient(t, &fakeEmbedder{vector: []float32{1, 0}}, cm)

	var got []string
	ans, err := c.AskStream(context.Background(), "How do I install GreenLake in my data center?",
		func(tok string) { got = append(got, tok) })
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	if !reflect.DeepEqual(got, cm.tokens) {
		t.Errorf("tokens = %q", got)
	}
	if ans.Text != "Installed in two weeks." {
		t.Errorf("Text = %q", ans.Text)
	}
}

func TestAskStream_NonStreamingCompleterDeliversOneToken(t *testing.T) {
	c := newTestClient(t, &fakeEmbedder{vector: []float32{1, 0}}, &fakeCompleter{reply: "Two weeks."})

	var got []string
	if _, err := c.AskStream(context.Background(), "How do I install GreenLake in my data center?",
		func(tok string) { got = append(got, tok) }); err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	if len(got) != 1 || got[0] != "Two weeks." {
		t.Errorf("tokens = %q", got)
	}
}

func TestAskStream_RequiresCallback(t *testing.T) {
	c := newMockClient(&mockResolver{})
	if _, err := c.AskStream(context.Background(), "question", nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("got %v, want ErrInvalidRequest", err)
	}
}

func TestAsk_Options(t *testing.T) {
	var got resolve.Options
	r := &mockResolver{resolveFn: func(_ context.Context, _ string, opts resolve.Options) (resolve.Result, error) {
		got = opts
		return resolve.Result{Answer: answer.Answer{Text: "ok."}}, nil
	}}
	c := newMockClient(r)

	if _, err := c.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got.TopK != 3 || got.MinScore == nil || *got.MinScore != 0.45 || got.Filter != nil {
		t.Errorf("defaults = %+v", got)
	}

	_, err := c.Ask(context.Background(), "q",
		AskTopK(5), AskMinScore(0.7),
		AskFilter(map[string]any{"referenced_products": map[string]any{"in": []string{"GreenLake"}}}))
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	want := filter.NewIn("referenced_products", "GreenLake")
	if got.TopK != 5 || *got.MinScore != 0.7 || !filter.Equal(got.Filter, want) {
		t.Errorf("overrides = %+v", got)
	}

	if _, err := c.Ask(context.Background(), "q", AskFilter(`{"product":"Ezmeral"}`)); err != nil {
		t.Fatalf("Ask with JSON filter: %v", err)
	}
	if !filter.Equal(got.Filter, filter.NewEquals("product", "Ezmeral")) {
		t.Errorf("JSON filter = %v", got.Filter)
	}
}

func TestAsk_InvalidFilter(t *testing.T) {
	called := false
	r := &mockResolver{resolveFn: func(context.Context, string, resolve.Options) (resolve.Result, error) {
		called = true
		return resolve.Result{}, nil
	}}
	c := newMockClient(r)

	_, err := c.Ask(context.Background(), "q", AskFilter(map[string]any{"a": 1, "b": 2}))
	if !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("got %v, want ErrInvalidFilter", err)
	}
	if called {
		t.Error("resolver must not run with an invalid filter")
	}
}

func TestAsk_PropagatesValidationErrors(t *testing.T) {
	r := &mockResolver{resolveFn: func(context.Context, string, resolve.Options) (resolve.Result, error) {
		return resolve.Result{}, domain.ErrEmptyQuery
	}}
	c := newMockClient(r)

	if _, err := c.Ask(context.Background(), "  "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("got %v, want ErrEmptyQuery", err)
	}
}

func TestClassifyAndFilter(t *testing.T) {
	route := filter.NewEquals("category", "pricing")
	c := newMockClient(&mockResolver{})
	c.classifier = &mockClassifier{result: classify.Classification{
		Type: classify.Route, Rule: classify.RuleKeyword, Confidence: 0.96,
		Reason: "matched keyword", RouteName: "pricing", Route: route,
	}}
	c.synth = &mockSynth{result: filter.NewEquals("product", "GreenLake")}

	cl := c.Classify("what is the pricing")
	if cl.Type != "route" || cl.Route != "pricing" || cl.Rule != "keyword_route" {
		t.Errorf("Classify = %+v", cl)
	}
	if !reflect.DeepEqual(cl.RouteFilter, map[string]any{"category": "pricing"}) {
		t.Errorf("RouteFilter = %#v", cl.RouteFilter)
	}

	if got := c.Filter("greenlake"); !reflect.DeepEqual(got, map[string]any{"product": "GreenLake"}) {
		t.Errorf("Filter = %#v", got)
	}
}

func TestCachesAndHealth(t *testing.T) {
	r := &mockResolver{stats: []cache.Stats{{Name: "response", Hits: 2, Misses: 1, Size: 1, Capacity: 500, TTL: time.Minute}}}
	c := newMockClient(r)
	c.healthSvc = &mockHealth{report: healthuc.Report{
		Status:     healthuc.Degraded,
		Checks:     map[string]healthuc.CheckResult{"index": healthuc.CheckOK, "embedding": healthuc.CheckError},
		IndexSize:  2,
		CorpusSize: 2,
	}}

	stats := c.CacheStats()
	if len(stats) != 1 || stats[0].Name != "response" || stats[0].Hits != 2 || stats[0].TTL != time.Minute {
		t.Errorf("CacheStats = %+v", stats)
	}

	c.ClearCaches()
	if r.cleared != 1 {
		t.Errorf("cleared = %d", r.cleared)
	}

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["embedding"] != "error" || h.IndexSize != 2 {
		t.Errorf("Health = %+v", h)
	}
}

func TestHealth_EndToEnd(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1, 0}, health: errProvider}
	c := newTestClient(t, emb, &fakeCompleter{})

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["index"] != "ok" || h.Checks["corpus"] != "ok" {
		t.Errorf("Health = %+v", h)
	}
	if h.IndexSize != 2 || h.CorpusSize != 2 {
		t.Errorf("sizes = %d/%d", h.IndexSize, h.CorpusSize)
	}
}

func TestWithRoute_OverridesBuiltin(t *testing.T) {
	c := newTestClient(t, &fakeEmbedder{vector: []float32{1, 0}}, &fakeCompleter{},
		WithRoute("pricing", []string{"licensing"}, map[string]any{"category": "pricing"}))

	cl := c.Classify("tell me about ezmeral licensing terms")
	if cl.Route != "pricing" {
		t.Fatalf("Classify = %+v", cl)
	}
	if cl := c.Classify("what is the price of ezmeral"); cl.Route == "pricing" {
		t.Errorf("replaced route keyword still matches: %+v", cl)
	}
}

func TestWithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, &fakeEmbedder{vector: []float32{1, 0}}, &fakeCompleter{reply: "Two weeks."},
		WithPrometheus(reg))

	for range 2 {
		if _, err := c.Ask(context.Background(), "How do I install GreenLake in my data center?"); err != nil {
			t.Fatalf("Ask: %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "catalogqa_sdk_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["operation"]+"/"+labels["status"]] += m.GetCounter().GetValue()
		}
	}
	if counts["ask/ok"] != 1 || counts["ask/cached"] != 1 {
		t.Errorf("operation counts = %v", counts)
	}

	// A second client on the same registerer reuses the collectors.
	if _, err := New(context.Background(),
		WithDocuments(testDocuments()),
		WithEmbedder(&fakeEmbedder{vector: []float32{1, 0}}),
		WithCompleter(&fakeCompleter{}),
		WithPrometheus(reg)); err != nil {
		t.Fatalf("second New: %v", err)
	}
}
