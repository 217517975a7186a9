package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/catalogqa/internal/config"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

const testCatalog = `
documents:
  - id: dl380-gen12-specs
    source: HPE ProLiant DL380 Gen12 QuickSpecs
    text: The DL380 Gen12 supports up to two Intel Xeon 6 processors.
    metadata: {category: specifications, topics: [servers]}
    vector: [1, 0]
  - id: dl380-gen12-perf
    source: DL380 Gen12 performance brief
    text: The DL380 Gen12 delivers strong SPEC CPU results.
    metadata: {category: performance}
    vector: [0.8, 0.6]
  - id: greenlake-overview
    source: HPE GreenLake overview
    text: GreenLake brings a cloud operating model to the data center.
    metadata: {category: cloud, product: GreenLake}
    vector: [0, 1]
`

// providerServer fakes an OpenAI-compatible provider. Queries mentioning
// gen12 embed to [1, 0], everything else to [0, 1].
func providerServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			var req struct {
				Input []string `json:"input"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			vec := []float32{0, 1}
			if len(req.Input) > 0 && strings.Contains(strings.ToLower(req.Input[0]), "gen12") {
				vec = []float32{1, 0}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": vec}},
				"usage":  map[string]int{"prompt_tokens": 5, "total_tokens": 5},
			})
		case "/chat/completions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": reply},
					"finish_reason": "stop",
				}},
				"usage": map[string]int{"prompt_tokens": 40, "completion_tokens": 9, "total_tokens": 49},
			})
		case "/models":
			_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testConfig(t *testing.T, catalogYAML, providerURL string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{
		HTTP:       config.HTTPConfig{Port: 8080},
		Embedding:  config.EmbeddingConfig{APIKey: "test-key", BaseURL: providerURL, Model: "test-embed", Dimensions: 2},
		Completion: config.CompletionConfig{Model: "test-chat"},
		Catalog:    config.CatalogConfig{Path: path},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func TestApp_ResolvesRoutedQuery(t *testing.T) {
	provider := providerServer(t, "The DL380 Gen12 supports two processors")
	defer provider.Close()

	a, err := New(context.Background(), testConfig(t, testCatalog, provider.URL), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	res, err := a.Resolver.ResolveQuery(context.Background(), "What are the specs of DL380 Gen12?", a.Defaults())
	if err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}
	if res.Classification.RouteName != "specifications" {
		t.Errorf("route = %q", res.Classification.RouteName)
	}
	if len(res.Answer.Sources) != 1 || res.Answer.Sources[0].ID != "dl380-gen12-specs" {
		t.Fatalf("sources = %+v", res.Answer.Sources)
	}
	if res.Answer.Text != "The DL380 Gen12 supports two processors." {
		t.Errorf("text = %q", res.Answer.Text)
	}
	if res.Answer.Confidence < 0.99 {
		t.Errorf("confidence = %f", res.Answer.Confidence)
	}

	again, err := a.Resolver.ResolveQuery(context.Background(), "  what are the specs of dl380 gen12?", a.Defaults())
	if err != nil || !again.Answer.Cached {
		t.Errorf("second call should hit the response cache: %+v, %v", again.Answer, err)
	}

	report := a.Health.Check(context.Background())
	if report.Status != healthuc.Healthy || report.IndexSize != 3 {
		t.Errorf("health = %+v", report)
	}
	if len(report.Caches) != 6 {
		t.Errorf("expected 6 cache entries, got %d", len(report.Caches))
	}
}

func TestApp_ConfiguredRoute(t *testing.T) {
	provider := providerServer(t, "GreenLake runs as a service")
	defer provider.Close()

	cfg := testConfig(t, testCatalog, provider.URL)
	cfg.Classifier.Routes = []config.RouteConfig{{
		Name:     "cloud",
		Keywords: []string{"cloud operating model"},
		Filter:   map[string]any{"category": "cloud"},
	}}

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	minScore := 0.0
	res, err := a.Resolver.ResolveQuery(context.Background(),
		"Explain the cloud operating model", resolve.Options{MinScore: &minScore})
	if err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}
	if res.Classification.RouteName != "cloud" {
		t.Errorf("route = %q", res.Classification.RouteName)
	}
	if len(res.Answer.Sources) != 1 || res.Answer.Sources[0].ID != "greenlake-overview" {
		t.Errorf("sources = %+v", res.Answer.Sources)
	}
}

func TestApp_MemoryIndexNeedsVectors(t *testing.T) {
	cfg := testConfig(t, "documents:\n  - id: a\n    text: x\n", "http://127.0.0.1:0")
	_, err := New(context.Background(), cfg, nil)
	if !errors.Is(err, domain.ErrCorpusMismatch) {
		t.Fatalf("got %v, want ErrCorpusMismatch", err)
	}
}

func TestApp_Defaults(t *testing.T) {
	a := &App{Config: config.Config{Retrieval: config.RetrievalConfig{TopK: 4, MinScore: 0.5}}}
	d := a.Defaults()
	if d.TopK != 4 || d.MinScore == nil || *d.MinScore != 0.5 {
		t.Errorf("Defaults = %+v", d)
	}
}

func TestNewClassifier_RejectsDuplicateKeyword(t *testing.T) {
	cfg := config.Config{Classifier: config.ClassifierConfig{Routes: []config.RouteConfig{{
		Name:     "dupe",
		Keywords: []string{"specs"},
	}}}}
	cfg.ApplyDefaults()
	if _, err := NewClassifier(cfg, nil); err == nil {
		t.Fatal("expected duplicate keyword error")
	}
}
