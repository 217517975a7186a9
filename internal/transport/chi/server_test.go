package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

func TestMain(m *testing.M) {
	metrics.RegisterHTTPMetrics()
	m.Run()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestPostQuery(t *testing.T) {
	res := &fakeResolver{result: specsResult()}
	s := newTestServer(res)

	body := `{"query": "What are the specs of DL380 Gen12?", "min_score": 0.5,
		"filter": {"or": [{"category": "specifications"}, {"topics": {"in": ["servers"]}}]}}`
	rr := do(t, s, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp QueryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer.Confidence != 0.87 || len(resp.Answer.Sources) != 1 {
		t.Errorf("answer = %+v", resp.Answer)
	}
	if resp.Classification.RouteName != "specifications" || resp.Classification.Rule != "keyword_route" {
		t.Errorf("classification = %+v", resp.Classification)
	}
	if resp.Classification.RouteFilter == nil {
		t.Error("route filter should be rendered")
	}

	if res.lastQ != "What are the specs of DL380 Gen12?" {
		t.Errorf("query = %q", res.lastQ)
	}
	if res.lastOpts.TopK != 3 {
		t.Errorf("TopK default not applied: %d", res.lastOpts.TopK)
	}
	if res.lastOpts.MinScore == nil || *res.lastOpts.MinScore != 0.5 {
		t.Errorf("MinScore = %v", res.lastOpts.MinScore)
	}
	want := filter.NewOr(filter.NewEquals("category", "specifications"), filter.NewIn("topics", "servers"))
	if !filter.Equal(res.lastOpts.Filter, want) {
		t.Errorf("filter = %s", filter.Key(res.lastOpts.Filter))
	}
	if res.lastOpts.OnToken != nil {
		t.Error("non-streaming request must not set OnToken")
	}
}

func TestPostQuery_UsageHeaders(t *testing.T) {
	res := &fakeResolver{result: specsResult(), embeddingTokens: 7, completionTokens: 42}
	s := newTestServer(res)

	rr := do(t, s, httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"query": "What are the specs of DL380 Gen12?"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "7" {
		t.Errorf("X-Embedding-Tokens = %q", got)
	}
	if got := rr.Header().Get("X-Completion-Tokens"); got != "42" {
		t.Errorf("X-Completion-Tokens = %q", got)
	}

	res.embeddingTokens, res.completionTokens = 0, 0
	rr = do(t, s, httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"query": "What are the specs of DL380 Gen12?"}`)))
	if rr.Header().Get("X-Embedding-Tokens") != "" || rr.Header().Get("X-Completion-Tokens") != "" {
		t.Errorf("usage headers set without provider calls: %v", rr.Header())
	}
}

func TestPostQuery_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode ErrorResponseCode
	}{
		{"malformed json", `{"query":`, ErrorResponseCodeBadRequest},
		{"unknown field", `{"query": "x", "bogus": 1}`, ErrorResponseCodeBadRequest},
		{"blank query", `{"query": "   "}`, ErrorResponseCodeEmptyQuery},
		{"bad filter", `{"query": "x", "filter": {"a": 1, "b": 2}}`, ErrorResponseCodeInvalidFilter},
		{"negative top_k", `{"query": "x", "top_k": -1}`, ErrorResponseCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fakeResolver{result: specsResult()}
			rr := do(t, newTestServer(res), httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(tt.body)))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", errResp.Code, tt.wantCode)
			}
			if res.calls != 0 {
				t.Error("resolver should not be called")
			}
		})
	}
}

func TestPostQuery_ResolverErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorResponseCode
	}{
		{"invalid request", domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed},
		{"internal", errors.New("boom"), http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fakeResolver{err: tt.err}
			rr := do(t, newTestServer(res),
				httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query": "x"}`)))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var errResp ErrorResponse
			_ = json.NewDecoder(rr.Body).Decode(&errResp)
			if errResp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", errResp.Code, tt.wantCode)
			}
			if tt.wantCode == ErrorResponseCodeInternalError && errResp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", errResp.Message)
			}
		})
	}
}

func TestGetQuery(t *testing.T) {
	res := &fakeResolver{result: specsResult()}
	s := newTestServer(res)

	req := httptest.NewRequest(http.MethodGet,
		`/v1/query?q=dl380+specs&top_k=5&filter=%7B%22category%22%3A%22specifications%22%7D`, http.NoBody)
	rr := do(t, s, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if res.lastQ != "dl380 specs" || res.lastOpts.TopK != 5 {
		t.Errorf("q=%q opts=%+v", res.lastQ, res.lastOpts)
	}
	if !filter.Equal(res.lastOpts.Filter, filter.NewEquals("category", "specifications")) {
		t.Errorf("filter = %s", filter.Key(res.lastOpts.Filter))
	}
}

func TestGetQuery_ParameterErrors(t *testing.T) {
	for _, target := range []string{
		"/v1/query",
		"/v1/query?q=x&top_k=many",
		"/v1/query?q=x&min_score=high",
	} {
		t.Run(target, func(t *testing.T) {
			rr := do(t, newTestServer(&fakeResolver{}), httptest.NewRequest(http.MethodGet, target, http.NoBody))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestQuery_Stream(t *testing.T) {
	res := &fakeResolver{result: specsResult(), tokens: []string{"The DL380 ", "Gen12 supports", " two processors."}}
	s := newTestServer(res)

	rr := do(t, s, httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"query": "dl380 specs", "stream": true}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	events := parseEvents(t, rr.Body.String())
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %v", len(events), events)
	}
	for i := range 3 {
		if events[i].name != "token" {
			t.Errorf("event %d = %q, want token", i, events[i].name)
		}
	}
	var tok TokenEvent
	if err := json.Unmarshal([]byte(events[1].data), &tok); err != nil || tok.Text != "Gen12 supports" {
		t.Errorf("token payload = %q (%v)", events[1].data, err)
	}
	if events[3].name != "answer" {
		t.Fatalf("last event = %q, want answer", events[3].name)
	}
	var resp QueryResponse
	if err := json.Unmarshal([]byte(events[3].data), &resp); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if resp.Answer.Text != "The DL380 Gen12 supports two processors." {
		t.Errorf("answer = %q", resp.Answer.Text)
	}
}

func TestQuery_StreamViaAcceptHeader(t *testing.T) {
	res := &fakeResolver{result: specsResult(), tokens: []string{"x"}}
	req := httptest.NewRequest(http.MethodGet, "/v1/query?q=dl380", http.NoBody)
	req.Header.Set("Accept", "text/event-stream")

	rr := do(t, newTestServer(res), req)
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if res.lastOpts.OnToken == nil {
		t.Error("OnToken should be set for streamed requests")
	}
}

func TestQuery_StreamError(t *testing.T) {
	res := &fakeResolver{err: errors.New("boom")}
	rr := do(t, newTestServer(res), httptest.NewRequest(http.MethodPost, "/v1/query",
		strings.NewReader(`{"query": "x", "stream": true}`)))

	events := parseEvents(t, rr.Body.String())
	if len(events) != 1 || events[0].name != "error" {
		t.Fatalf("events = %v", events)
	}
	if !strings.Contains(events[0].data, `"internal_error"`) {
		t.Errorf("error payload = %s", events[0].data)
	}
}

func TestCacheEndpoints(t *testing.T) {
	res := &fakeResolver{}
	s := newTestServer(res)

	rr := do(t, s, httptest.NewRequest(http.MethodGet, "/v1/cache", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rr.Code)
	}
	var stats CacheResponse
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats.Caches) != 1 || stats.Caches[0].Name != "classification" || stats.Caches[0].Misses != 2 {
		t.Errorf("stats = %+v", stats)
	}

	rr = do(t, s, httptest.NewRequest(http.MethodDelete, "/v1/cache", http.NoBody))
	if rr.Code != http.StatusNoContent || res.cleared != 1 {
		t.Errorf("DELETE status=%d cleared=%d", rr.Code, res.cleared)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status     healthuc.Status
		wantStatus int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := &fakeHealth{report: healthuc.Report{Status: tt.status, IndexSize: 3, CorpusSize: 3}}
			s := NewServer(&fakeResolver{}, h, resolve.Options{}, nil)

			rr := do(t, s, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var report healthuc.Report
			if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if report.Status != tt.status || report.IndexSize != 3 {
				t.Errorf("report = %+v", report)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(t, newTestServer(&fakeResolver{}), httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	rr := do(t, newTestServer(&fakeResolver{}), httptest.NewRequest(http.MethodGet, "/v1/cache", http.NoBody))
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

type sseEvent struct {
	name string
	data string
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		if block == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
		events = append(events, ev)
	}
	return events
}
