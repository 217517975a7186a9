// Package chi exposes query resolution over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	logpkg "github.com/kailas-cloud/catalogqa/internal/logger"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

// maxBodyBytes bounds POST /v1/query bodies.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the query API.
type Server struct {
	resolver      Resolver
	health        HealthChecker
	defaults      resolve.Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. defaults supplies TopK and MinScore
// when a request leaves them out.
func NewServer(resolver Resolver, health HealthChecker, defaults resolve.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		resolver: resolver,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorResponseCodeEmptyQuery),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, ErrorResponseCodeInvalidFilter),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
	}
	return s
}

// Handler builds the router with the standard middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.PostQuery)
		r.Get("/query", s.GetQuery)
		r.Get("/cache", s.GetCacheStats)
		r.Delete("/cache", s.ClearCache)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

// PostQuery handles POST /v1/query.
func (s *Server) PostQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	f, err := filter.Decode(req.Filter)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.serveQuery(w, r, req.Query, s.options(req.TopK, req.MinScore, f), req.Stream)
}

// GetQuery handles GET /v1/query?q=...&top_k=...&min_score=...&filter=<json>&stream=...
func (s *Server) GetQuery(w http.ResponseWriter, r *http.Request) {
	var (
		query     string
		topK      *int
		minScore  *float64
		rawFilter *string
		stream    *bool
	)
	params := r.URL.Query()
	bindings := []struct {
		name     string
		required bool
		dest     any
	}{
		{"q", true, &query},
		{"top_k", false, &topK},
		{"min_score", false, &minScore},
		{"filter", false, &rawFilter},
		{"stream", false, &stream},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, params, b.dest); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
				fmt.Sprintf("Invalid format for parameter %s: %s", b.name, err))
			return
		}
	}

	var f filter.Filter
	if rawFilter != nil {
		var err error
		if f, err = filter.Decode([]byte(*rawFilter)); err != nil {
			s.handleDomainError(w, err)
			return
		}
	}

	s.serveQuery(w, r, query, s.options(topK, minScore, f), stream != nil && *stream)
}

func (s *Server) options(topK *int, minScore *float64, f filter.Filter) resolve.Options {
	opts := s.defaults
	if topK != nil {
		opts.TopK = *topK
	}
	if minScore != nil {
		opts.MinScore = minScore
	}
	opts.Filter = f
	return opts
}

func (s *Server) serveQuery(w http.ResponseWriter, r *http.Request, query string, opts resolve.Options, stream bool) {
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeEmptyQuery, domain.ErrEmptyQuery.Error())
		return
	}
	if opts.TopK < 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "top_k must not be negative")
		return
	}

	if stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.streamQuery(w, r, query, opts)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.resolver.ResolveQuery(ctx, query, opts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, queryResponseFrom(res))
}

const (
	headerEmbeddingTokens  = "X-Embedding-Tokens"
	headerCompletionTokens = "X-Completion-Tokens"
)

// setUsageHeaders reports provider tokens spent on this request; cached
// answers spend none and get no headers.
func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage.EmbeddingCalled {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(usage.EmbeddingTokens))
	}
	if usage.CompletionTokens > 0 {
		w.Header().Set(headerCompletionTokens, strconv.Itoa(usage.CompletionTokens))
	}
}

// streamQuery answers over server-sent events: zero or more "token" events
// followed by one "answer" (or "error") event.
func (s *Server) streamQuery(w http.ResponseWriter, r *http.Request, query string, opts resolve.Options) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, ErrorResponseCodeStreamingFailed, "streaming unsupported")
		return
	}
	logger := logpkg.FromContext(r.Context(), s.logger)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	opts.OnToken = func(token string) {
		if err := writeEvent(w, "token", TokenEvent{Text: token}); err != nil {
			logger.Debug("stream write failed", zap.Error(err))
			return
		}
		flusher.Flush()
	}

	res, err := s.resolver.ResolveQuery(r.Context(), query, opts)
	if err != nil {
		logger.Warn("streamed query failed", zap.Error(err))
		_ = writeEvent(w, "error", ErrorResponse{Code: errorCode(err), Message: safeDomainMessage(err)})
		flusher.Flush()
		return
	}
	_ = writeEvent(w, "answer", queryResponseFrom(res))
	flusher.Flush()
}

// GetCacheStats handles GET /v1/cache.
func (s *Server) GetCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CacheResponse{Caches: s.resolver.CacheStatistics()})
}

// ClearCache handles DELETE /v1/cache.
func (s *Server) ClearCache(w http.ResponseWriter, _ *http.Request) {
	s.resolver.ClearCaches()
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	return nil
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrInvalidFilter,
		domain.ErrInvalidRequest,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

func errorCode(err error) ErrorResponseCode {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		return ErrorResponseCodeEmptyQuery
	case errors.Is(err, domain.ErrInvalidFilter):
		return ErrorResponseCodeInvalidFilter
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrorResponseCodeValidationFailed
	}
	return ErrorResponseCodeInternalError
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
