package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain/answer"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed ErrorResponseCode = "validation_failed"
	ErrorResponseCodeEmptyQuery       ErrorResponseCode = "empty_query"
	ErrorResponseCodeInvalidFilter    ErrorResponseCode = "invalid_filter"
	ErrorResponseCodeStreamingFailed  ErrorResponseCode = "streaming_unsupported"
	ErrorResponseCodeInternalError    ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query    string          `json:"query"`
	TopK     *int            `json:"top_k,omitempty"`
	MinScore *float64        `json:"min_score,omitempty"`
	Filter   json.RawMessage `json:"filter,omitempty"`
	Stream   bool            `json:"stream,omitempty"`
}

// ClassificationResponse describes how the query was routed.
type ClassificationResponse struct {
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
	Rule        string  `json:"rule"`
	RouteName   string  `json:"route_name,omitempty"`
	RouteFilter any     `json:"route_filter,omitempty"`
}

// QueryResponse is the answer to a query.
type QueryResponse struct {
	Answer         answer.Answer          `json:"answer"`
	Classification ClassificationResponse `json:"classification"`
}

// CacheResponse lists per-cache statistics.
type CacheResponse struct {
	Caches []cache.Stats `json:"caches"`
}

// TokenEvent is the payload of a streamed "token" event.
type TokenEvent struct {
	Text string `json:"text"`
}

func queryResponseFrom(r resolve.Result) QueryResponse {
	c := r.Classification
	return QueryResponse{
		Answer: r.Answer,
		Classification: ClassificationResponse{
			Type:        string(c.Type),
			Confidence:  c.Confidence,
			Reason:      c.Reason,
			Rule:        string(c.Rule),
			RouteName:   c.RouteName,
			RouteFilter: filter.ToValue(c.Route),
		},
	}
}
