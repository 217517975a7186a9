package request

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/domain/text"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength  = 4096
	DefaultTopK     = 3
	MaxTopK         = 50
	DefaultMinScore = 0.45
	// SearchKFactor sets the default candidate pool as a multiple of TopK.
	SearchKFactor = 3
)

// Request is a validated retrieval query.
type Request struct {
	query    string
	filter   filter.Filter
	topK     int
	minScore float64
	searchK  int
}

// Options carries caller-supplied search parameters. Zero values mean "use default".
type Options struct {
	TopK     int
	MinScore *float64
	SearchK  int
	Filter   filter.Filter
}

// New validates and normalizes search parameters.
// Defaults: topK=3, minScore=0.45, searchK=topK*3. SearchK is never below topK.
func New(query string, opts Options) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrEmptyQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	minScore := DefaultMinScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	if minScore < -1 || minScore > 1 {
		return Request{}, fmt.Errorf("%w: min_score must be between -1 and 1", domain.ErrInvalidRequest)
	}

	searchK := opts.SearchK
	if searchK <= 0 {
		searchK = topK * SearchKFactor
	}
	if searchK < topK {
		searchK = topK
	}

	return Request{
		query:    query,
		filter:   opts.Filter,
		topK:     topK,
		minScore: minScore,
		searchK:  searchK,
	}, nil
}

// WithoutFilter returns a copy of r with the filter removed and other parameters kept.
func (r Request) WithoutFilter() Request {
	r.filter = nil
	return r
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Filter returns the metadata predicate (nil means unfiltered).
func (r *Request) Filter() filter.Filter { return r.filter }

// TopK returns the maximum number of accepted results.
func (r *Request) TopK() int { return r.topK }

// MinScore returns the minimum similarity threshold.
func (r *Request) MinScore() float64 { return r.minScore }

// SearchK returns the number of nearest neighbours requested from the index.
func (r *Request) SearchK() int { return r.searchK }

// CacheKey derives the retrieval cache key from (query, filter, topK, minScore, searchK).
func (r *Request) CacheKey() string {
	var b strings.Builder
	b.WriteString(text.Normalize(r.query))
	b.WriteString("|f=")
	b.WriteString(filter.Key(r.filter))
	b.WriteString("|k=")
	b.WriteString(strconv.Itoa(r.topK))
	b.WriteString("|s=")
	b.WriteString(strconv.FormatFloat(r.minScore, 'g', -1, 64))
	b.WriteString("|n=")
	b.WriteString(strconv.Itoa(r.searchK))
	return b.String()
}
