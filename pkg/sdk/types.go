package catalogqa

import (
	"time"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
	"github.com/kailas-cloud/catalogqa/internal/usecase/resolve"
)

// Document is a catalog passage. Metadata drives filtering; well-known keys
// are product, category, doc_type, tags and referenced_products.
type Document struct {
	ID       string
	Source   string
	Text     string
	Metadata map[string]any
	Vector   []float32
}

// Source is a passage cited by an answer.
type Source struct {
	ID     string
	Source string
	Score  float64
}

// Classification explains how a query was handled.
type Classification struct {
	Type       string // simple_conversation, route, knowledge_base, intelligent_response
	Rule       string
	Confidence float64
	Reason     string
	Route      string
	// RouteFilter is the route's metadata filter in JSON shape, nil without a route.
	RouteFilter any
}

// Answer is the result of Ask.
type Answer struct {
	Text           string
	Sources        []Source
	Confidence     float64
	NoResults      bool
	FallbackUsed   bool
	Extractive     bool
	Cached         bool
	Classification Classification
}

// CacheStats describes one pipeline cache.
type CacheStats struct {
	Name     string
	Hits     int64
	Misses   int64
	Size     int
	Capacity int
	TTL      time.Duration
}

func toDomainDocuments(docs []Document) ([]domain.Document, [][]float32) {
	out := make([]domain.Document, len(docs))
	var vectors [][]float32
	for i, d := range docs {
		out[i] = domain.Document{ID: d.ID, Source: d.Source, Text: d.Text, Metadata: d.Metadata}
		if len(d.Vector) > 0 {
			if vectors == nil {
				vectors = make([][]float32, len(docs))
			}
			vectors[i] = d.Vector
		}
	}
	return out, vectors
}

func classificationFromDomain(c classify.Classification) Classification {
	return Classification{
		Type:        string(c.Type),
		Rule:        string(c.Rule),
		Confidence:  c.Confidence,
		Reason:      c.Reason,
		Route:       c.RouteName,
		RouteFilter: filter.ToValue(c.Route),
	}
}

func answerFromDomain(r resolve.Result) Answer {
	a := r.Answer
	sources := make([]Source, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = Source{ID: s.ID, Source: s.Source, Score: s.Score}
	}
	return Answer{
		Text:           a.Text,
		Sources:        sources,
		Confidence:     a.Confidence,
		NoResults:      a.NoResults,
		FallbackUsed:   a.FallbackUsed,
		Extractive:     a.Extractive,
		Cached:         a.Cached,
		Classification: classificationFromDomain(r.Classification),
	}
}

func cacheStatsFromDomain(stats []cache.Stats) []CacheStats {
	out := make([]CacheStats, len(stats))
	for i, s := range stats {
		out[i] = CacheStats{
			Name: s.Name, Hits: s.Hits, Misses: s.Misses,
			Size: s.Size, Capacity: s.Capacity, TTL: s.TTL,
		}
	}
	return out
}
