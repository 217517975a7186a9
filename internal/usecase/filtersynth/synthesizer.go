package filtersynth

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/domain/text"
)

// DefaultCacheCapacity bounds the filter cache.
const DefaultCacheCapacity = 100

type synonymMatcher struct {
	category string
	terms    []string
	matchers []func(string) bool
}

// Synthesizer maps raw query text to a metadata filter, or nil when nothing applies.
type Synthesizer struct {
	synonyms []synonymMatcher
	expand   map[string][]string
	cache    *cache.Cache[string, filter.Filter]
	logger   *zap.Logger
}

// New creates a synthesizer. A nil cache gets a default one of DefaultCacheCapacity.
func New(c *cache.Cache[string, filter.Filter], logger *zap.Logger) (*Synthesizer, error) {
	if c == nil {
		var err error
		c, err = cache.New[string, filter.Filter]("filter", DefaultCacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("filter cache: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Synthesizer{
		expand: make(map[string][]string, len(synonymTable)),
		cache:  c,
		logger: logger,
	}
	for _, entry := range synonymTable {
		m := synonymMatcher{category: entry.category}
		for _, syn := range entry.synonyms {
			syn = text.Normalize(syn)
			m.terms = append(m.terms, syn)
			m.matchers = append(m.matchers, synonymMatcherFor(syn))
		}
		s.synonyms = append(s.synonyms, m)
		s.expand[entry.category] = m.terms
	}
	return s, nil
}

// synonymMatcherFor uses word boundaries for single words and substring search for phrases.
func synonymMatcherFor(syn string) func(string) bool {
	if strings.Contains(syn, " ") {
		return func(s string) bool { return strings.Contains(s, syn) }
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(syn) + `\b`)
	return re.MatchString
}

// Synthesize returns the filter for query. Results are cached by normalized text.
func (s *Synthesizer) Synthesize(query string) filter.Filter {
	norm := text.Normalize(query)
	if cached, ok := s.cache.Get(norm); ok {
		return cached
	}

	f, reason := s.evaluate(norm)
	s.cache.Set(norm, f)

	s.logger.Debug("Filter synthesized",
		zap.String("reason", reason),
		zap.Bool("filtered", f != nil),
	)
	return f
}

// CacheLen returns the number of cached filters.
func (s *Synthesizer) CacheLen() int { return s.cache.Len() }

// CacheStats returns a snapshot of the filter cache.
func (s *Synthesizer) CacheStats() cache.Stats { return s.cache.Stats() }

// ClearCache empties the filter cache.
func (s *Synthesizer) ClearCache() { s.cache.Clear() }

func (s *Synthesizer) evaluate(norm string) (filter.Filter, string) {
	if caseStudyPattern.MatchString(norm) {
		return nil, "case study"
	}

	for _, p := range productPatterns {
		if p.re.MatchString(norm) {
			return ProductFilter(p.product), "product " + p.product
		}
	}

	for _, p := range categoryPatterns {
		if p.re.MatchString(norm) {
			return s.CategoryFilter(p.category), "category " + p.category
		}
	}

	for _, entry := range s.synonyms {
		for _, match := range entry.matchers {
			if match(norm) {
				return s.CategoryFilter(entry.category), "synonym of " + entry.category
			}
		}
	}

	return nil, "no match"
}

// ProductFilter matches documents about product, documents for all products,
// and documents referencing product.
func ProductFilter(product string) filter.Filter {
	return filter.NewOr(
		filter.NewEquals("product", product),
		filter.NewEquals("product", "all"),
		filter.NewIn("referenced_products", product),
	)
}

// CategoryFilter expands category into itself plus its synonyms and emits one
// clause per (term, field), de-duplicated, wrapped in a disjunction. It returns
// nil when no clause is produced.
func (s *Synthesizer) CategoryFilter(category string) filter.Filter {
	category = text.Normalize(category)
	if category == "" {
		return nil
	}
	terms := append([]string{category}, s.expand[category]...)

	seen := make(map[string]struct{})
	var clauses []filter.Filter
	add := func(f filter.Filter) {
		k := filter.Key(f)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		clauses = append(clauses, f)
	}

	for _, term := range terms {
		for _, field := range equalityFields {
			add(filter.NewEquals(field, term))
		}
		for _, field := range membershipFields {
			add(filter.NewIn(field, term))
		}
	}

	if len(clauses) == 0 {
		return nil
	}
	return filter.NewOr(clauses...)
}
