package classify

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/cache"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/domain/text"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
)

// DefaultCacheCapacity bounds the classification cache.
const DefaultCacheCapacity = 100

// Rule thresholds and confidences.
const (
	greetingMaxLen       = 8
	questionMinLen       = 8
	lengthFallbackMinLen = 15

	greetingConfidence  = 0.95
	keywordConfidence   = 0.96
	technicalConfidence = 0.9
	questionConfidence  = 0.8
	requestConfidence   = 0.75
	lengthConfidence    = 0.65
	defaultConfidence   = 0.6
)

// keywordRoute is one flattened keyword -> route entry.
type keywordRoute struct {
	keyword string
	name    string
	filter  filter.Filter
}

// Classifier maps raw query text to a Classification. Pattern tables are built
// once in New and never mutated; only the bounded cache changes afterwards.
type Classifier struct {
	keywords []keywordRoute
	cache    *cache.Cache[string, Classification]
	logger   *zap.Logger
}

// New creates a classifier over routes. Keywords are matched longest first.
func New(routes []RouteDef, c *cache.Cache[string, Classification], logger *zap.Logger) (*Classifier, error) {
	if c == nil {
		var err error
		c, err = cache.New[string, Classification]("classification", DefaultCacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("classification cache: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]string)
	var flat []keywordRoute
	for _, r := range routes {
		if r.Name == "" {
			return nil, fmt.Errorf("route without name")
		}
		for _, kw := range r.Keywords {
			kw = text.Normalize(kw)
			if kw == "" {
				continue
			}
			if prev, dup := seen[kw]; dup {
				return nil, fmt.Errorf("keyword %q registered by both %q and %q", kw, prev, r.Name)
			}
			seen[kw] = r.Name
			flat = append(flat, keywordRoute{keyword: kw, name: r.Name, filter: r.Filter})
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(flat[i].keyword), utf8.RuneCountInString(flat[j].keyword)
		if li != lj {
			return li > lj
		}
		return flat[i].keyword < flat[j].keyword
	})

	return &Classifier{keywords: flat, cache: c, logger: logger}, nil
}

// Classify applies the fast paths in strict precedence order; the first match wins.
func (c *Classifier) Classify(query string) Classification {
	norm := text.Normalize(query)
	if cached, ok := c.cache.Get(norm); ok {
		return cached
	}

	result := c.evaluate(norm)
	c.cache.Set(norm, result)

	metrics.ClassificationsTotal.WithLabelValues(string(result.Type), string(result.Rule)).Inc()
	c.logger.Debug("Query classified",
		zap.String("type", string(result.Type)),
		zap.String("rule", string(result.Rule)),
		zap.Float64("confidence", result.Confidence),
		zap.String("route", result.RouteName),
	)
	return result
}

// CacheLen returns the number of cached classifications.
func (c *Classifier) CacheLen() int { return c.cache.Len() }

// CacheStats returns a snapshot of the classification cache.
func (c *Classifier) CacheStats() cache.Stats { return c.cache.Stats() }

// ClearCache empties the classification cache.
func (c *Classifier) ClearCache() { c.cache.Clear() }

func (c *Classifier) evaluate(norm string) Classification {
	length := utf8.RuneCountInString(norm)

	if length < greetingMaxLen || isGreeting(norm) {
		return Classification{
			Type: SimpleConversation, Confidence: greetingConfidence,
			Rule: RuleGreeting, Reason: "greeting or acknowledgement",
		}
	}

	for _, kr := range c.keywords {
		if strings.Contains(norm, kr.keyword) {
			return Classification{
				Type: Route, Confidence: keywordConfidence, Rule: RuleKeyword,
				Reason:    fmt.Sprintf("matched keyword %q", kr.keyword),
				RouteName: kr.name, Route: kr.filter,
			}
		}
	}

	for _, word := range strings.Fields(norm) {
		word = strings.TrimFunc(word, isEdgePunct)
		if _, ok := technicalVocabulary[word]; ok {
			return Classification{
				Type: KnowledgeBase, Confidence: technicalConfidence, Rule: RuleTechnical,
				Reason: fmt.Sprintf("technical term %q", word),
			}
		}
	}

	if length > questionMinLen {
		for _, re := range questionPatterns {
			if re.MatchString(norm) {
				return Classification{
					Type: IntelligentResponse, Confidence: questionConfidence,
					Rule: RuleQuestion, Reason: "question pattern",
				}
			}
		}
		for _, re := range requestPatterns {
			if re.MatchString(norm) {
				return Classification{
					Type: IntelligentResponse, Confidence: requestConfidence,
					Rule: RuleRequest, Reason: "request pattern",
				}
			}
		}
	}

	if length > lengthFallbackMinLen {
		return Classification{
			Type: IntelligentResponse, Confidence: lengthConfidence,
			Rule: RuleLength, Reason: "long free-form query",
		}
	}

	return Classification{
		Type: SimpleConversation, Confidence: defaultConfidence,
		Rule: RuleDefault, Reason: "no rule matched",
	}
}

func isGreeting(norm string) bool {
	_, ok := greetings[strings.TrimRightFunc(norm, isEdgePunct)]
	return ok
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
