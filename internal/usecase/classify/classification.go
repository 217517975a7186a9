package classify

import "github.com/kailas-cloud/catalogqa/internal/domain/search/filter"

// Type is the categorical outcome of query classification.
type Type string

const (
	// SimpleConversation is small talk that needs no catalog lookup.
	SimpleConversation Type = "simple_conversation"
	// Route is a keyword-routed query carrying a predetermined filter.
	Route Type = "route"
	// KnowledgeBase is a query mentioning catalog vocabulary.
	KnowledgeBase Type = "knowledge_base"
	// IntelligentResponse is a free-form question answered with retrieval when possible.
	IntelligentResponse Type = "intelligent_response"
)

// Rule names the fast path that produced a classification.
type Rule string

// Classification rules in precedence order.
const (
	RuleGreeting  Rule = "greeting"
	RuleKeyword   Rule = "keyword_route"
	RuleTechnical Rule = "technical_keyword"
	RuleQuestion  Rule = "question_pattern"
	RuleRequest   Rule = "request_pattern"
	RuleLength    Rule = "length"
	RuleDefault   Rule = "default"
)

// Classification is the classifier's judgement about how a query should be handled.
// It is immutable once returned.
type Classification struct {
	Type       Type          `json:"type"`
	Confidence float64       `json:"confidence"`
	Reason     string        `json:"reason"`
	Rule       Rule          `json:"rule"`
	RouteName  string        `json:"route_name,omitempty"`
	Route      filter.Filter `json:"-"`
}

// ShouldUseRAG reports whether retrieval is warranted: routed queries always,
// knowledge-base queries only above 0.65 confidence.
func ShouldUseRAG(c Classification) bool {
	switch c.Type {
	case Route:
		return true
	case KnowledgeBase:
		return c.Confidence > 0.65
	default:
		return false
	}
}

// ShouldUseIntelligentResponse reports whether the query goes through the answer pipeline.
func ShouldUseIntelligentResponse(c Classification) bool {
	switch c.Type {
	case Route, KnowledgeBase, IntelligentResponse:
		return true
	default:
		return false
	}
}
