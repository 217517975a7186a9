package domain

import "context"

type usageKey struct{}

// Usage collects provider token usage for a single query resolution.
// The handler puts a mutable pointer into the context before calling the service;
// collaborators add to it; the handler reads it for response headers.
type Usage struct {
	EmbeddingTokens  int
	CompletionTokens int
	EmbeddingCalled  bool
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records tokens consumed by an embedding call.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.EmbeddingCalled = true
	}
}

// AddCompletionTokens records tokens consumed by a completion call.
func (u *Usage) AddCompletionTokens(n int) {
	if u != nil {
		u.CompletionTokens += n
	}
}
