package domain

import (
	"context"
	"fmt"
)

// DefaultVectorDim is the dimension of the catalog embedding model (MiniLM class, L2-normalized).
const DefaultVectorDim = 384

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies collaborator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
// Models of the e5/bge family expect a "query: " style prefix on search queries.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}

// DimensionCheckedEmbedder rejects vectors whose length differs from the index dimension.
type DimensionCheckedEmbedder struct {
	inner Embedder
	dim   int
}

// NewDimensionCheckedEmbedder wraps inner with a dimension guard. dim <= 0 disables the check.
func NewDimensionCheckedEmbedder(inner Embedder, dim int) *DimensionCheckedEmbedder {
	return &DimensionCheckedEmbedder{inner: inner, dim: dim}
}

// Embed delegates and validates the returned vector length.
func (e *DimensionCheckedEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, err //nolint:wrapcheck // pass-through decorator
	}
	if e.dim > 0 && len(result.Embedding) != e.dim {
		return EmbeddingResult{}, fmt.Errorf("%w: got %d, want %d",
			ErrVectorDimMismatch, len(result.Embedding), e.dim)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (e *DimensionCheckedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}
