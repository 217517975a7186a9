package catalogqa

import (
	"context"

	"github.com/kailas-cloud/catalogqa/internal/domain"
)

// Embedder converts query text to a vector comparable with the corpus vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Completer generates answer text from a system instruction and a user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// StreamingCompleter is optional. When the Completer also implements it,
// AskStream forwards tokens as they arrive; otherwise the whole answer is
// delivered as one token.
type StreamingCompleter interface {
	Stream(ctx context.Context, system, user string, onToken func(token string)) (string, error)
}

// HealthChecker is optional. Embedders implementing it are probed by Health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // adapter
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embedding,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // adapter
	}
	return nil
}

type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, p domain.Prompt) (string, error) {
	return a.inner.Complete(ctx, p.System, p.User) //nolint:wrapcheck // adapter
}

func (a *completerAdapter) Stream(ctx context.Context, p domain.Prompt, onToken domain.TokenFunc) (string, error) {
	if s, ok := a.inner.(StreamingCompleter); ok {
		return s.Stream(ctx, p.System, p.User, onToken) //nolint:wrapcheck // adapter
	}
	out, err := a.inner.Complete(ctx, p.System, p.User)
	if err != nil {
		return "", err //nolint:wrapcheck // adapter
	}
	if out != "" {
		onToken(out)
	}
	return out, nil
}
