package retrieval

import (
	"context"

	"github.com/kailas-cloud/catalogqa/internal/domain"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex returns nearest corpus positions for a query vector, best first.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error)
}

// Catalog resolves corpus positions to documents.
type Catalog interface {
	Len() int
	Document(i int) (domain.Document, bool)
}
