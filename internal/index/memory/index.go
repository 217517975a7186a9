// Package memory is a brute-force cosine index over the preloaded catalog vectors.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/catalogqa/internal/domain"
)

// Index holds the corpus vectors in position order. It is immutable after New.
type Index struct {
	dim     int
	vectors [][]float32
	norms   []float64
}

var _ domain.VectorIndex = (*Index)(nil)

// New builds an index over vectors. Every vector must have dim components.
func New(dim int, vectors [][]float32) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dims, want %d",
				domain.ErrVectorDimMismatch, i, len(v), dim)
		}
		norms[i] = norm(v)
	}
	return &Index{dim: dim, vectors: vectors, norms: norms}, nil
}

// Size returns the number of corpus vectors.
func (x *Index) Size() int { return len(x.vectors) }

// Search scores every vector and returns the k most similar, best first.
// Ties keep corpus order.
func (x *Index) Search(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if len(vector) != x.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vector), x.dim)
	}
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qn := norm(vector)
	hits := make([]domain.Neighbor, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = domain.Neighbor{ID: i, Score: cosine(vector, v, qn, x.norms[i])}
	}
	slices.SortStableFunc(hits, func(a, b domain.Neighbor) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return hits[:min(k, len(hits))], nil
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
