package domain

import "context"

// Neighbor is a raw hit from the vector index: a corpus position and its similarity.
type Neighbor struct {
	ID    int
	Score float64
}

// VectorIndex is the nearest-neighbour search over the preloaded catalog corpus.
// Results are ordered by descending score.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
	Size() int
}

// Document is a single catalog passage with its metadata record.
type Document struct {
	ID       string
	Source   string
	Text     string
	Metadata map[string]any
}

// Catalog gives positional access to the corpus metadata. Positions match VectorIndex IDs.
type Catalog interface {
	Len() int
	Document(i int) (Document, bool)
}
