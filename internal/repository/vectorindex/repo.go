// Package vectorindex serves the catalog corpus vectors from a Redis FT index.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kailas-cloud/catalogqa/internal/db"
	"github.com/kailas-cloud/catalogqa/internal/domain"
)

// Defaults for the index layout.
const (
	DefaultIndexName = "catalogqa:idx"
	DefaultPrefix    = "catalogqa:doc:"

	vectorField   = "vector"
	positionField = "position"
	docIDField    = "doc_id"

	seedBatchSize = 500
)

// store is the consumer interface for index operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexSize(ctx context.Context, name string) (int, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
}

// Config describes where the corpus lives in Redis.
type Config struct {
	IndexName string
	Prefix    string
	Dim       int
}

// Repo implements domain.VectorIndex over a Redis FT index whose hash keys end
// in the corpus position.
type Repo struct {
	store     store
	indexName string
	prefix    string
	dim       int
	size      atomic.Int64
}

var _ domain.VectorIndex = (*Repo)(nil)

// New creates an index repository. Call Refresh before serving queries.
func New(s store, cfg Config) *Repo {
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Dim <= 0 {
		cfg.Dim = domain.DefaultVectorDim
	}
	return &Repo{store: s, indexName: cfg.IndexName, prefix: cfg.Prefix, dim: cfg.Dim}
}

// Refresh reads the corpus size from the index. The size is fixed at load time.
func (r *Repo) Refresh(ctx context.Context) error {
	n, err := r.store.IndexSize(ctx, r.indexName)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("%w: index %s not found", domain.ErrIndexUnavailable, r.indexName)
		}
		return fmt.Errorf("index size %s: %w", r.indexName, err)
	}
	r.size.Store(int64(n))
	return nil
}

// Size returns the number of indexed corpus entries.
func (r *Repo) Size() int { return int(r.size.Load()) }

// Search returns up to k corpus positions nearest to vector, best first.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if len(vector) != r.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vector), r.dim)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		VectorField:  vectorField,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{positionField, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.indexName, err)
	}

	out := make([]domain.Neighbor, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		pos, ok := r.position(e)
		if !ok {
			continue
		}
		out = append(out, domain.Neighbor{ID: pos, Score: e.Score})
	}
	return out, nil
}

// position prefers the stored position field and falls back to the key suffix.
func (r *Repo) position(e db.SearchEntry) (int, bool) {
	if v, ok := e.Fields[positionField]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	suffix, ok := strings.CutPrefix(e.Key, r.prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Entry is one precomputed corpus vector to load into the index.
type Entry struct {
	Position int
	DocID    string
	Vector   []float32
}

// Seed creates the index when missing and writes the precomputed vectors.
// Vectors themselves are produced by the offline ingestion job.
func (r *Repo) Seed(ctx context.Context, entries []Entry) error {
	if err := r.ensureIndex(ctx); err != nil {
		return err
	}

	batch := make([]db.HashSetItem, 0, seedBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.store.HSetMulti(ctx, batch); err != nil {
			return fmt.Errorf("write vectors: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, e := range entries {
		if len(e.Vector) != r.dim {
			return fmt.Errorf("%w: entry %d has %d dims, want %d",
				domain.ErrVectorDimMismatch, e.Position, len(e.Vector), r.dim)
		}
		batch = append(batch, db.HashSetItem{
			Key: r.prefix + strconv.Itoa(e.Position),
			Fields: map[string]string{
				positionField: strconv.Itoa(e.Position),
				docIDField:    e.DocID,
				vectorField:   db.EncodeVector(e.Vector),
			},
		})
		if len(batch) == seedBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	r.size.Store(int64(len(entries)))
	return nil
}

func (r *Repo) ensureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.indexName).
		Prefix(r.prefix).
		Numeric(positionField).
		Tag(docIDField).
		VectorHNSW(vectorField, r.dim, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}
