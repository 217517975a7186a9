// Package catalog loads the preloaded product catalog: passages, their
// metadata records and, optionally, their precomputed vectors.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/catalogqa/internal/domain"
)

// Catalog is the immutable, positionally indexed corpus.
type Catalog struct {
	docs    []domain.Document
	vectors [][]float32
	dim     int
}

var _ domain.Catalog = (*Catalog)(nil)

// Load reads a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f fileDTO
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	docs := make([]domain.Document, len(f.Documents))
	vectors := make([][]float32, len(f.Documents))
	for i, d := range f.Documents {
		docs[i] = domain.Document{ID: d.ID, Source: d.Source, Text: d.Text, Metadata: d.Metadata}
		vectors[i] = d.Vector
	}
	return build(docs, vectors, f.Dimensions)
}

// New builds a catalog from documents already in memory. vectors may be nil;
// otherwise it must hold one vector per document. Vectors are all-or-nothing:
// either every document carries one of the same dimension, or none does.
func New(docs []domain.Document, vectors [][]float32) (*Catalog, error) {
	if vectors != nil && len(vectors) != len(docs) {
		return nil, fmt.Errorf("%w: %d vectors for %d documents", domain.ErrCorpusMismatch, len(vectors), len(docs))
	}
	return build(docs, vectors, 0)
}

func build(docs []domain.Document, vectors [][]float32, dim int) (*Catalog, error) {
	c := &Catalog{docs: make([]domain.Document, 0, len(docs)), dim: dim}
	seen := make(map[string]int, len(docs))
	withVectors := 0

	for i, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("document %d: id is required", i)
		}
		if prev, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("document %d: duplicate id %q (first at %d)", i, d.ID, prev)
		}
		seen[d.ID] = i

		md := normalizeMetadata(d.Metadata)
		if _, ok := md["document_id"]; !ok {
			md["document_id"] = d.ID
		}
		d.Metadata = md
		c.docs = append(c.docs, d)

		if i >= len(vectors) || len(vectors[i]) == 0 {
			continue
		}
		withVectors++
		if c.dim == 0 {
			c.dim = len(vectors[i])
		}
		if len(vectors[i]) != c.dim {
			return nil, fmt.Errorf("%w: document %q has %d dims, want %d",
				domain.ErrVectorDimMismatch, d.ID, len(vectors[i]), c.dim)
		}
	}

	switch withVectors {
	case 0:
	case len(docs):
		c.vectors = vectors
	default:
		return nil, fmt.Errorf("%w: %d of %d documents carry vectors",
			domain.ErrCorpusMismatch, withVectors, len(docs))
	}

	return c, nil
}

// Len returns the corpus size.
func (c *Catalog) Len() int { return len(c.docs) }

// Document returns the passage at position i.
func (c *Catalog) Document(i int) (domain.Document, bool) {
	if i < 0 || i >= len(c.docs) {
		return domain.Document{}, false
	}
	return c.docs[i], true
}

// Vectors returns the precomputed corpus vectors in position order, or nil
// when the file carried none.
func (c *Catalog) Vectors() [][]float32 { return c.vectors }

// Dimensions returns the vector dimension declared or observed in the file.
func (c *Catalog) Dimensions() int { return c.dim }

// normalizeMetadata flattens YAML-decoded values into the shapes filters
// compare against: strings, float64, bool and []any of those.
func normalizeMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = normalizeValue(item)
		}
		return items
	}
	return v
}
