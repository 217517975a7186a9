package result

import "github.com/kailas-cloud/catalogqa/internal/domain"

// Result is a single accepted search hit.
type Result struct {
	position int
	score    float64
	doc      domain.Document
}

// New creates a search result for the corpus entry at position.
func New(position int, score float64, doc domain.Document) Result {
	return Result{position: position, score: score, doc: doc}
}

// Position returns the corpus position reported by the vector index.
func (r *Result) Position() int { return r.position }

// ID returns the catalog document identifier.
func (r *Result) ID() string { return r.doc.ID }

// Score returns the similarity score.
func (r *Result) Score() float64 { return r.score }

// Source returns the document source label.
func (r *Result) Source() string { return r.doc.Source }

// Text returns the passage text.
func (r *Result) Text() string { return r.doc.Text }

// Metadata returns the document metadata record.
func (r *Result) Metadata() map[string]any { return r.doc.Metadata }
