package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
)

const sampleCatalog = `
dimensions: 2
documents:
  - id: dl380-gen12-specs
    source: HPE ProLiant DL380 Gen12 QuickSpecs
    text: The DL380 Gen12 supports up to two processors.
    metadata:
      category: specifications
      topics: [compute, servers]
      page: 3
    vector: [1, 0]
  - id: greenlake-overview
    source: HPE GreenLake overview
    text: GreenLake brings the cloud experience on premises.
    metadata:
      document_id: greenlake
      product: GreenLake
    vector: [0, 1]
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Len() != 2 || c.Dimensions() != 2 {
		t.Fatalf("Len=%d Dimensions=%d", c.Len(), c.Dimensions())
	}

	doc, ok := c.Document(0)
	if !ok || doc.Source != "HPE ProLiant DL380 Gen12 QuickSpecs" {
		t.Fatalf("Document(0) = %+v, %v", doc, ok)
	}
	if doc.Metadata["document_id"] != "dl380-gen12-specs" {
		t.Errorf("document_id not defaulted: %v", doc.Metadata["document_id"])
	}
	if doc.Metadata["page"] != float64(3) {
		t.Errorf("page = %#v, want float64(3)", doc.Metadata["page"])
	}
	if !filter.Match(filter.NewIn("topics", "servers"), doc.Metadata) {
		t.Error("topics list should match membership filter")
	}

	other, _ := c.Document(1)
	if other.Metadata["document_id"] != "greenlake" {
		t.Errorf("explicit document_id overwritten: %v", other.Metadata["document_id"])
	}

	if _, ok := c.Document(2); ok {
		t.Error("Document(2) should be out of range")
	}
	if _, ok := c.Document(-1); ok {
		t.Error("Document(-1) should be out of range")
	}
	if len(c.Vectors()) != 2 || c.Vectors()[1][1] != 1 {
		t.Errorf("unexpected vectors %v", c.Vectors())
	}
}

func TestParse_WithoutVectors(t *testing.T) {
	c, err := Parse([]byte("documents:\n  - id: a\n    text: x\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Vectors() != nil {
		t.Errorf("expected nil vectors, got %v", c.Vectors())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"missing id", "documents:\n  - text: x\n", nil},
		{"duplicate id", "documents:\n  - id: a\n  - id: a\n", nil},
		{"unknown field", "documents:\n  - id: a\n    body: x\n", nil},
		{"dim mismatch", "dimensions: 3\ndocuments:\n  - id: a\n    vector: [1, 0]\n", domain.ErrVectorDimMismatch},
		{"partial vectors", "documents:\n  - id: a\n    vector: [1, 0]\n  - id: b\n", domain.ErrCorpusMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNew(t *testing.T) {
	docs := []domain.Document{
		{ID: "a", Text: "alpha", Metadata: map[string]any{"rank": 1}},
		{ID: "b", Text: "beta"},
	}
	c, err := New(docs, [][]float32{{1, 0, 0}, {0, 1, 0}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Dimensions() != 3 || c.Len() != 2 {
		t.Errorf("Dimensions=%d Len=%d", c.Dimensions(), c.Len())
	}
	doc, _ := c.Document(0)
	if doc.Metadata["rank"] != float64(1) || doc.Metadata["document_id"] != "a" {
		t.Errorf("metadata = %v", doc.Metadata)
	}
	if docs[0].Metadata["document_id"] != nil {
		t.Error("caller metadata must not be mutated")
	}

	if _, err := New(docs, [][]float32{{1}}); !errors.Is(err, domain.ErrCorpusMismatch) {
		t.Errorf("got %v, want ErrCorpusMismatch", err)
	}
}
