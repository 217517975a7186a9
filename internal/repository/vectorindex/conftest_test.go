package vectorindex

import (
	"context"
	"testing"

	"github.com/kailas-cloud/catalogqa/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn  func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	indexSizeFn  func(ctx context.Context, name string) (int, error)
	indexExists  bool
	created      *db.IndexDefinition
	createErr    error
	written      []db.HashSetItem
	hsetCalls    int
	lastKNNQuery *db.KNNQuery
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastKNNQuery = q
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) IndexSize(ctx context.Context, name string) (int, error) {
	if m.indexSizeFn != nil {
		return m.indexSizeFn(ctx, name)
	}
	return 0, nil
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.indexExists, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = def
	return m.createErr
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	m.hsetCalls++
	m.written = append(m.written, items...)
	return nil
}

func newTestRepo(t *testing.T, dim int) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, Config{Dim: dim}), ms
}
