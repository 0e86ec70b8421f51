package registry

import (
	"context"
	"strings"

	"github.com/dravis-labs/corpusd/internal/domain"
)

// mockStore implements Store with overridable functions.
type mockStore struct {
	saveFn   func(ctx context.Context, info domain.DocInfo) error
	getFn    func(ctx context.Context, docID string) (domain.DocInfo, error)
	listFn   func(ctx context.Context) ([]domain.DocInfo, error)
	deleteFn func(ctx context.Context, docID string) error
}

func (m *mockStore) Save(ctx context.Context, info domain.DocInfo) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, info)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, docID string) (domain.DocInfo, error) {
	if m.getFn != nil {
		return m.getFn(ctx, docID)
	}
	return domain.DocInfo{DocID: docID}, nil
}

func (m *mockStore) List(ctx context.Context) ([]domain.DocInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) Delete(ctx context.Context, docID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, docID)
	}
	return nil
}

// mockIndexer implements Indexer with overridable functions.
type mockIndexer struct {
	addFn    func(ctx context.Context, docID string, chunks []string, filename, fileType string) error
	deleteFn func(ctx context.Context, docID string) (bool, error)
}

func (m *mockIndexer) AddDocument(ctx context.Context, docID string, chunks []string, filename, fileType string) error {
	if m.addFn != nil {
		return m.addFn(ctx, docID, chunks, filename, fileType)
	}
	return nil
}

func (m *mockIndexer) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, docID)
	}
	return true, nil
}

// wordChunker splits on whitespace, one word per chunk.
type wordChunker struct{}

func (wordChunker) Split(text string) []string {
	return strings.Fields(text)
}
