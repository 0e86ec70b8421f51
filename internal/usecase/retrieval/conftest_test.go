package retrieval

import (
	"context"

	"github.com/dravis-labs/corpusd/internal/domain"
)

// mockCollection implements Collection with overridable functions.
type mockCollection struct {
	addFn      func(ctx context.Context, entries []domain.Entry) error
	queryFn    func(ctx context.Context, vector []float32, k int, docID string) ([]domain.Hit, error)
	idsByDocFn func(ctx context.Context, docID string) ([]string, error)
	deleteFn   func(ctx context.Context, ids []string) error
	countFn    func(ctx context.Context) (int, error)
	persistent bool
}

func (m *mockCollection) Add(ctx context.Context, entries []domain.Entry) error {
	if m.addFn != nil {
		return m.addFn(ctx, entries)
	}
	return nil
}

func (m *mockCollection) Query(ctx context.Context, vector []float32, k int, docID string) ([]domain.Hit, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, vector, k, docID)
	}
	return nil, nil
}

func (m *mockCollection) IDsByDoc(ctx context.Context, docID string) ([]string, error) {
	if m.idsByDocFn != nil {
		return m.idsByDocFn(ctx, docID)
	}
	return nil, nil
}

func (m *mockCollection) Delete(ctx context.Context, ids []string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ids)
	}
	return nil
}

func (m *mockCollection) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockCollection) Persistent() bool { return m.persistent }

// mockEmbedder implements Embedder with overridable functions.
type mockEmbedder struct {
	embedFn      func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	batchEmbedFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.batchEmbedFn != nil {
		return m.batchEmbedFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}
