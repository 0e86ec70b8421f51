package retrieval

import (
	"context"

	"github.com/dravis-labs/corpusd/internal/domain"
)

// Collection is the vector store behind the retrieval service. The
// backend is chosen once at startup and never swapped afterwards.
type Collection interface {
	Add(ctx context.Context, entries []domain.Entry) error
	Query(ctx context.Context, vector []float32, k int, docID string) ([]domain.Hit, error)
	IDsByDoc(ctx context.Context, docID string) ([]string, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Persistent() bool
}

// Embedder vectorizes queries and chunk batches.
type Embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}
