package registry

import (
	"context"

	"github.com/dravis-labs/corpusd/internal/domain"
)

// Store persists per-document upload records.
type Store interface {
	Save(ctx context.Context, info domain.DocInfo) error
	Get(ctx context.Context, docID string) (domain.DocInfo, error)
	List(ctx context.Context) ([]domain.DocInfo, error)
	Delete(ctx context.Context, docID string) error
}

// Indexer is the retrieval core the registry hands chunks to.
type Indexer interface {
	AddDocument(ctx context.Context, docID string, chunks []string, filename, fileType string) error
	DeleteDocument(ctx context.Context, docID string) (bool, error)
}

// Chunker splits extracted text into embeddable windows.
type Chunker interface {
	Split(text string) []string
}
