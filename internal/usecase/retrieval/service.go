// Package retrieval orchestrates embedding and vector storage: index a
// document's chunks, search by query, delete by document.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dravis-labs/corpusd/internal/domain"
	"github.com/dravis-labs/corpusd/internal/logger"
)

// DefaultTopK is used when the caller does not specify a result limit.
const DefaultTopK = 5

// Service is the retrieval core over one active collection backend.
type Service struct {
	col   Collection
	embed Embedder
	model string
}

// New creates a retrieval service bound to its backend for the process
// lifetime.
func New(col Collection, embed Embedder, model string) *Service {
	return &Service{col: col, embed: embed, model: model}
}

// AddDocument embeds all chunks in one batch call and writes them to
// the collection in one add. Nothing is committed when embedding fails.
func (s *Service) AddDocument(ctx context.Context, docID string, chunks []string, filename, fileType string) error {
	if docID == "" {
		return fmt.Errorf("%w: doc id is empty", domain.ErrInvalidInput)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks to index", domain.ErrInvalidInput)
	}

	result, err := s.embed.BatchEmbed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(result.Embeddings) != len(chunks) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingProviderError, len(result.Embeddings), len(chunks))
	}

	entries := make([]domain.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = domain.Entry{
			ID:      domain.EntryID(docID, i),
			Content: chunk,
			Meta: domain.ChunkMeta{
				DocID:      docID,
				Filename:   filename,
				ChunkIndex: i,
				FileType:   fileType,
			},
			Vector: result.Embeddings[i],
		}
	}

	if err := s.col.Add(ctx, entries); err != nil {
		return fmt.Errorf("index chunks for %s: %w", docID, err)
	}

	logger.FromContext(ctx).Info("Document indexed",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
		zap.Int("tokens", result.TotalTokens))
	return nil
}

// Search embeds the query and returns up to topK ranked hits. Failures
// propagate; the transport layer decides whether to degrade.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]domain.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	result, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.col.Query(ctx, result.Embedding, topK, "")
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	return hits, nil
}

// DeleteDocument removes all chunks owned by a document. Returns false
// when the document holds no chunks.
//
// Resolve-then-delete is not atomic against a concurrent add for the
// same doc id; callers serialize those externally.
func (s *Service) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	if docID == "" {
		return false, fmt.Errorf("%w: doc id is empty", domain.ErrInvalidInput)
	}

	ids, err := s.col.IDsByDoc(ctx, docID)
	if err != nil {
		return false, fmt.Errorf("resolve chunks for %s: %w", docID, err)
	}
	if len(ids) == 0 {
		return false, nil
	}

	if err := s.col.Delete(ctx, ids); err != nil {
		return false, fmt.Errorf("delete chunks for %s: %w", docID, err)
	}

	logger.FromContext(ctx).Info("Document removed from index",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(ids)))
	return true, nil
}

// Stats reports the current state of the retrieval core.
func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	n, err := s.col.Count(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count chunks: %w", err)
	}
	return domain.Stats{
		TotalChunks:    n,
		EmbeddingModel: s.model,
		Persistent:     s.col.Persistent(),
	}, nil
}
