// Package registry orchestrates document ingestion: chunk the extracted
// text, index the chunks, and record the upload.
package registry

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dravis-labs/corpusd/internal/domain"
	"github.com/dravis-labs/corpusd/internal/logger"
)

// Service manages the document lifecycle around the retrieval core.
type Service struct {
	store   Store
	indexer Indexer
	chunker Chunker
	now     func() time.Time
}

// New creates a registry service.
func New(store Store, indexer Indexer, chunker Chunker) *Service {
	return &Service{store: store, indexer: indexer, chunker: chunker, now: time.Now}
}

// Ingest chunks extracted text, indexes it, and records the document.
// sizeBytes is the size of the original upload, before extraction.
func (s *Service) Ingest(ctx context.Context, filename, text string, sizeBytes int64) (domain.DocInfo, error) {
	if filename == "" {
		return domain.DocInfo{}, fmt.Errorf("%w: filename is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return domain.DocInfo{}, fmt.Errorf("%w: document has no text", domain.ErrInvalidInput)
	}

	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return domain.DocInfo{}, fmt.Errorf("%w: document produced no chunks", domain.ErrInvalidInput)
	}

	uploadedAt := s.now()
	docID := deriveDocID(filename, uploadedAt)
	fileType := strings.TrimPrefix(filepath.Ext(filename), ".")

	if err := s.indexer.AddDocument(ctx, docID, chunks, filename, fileType); err != nil {
		return domain.DocInfo{}, fmt.Errorf("index document %s: %w", filename, err)
	}

	info := domain.DocInfo{
		DocID:      docID,
		Filename:   filename,
		FileType:   fileType,
		ChunkCount: len(chunks),
		TextLength: len(text),
		SizeBytes:  sizeBytes,
		UploadedAt: uploadedAt.UnixMilli(),
	}

	if err := s.store.Save(ctx, info); err != nil {
		// keep the index and registry consistent: a document without a
		// record is unreachable through the API
		if _, delErr := s.indexer.DeleteDocument(ctx, docID); delErr != nil {
			logger.FromContext(ctx).Error("Failed to roll back index after record save failure",
				zap.String("doc_id", docID), zap.Error(delErr))
		}
		return domain.DocInfo{}, fmt.Errorf("save document record %s: %w", docID, err)
	}

	return info, nil
}

// List returns all document records.
func (s *Service) List(ctx context.Context) ([]domain.DocInfo, error) {
	infos, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return infos, nil
}

// Get returns one document record.
func (s *Service) Get(ctx context.Context, docID string) (domain.DocInfo, error) {
	info, err := s.store.Get(ctx, docID)
	if err != nil {
		return domain.DocInfo{}, fmt.Errorf("get document %s: %w", docID, err)
	}
	return info, nil
}

// Delete removes a document's chunks from the index and its record.
func (s *Service) Delete(ctx context.Context, docID string) error {
	if _, err := s.store.Get(ctx, docID); err != nil {
		return fmt.Errorf("get document %s: %w", docID, err)
	}

	// chunks may already be gone after an in-memory fallback restart
	if _, err := s.indexer.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("unindex document %s: %w", docID, err)
	}

	if err := s.store.Delete(ctx, docID); err != nil {
		return fmt.Errorf("delete document record %s: %w", docID, err)
	}
	return nil
}

// deriveDocID yields the first 10 hex chars of md5(filename + upload time).
func deriveDocID(filename string, uploadedAt time.Time) string {
	h := md5.Sum([]byte(filename + strconv.FormatInt(uploadedAt.UnixNano(), 10)))
	return hex.EncodeToString(h[:])[:10]
}
