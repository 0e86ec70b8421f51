// Package registry persists per-document upload records as hashes.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/dravis-labs/corpusd/internal/domain"
)

// store is the consumer interface for document records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/registry.Store on a persistent store.
type Repo struct {
	store store
}

// New creates a document registry repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save writes the document record.
func (r *Repo) Save(ctx context.Context, info domain.DocInfo) error {
	if info.DocID == "" {
		return fmt.Errorf("%w: doc id is empty", domain.ErrInvalidInput)
	}
	if err := r.store.HSet(ctx, docKey(info.DocID), infoToFields(info)); err != nil {
		return fmt.Errorf("save doc %s: %w", info.DocID, err)
	}
	return nil
}

// Get returns a document record by id.
func (r *Repo) Get(ctx context.Context, docID string) (domain.DocInfo, error) {
	fields, err := r.store.HGetAll(ctx, docKey(docID))
	if err != nil {
		return domain.DocInfo{}, fmt.Errorf("get doc %s: %w", docID, err)
	}
	// HGETALL on a missing key returns an empty map, not an error
	if len(fields) == 0 {
		return domain.DocInfo{}, domain.ErrDocumentNotFound
	}
	return infoFromFields(fields), nil
}

// List returns all document records ordered by upload time, then id.
func (r *Repo) List(ctx context.Context) ([]domain.DocInfo, error) {
	keys, err := r.store.Scan(ctx, docKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan docs: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch docs: %w", err)
	}

	infos := make([]domain.DocInfo, 0, len(maps))
	for _, fields := range maps {
		if len(fields) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		infos = append(infos, infoFromFields(fields))
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].UploadedAt != infos[j].UploadedAt {
			return infos[i].UploadedAt < infos[j].UploadedAt
		}
		return infos[i].DocID < infos[j].DocID
	})
	return infos, nil
}

// Delete removes a document record.
func (r *Repo) Delete(ctx context.Context, docID string) error {
	exists, err := r.store.Exists(ctx, docKey(docID))
	if err != nil {
		return fmt.Errorf("check doc %s: %w", docID, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}
	if err := r.store.Del(ctx, docKey(docID)); err != nil {
		return fmt.Errorf("delete doc %s: %w", docID, err)
	}
	return nil
}

func docKey(docID string) string {
	return domain.KeyPrefix + "doc:" + docID
}

func infoToFields(info domain.DocInfo) map[string]string {
	return map[string]string{
		"doc_id":      info.DocID,
		"filename":    info.Filename,
		"file_type":   info.FileType,
		"chunk_count": strconv.Itoa(info.ChunkCount),
		"text_length": strconv.Itoa(info.TextLength),
		"size_bytes":  strconv.FormatInt(info.SizeBytes, 10),
		"uploaded_at": strconv.FormatInt(info.UploadedAt, 10),
	}
}

func infoFromFields(fields map[string]string) domain.DocInfo {
	chunkCount, _ := strconv.Atoi(fields["chunk_count"])
	textLength, _ := strconv.Atoi(fields["text_length"])
	sizeBytes, _ := strconv.ParseInt(fields["size_bytes"], 10, 64)
	uploadedAt, _ := strconv.ParseInt(fields["uploaded_at"], 10, 64)
	return domain.DocInfo{
		DocID:      fields["doc_id"],
		Filename:   fields["filename"],
		FileType:   fields["file_type"],
		ChunkCount: chunkCount,
		TextLength: textLength,
		SizeBytes:  sizeBytes,
		UploadedAt: uploadedAt,
	}
}
