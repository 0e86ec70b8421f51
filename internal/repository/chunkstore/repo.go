// Package chunkstore is the persistent vector collection backed by a
// db.Store with an FT vector index over chunk hashes.
package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dravis-labs/corpusd/internal/db"
	"github.com/dravis-labs/corpusd/internal/domain"
)

const (
	fieldContent = "__content"
	fieldVector  = "__vector"
)

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) error
	CreateIndex(ctx context.Context, def db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index string, tagFilters map[string]string, returnFields []string, limit int) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index string, tagFilters map[string]string) (int, error)
}

// Config holds the vector index parameters.
type Config struct {
	Dim         int
	M           int
	EFConstruct int
}

// Collection implements usecase/retrieval.Collection on top of a
// persistent store.
type Collection struct {
	store store
	cfg   Config
}

// New creates a persistent chunk collection.
func New(s store, cfg Config) *Collection {
	return &Collection{store: s, cfg: cfg}
}

// Persistent reports whether the collection survives restarts.
func (c *Collection) Persistent() bool { return true }

// EnsureIndex creates the chunk vector index if it does not exist yet.
func (c *Collection) EnsureIndex(ctx context.Context) error {
	exists, err := c.store.IndexExists(ctx, indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := db.IndexDefinition{
		Name:     indexName(),
		Prefixes: []string{keyPrefix()},
		Fields: []db.IndexField{
			{Name: "doc_id", Type: db.IndexFieldTag},
			{Name: "filename", Type: db.IndexFieldTag},
			{Name: "file_type", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         c.cfg.Dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           c.cfg.M,
				VectorEFConstruct: c.cfg.EFConstruct,
			},
		},
	}

	if err := c.store.CreateIndex(ctx, def); err != nil {
		// concurrent startup of another replica
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Add persists a batch of entries in one pipelined write. A batch whose
// doc_id already holds chunks is rejected with ErrDuplicateID.
func (c *Collection) Add(ctx context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docIDs := make(map[string]struct{})
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry id is empty", domain.ErrInvalidInput)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %s has no vector", domain.ErrInvalidInput, e.ID)
		}
		if c.cfg.Dim > 0 && len(e.Vector) != c.cfg.Dim {
			return fmt.Errorf("%w: entry %s has dim %d, index has %d",
				domain.ErrVectorDimMismatch, e.ID, len(e.Vector), c.cfg.Dim)
		}
		docIDs[e.Meta.DocID] = struct{}{}
	}

	for docID := range docIDs {
		n, err := c.store.SearchCount(ctx, indexName(), map[string]string{"doc_id": docID})
		if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("check doc %s: %w", docID, err)
		}
		if n > 0 {
			return fmt.Errorf("%w: doc %s already stored", domain.ErrDuplicateID, docID)
		}
	}

	items := make([]db.HashSetItem, len(entries))
	for i, e := range entries {
		fields := e.Meta.Map()
		fields[fieldContent] = e.Content
		fields[fieldVector] = string(db.VectorToBytes(e.Vector))
		items[i] = db.HashSetItem{Key: chunkKey(e.ID), Fields: fields}
	}

	if err := c.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

// Query returns the k nearest chunks by cosine similarity, optionally
// restricted to a single document.
func (c *Collection) Query(ctx context.Context, vector []float32, k int, docID string) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}
	if c.cfg.Dim > 0 && len(vector) != c.cfg.Dim {
		return nil, fmt.Errorf("%w: query has dim %d, index has %d",
			domain.ErrVectorDimMismatch, len(vector), c.cfg.Dim)
	}

	q := db.KNNQuery{
		IndexName:    indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldContent, "doc_id", "filename", "chunk_index", "file_type"},
	}
	if docID != "" {
		q.TagFilters = map[string]string{"doc_id": docID}
	}

	result, err := c.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	hits := make([]domain.Hit, 0, len(result.Entries))
	for _, e := range result.Entries {
		hits = append(hits, domain.Hit{
			Content:  e.Fields[fieldContent],
			Meta:     metaFromFields(e.Fields),
			Score:    e.Score,
			Distance: 1 - e.Score,
		})
	}
	return hits, nil
}

// IDsByDoc returns the entry ids of all chunks belonging to a document.
func (c *Collection) IDsByDoc(ctx context.Context, docID string) ([]string, error) {
	result, err := c.store.SearchList(ctx, indexName(),
		map[string]string{"doc_id": docID}, []string{"doc_id"}, 0)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list chunks for %s: %w", docID, err)
	}

	ids := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		ids = append(ids, strings.TrimPrefix(e.Key, keyPrefix()))
	}
	return ids, nil
}

// Delete removes chunks by entry id in one pipelined delete.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = chunkKey(id)
	}
	if err := c.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// Count returns the number of indexed chunks.
func (c *Collection) Count(ctx context.Context) (int, error) {
	n, err := c.store.SearchCount(ctx, indexName(), nil)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func keyPrefix() string {
	return domain.KeyPrefix + "chunk:"
}

func chunkKey(id string) string {
	return keyPrefix() + id
}

func indexName() string {
	return domain.KeyPrefix + "chunks:idx"
}

func metaFromFields(fields map[string]string) domain.ChunkMeta {
	idx, _ := strconv.Atoi(fields["chunk_index"])
	return domain.ChunkMeta{
		DocID:      fields["doc_id"],
		Filename:   fields["filename"],
		ChunkIndex: idx,
		FileType:   fields["file_type"],
	}
}
