// Package memstore is an in-memory vector collection using exact
// brute-force cosine search. It backs the service when the persistent
// store is unreachable at startup.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dravis-labs/corpusd/internal/domain"
)

// Collection holds entries in insertion order. All methods are safe
// for concurrent use.
type Collection struct {
	mu      sync.RWMutex
	entries []domain.Entry
	units   [][]float32 // unit-normalized vectors, nil for zero-norm entries
	ids     map[string]struct{}
	dim     int
}

// New creates an empty in-memory collection.
func New() *Collection {
	return &Collection{ids: make(map[string]struct{})}
}

// Persistent reports whether the collection survives restarts.
func (c *Collection) Persistent() bool { return false }

// Add appends entries to the collection. The whole batch is rejected
// if any entry duplicates an existing id or disagrees on dimension.
func (c *Collection) Add(ctx context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dim := c.dim
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry id is empty", domain.ErrInvalidInput)
		}
		if _, ok := c.ids[e.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, e.ID)
		}
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}

		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %s has no vector", domain.ErrInvalidInput, e.ID)
		}
		if dim == 0 {
			dim = len(e.Vector)
		} else if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %s has dim %d, collection has %d",
				domain.ErrVectorDimMismatch, e.ID, len(e.Vector), dim)
		}
	}

	for _, e := range entries {
		c.entries = append(c.entries, e)
		c.units = append(c.units, normalize(e.Vector))
		c.ids[e.ID] = struct{}{}
	}
	c.dim = dim
	return nil
}

// Query returns the k nearest entries by cosine similarity, optionally
// restricted to a single document. Ties keep insertion order.
func (c *Collection) Query(ctx context.Context, vector []float32, k int, docID string) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", domain.ErrInvalidInput)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dim != 0 && len(vector) != c.dim {
		return nil, fmt.Errorf("%w: query has dim %d, collection has %d",
			domain.ErrVectorDimMismatch, len(vector), c.dim)
	}

	qunit := normalize(vector)

	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, 0, len(c.entries))
	for i := range c.entries {
		score := 0.0
		if qunit != nil && c.units[i] != nil {
			score = dot(qunit, c.units[i])
		}
		if docID != "" && c.entries[i].Meta.DocID != docID {
			continue
		}
		candidates = append(candidates, scored{idx: i, score: score})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	hits := make([]domain.Hit, 0, k)
	for _, cand := range candidates[:k] {
		e := c.entries[cand.idx]
		hits = append(hits, domain.Hit{
			Content:  e.Content,
			Meta:     e.Meta,
			Score:    cand.score,
			Distance: 1 - cand.score,
		})
	}
	return hits, nil
}

// IDsByDoc returns the ids of all entries belonging to a document, in
// insertion order.
func (c *Collection) IDsByDoc(ctx context.Context, docID string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for i := range c.entries {
		if c.entries[i].Meta.DocID == docID {
			ids = append(ids, c.entries[i].ID)
		}
	}
	return ids, nil
}

// Delete removes entries by id, preserving the order of the rest.
// Unknown ids are ignored.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.entries[:0]
	keptUnits := c.units[:0]
	for i := range c.entries {
		if _, ok := drop[c.entries[i].ID]; ok {
			delete(c.ids, c.entries[i].ID)
			continue
		}
		kept = append(kept, c.entries[i])
		keptUnits = append(keptUnits, c.units[i])
	}
	c.entries = kept
	c.units = keptUnits

	if len(c.entries) == 0 {
		c.dim = 0
	}
	return nil
}

// Count returns the number of stored entries.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// normalize returns the unit vector, or nil for a zero-norm input.
// Zero-norm entries score 0 against every query.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
