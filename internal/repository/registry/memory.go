package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dravis-labs/corpusd/internal/domain"
)

// Memory is the registry used when the service runs without a
// persistent store. Records are lost on restart.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]domain.DocInfo
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]domain.DocInfo)}
}

// Save writes the document record.
func (m *Memory) Save(ctx context.Context, info domain.DocInfo) error {
	if info.DocID == "" {
		return fmt.Errorf("%w: doc id is empty", domain.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[info.DocID] = info
	return nil
}

// Get returns a document record by id.
func (m *Memory) Get(ctx context.Context, docID string) (domain.DocInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.docs[docID]
	if !ok {
		return domain.DocInfo{}, domain.ErrDocumentNotFound
	}
	return info, nil
}

// List returns all document records ordered by upload time, then id.
func (m *Memory) List(ctx context.Context) ([]domain.DocInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]domain.DocInfo, 0, len(m.docs))
	for _, info := range m.docs {
		infos = append(infos, info)
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
func (m *Memory) Delete(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[docID]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, docID)
	return nil
}
