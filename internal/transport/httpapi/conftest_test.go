package httpapi

import (
	"context"

	"github.com/dravis-labs/corpusd/internal/domain"
	healthuc "github.com/dravis-labs/corpusd/internal/usecase/health"
)

// mockRegistry implements Registry with overridable functions.
type mockRegistry struct {
	ingestFn func(ctx context.Context, filename, text string, sizeBytes int64) (domain.DocInfo, error)
	listFn   func(ctx context.Context) ([]domain.DocInfo, error)
	getFn    func(ctx context.Context, docID string) (domain.DocInfo, error)
	deleteFn func(ctx context.Context, docID string) error
}

func (m *mockRegistry) Ingest(ctx context.Context, filename, text string, sizeBytes int64) (domain.DocInfo, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, filename, text, sizeBytes)
	}
	return domain.DocInfo{DocID: "a1b2c3d4e5", Filename: filename}, nil
}

func (m *mockRegistry) List(ctx context.Context) ([]domain.DocInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRegistry) Get(ctx context.Context, docID string) (domain.DocInfo, error) {
	if m.getFn != nil {
		return m.getFn(ctx, docID)
	}
	return domain.DocInfo{DocID: docID}, nil
}

func (m *mockRegistry) Delete(ctx context.Context, docID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, docID)
	}
	return nil
}

// mockRetrieval implements Retrieval with overridable functions.
type mockRetrieval struct {
	searchFn func(ctx context.Context, query string, topK int) ([]domain.Hit, error)
	statsFn  func(ctx context.Context) (domain.Stats, error)
}

func (m *mockRetrieval) Search(ctx context.Context, query string, topK int) ([]domain.Hit, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, topK)
	}
	return nil, nil
}

func (m *mockRetrieval) Stats(ctx context.Context) (domain.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return domain.Stats{}, nil
}

// mockHealth implements Health with an overridable function.
type mockHealth struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealth) Check(ctx context.Context) healthuc.Report {
	if m.checkFn != nil {
		return m.checkFn(ctx)
	}
	return healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}
}
