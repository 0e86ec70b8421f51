package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/dravis-labs/corpusd/internal/domain"
)

func testInfo(docID string, uploadedAt int64) domain.DocInfo {
	return domain.DocInfo{
		DocID:      docID,
		Filename:   docID + ".txt",
		FileType:   "txt",
		ChunkCount: 3,
		TextLength: 1200,
		SizeBytes:  4096,
		UploadedAt: uploadedAt,
	}
}

func TestSave_WritesFields(t *testing.T) {
	var gotKey string
	var gotFields map[string]string
	s := &mockStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey = key
			gotFields = fields
			return nil
		},
	}

	r := New(s)
	if err := r.Save(context.Background(), testInfo("abc123", 1700000000000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "corpusd:doc:abc123" {
		t.Errorf("unexpected key: %s", gotKey)
	}
	if gotFields["filename"] != "abc123.txt" || gotFields["chunk_count"] != "3" {
		t.Errorf("unexpected fields: %v", gotFields)
	}
	if gotFields["uploaded_at"] != "1700000000000" {
		t.Errorf("unexpected uploaded_at: %s", gotFields["uploaded_at"])
	}
}

func TestSave_EmptyID(t *testing.T) {
	r := New(&mockStore{})
	err := r.Save(context.Background(), domain.DocInfo{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	want := testInfo("abc123", 1700000000000)
	s := &mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != "corpusd:doc:abc123" {
				t.Errorf("unexpected key: %s", key)
			}
			return infoToFields(want), nil
		},
	}

	r := New(s)
	got, err := r.Get(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestGet_NotFound(t *testing.T) {
	r := New(&mockStore{}) // empty HGETALL result
	_, err := r.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestList_SortsByUploadTime(t *testing.T) {
	newer := testInfo("newer", 2000)
	older := testInfo("older", 1000)
	s := &mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "corpusd:doc:*" {
				t.Errorf("unexpected pattern: %s", pattern)
			}
			return []string{"corpusd:doc:newer", "corpusd:doc:older"}, nil
		},
		hgetAllMultiFn: func(_ context.Context, keys []string) ([]map[string]string, error) {
			return []map[string]string{infoToFields(newer), infoToFields(older)}, nil
		},
	}

	r := New(s)
	infos, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(infos))
	}
	if infos[0].DocID != "older" || infos[1].DocID != "newer" {
		t.Errorf("unexpected order: %v", infos)
	}
}

func TestList_SkipsVanishedKeys(t *testing.T) {
	s := &mockStore{
		scanFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"corpusd:doc:a", "corpusd:doc:b"}, nil
		},
		hgetAllMultiFn: func(_ context.Context, _ []string) ([]map[string]string, error) {
			return []map[string]string{infoToFields(testInfo("a", 1)), {}}, nil
		},
	}

	r := New(s)
	infos, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 1 || infos[0].DocID != "a" {
		t.Errorf("unexpected docs: %v", infos)
	}
}

func TestList_Empty(t *testing.T) {
	r := New(&mockStore{})
	infos, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if infos != nil {
		t.Errorf("expected nil, got %v", infos)
	}
}

func TestDelete_Success(t *testing.T) {
	deleted := false
	s := &mockStore{
		existsFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		delFn: func(_ context.Context, key string) error {
			if key != "corpusd:doc:abc123" {
				t.Errorf("unexpected key: %s", key)
			}
			deleted = true
			return nil
		},
	}

	r := New(s)
	if err := r.Delete(context.Background(), "abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("expected delete")
	}
}

func TestDelete_NotFound(t *testing.T) {
	r := New(&mockStore{})
	err := r.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

// --- in-memory variant ---

func TestMemory_CRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Save(ctx, testInfo("b", 2000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Save(ctx, testInfo("a", 1000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Filename != "a.txt" {
		t.Errorf("unexpected doc: %+v", got)
	}

	infos, err := m.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 || infos[0].DocID != "a" || infos[1].DocID != "b" {
		t.Errorf("unexpected list: %v", infos)
	}

	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Get(ctx, "a"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := m.Delete(ctx, "a"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestMemory_EmptyID(t *testing.T) {
	err := NewMemory().Save(context.Background(), domain.DocInfo{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
