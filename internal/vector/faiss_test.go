//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFAISSFlatL2_SearchPadsMissingSlots(t *testing.T) {
	idx, err := NewFAISSFlatL2(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Add([][]float32{{0, 0}, {3, 4}}); err != nil {
		t.Fatal(err)
	}
	dists, labels, err := idx.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != 0 || labels[1] != 1 || dists[1] != 25 {
		t.Errorf("labels=%v dists=%v", labels, dists)
	}
	if labels[2] != -1 || labels[3] != -1 {
		t.Errorf("expected -1 padding, got %v", labels)
	}
}

func TestIndexStore_FAISSSaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.faiss")
	s, err := NewIndexStore(3, L2BackendFAISS)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, v := range vecs {
		if err := s.Add(ctx, v, meta(i, "doc"), "c"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other, err := NewIndexStore(3, L2BackendFAISS)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if err := other.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if other.Size() != 3 {
		t.Errorf("after Load size=%d, want 3", other.Size())
	}
	results, err := other.Search(ctx, []float32{0, 0, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[0].ID != 2 {
		t.Errorf("Search after Load: got %+v", results)
	}
}
