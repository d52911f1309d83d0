package vector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNativeFlatL2_Search(t *testing.T) {
	idx, err := NewNativeFlatL2(2)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if err := idx.Add([][]float32{{0, 0}, {3, 4}, {1, 0}}); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len=%d", idx.Len())
	}
	dists, labels, err := idx.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	wantLabels := []int64{0, 2, 1}
	wantDists := []float32{0, 1, 25}
	for i := range wantLabels {
		if labels[i] != wantLabels[i] || dists[i] != wantDists[i] {
			t.Errorf("slot %d: label=%d dist=%v, want %d %v", i, labels[i], dists[i], wantLabels[i], wantDists[i])
		}
	}
}

func TestNativeFlatL2_SearchTiesKeepInsertionOrder(t *testing.T) {
	idx, err := NewNativeFlatL2(2)
	if err != nil {
		t.Fatal(err)
	}
	// {5,5} is farther; {1,0}, {0,1} and {-1,0} are all at distance 1 from the origin.
	if err := idx.Add([][]float32{{5, 5}, {1, 0}, {0, 1}, {-1, 0}}); err != nil {
		t.Fatal(err)
	}
	dists, labels, err := idx.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	wantLabels := []int64{1, 2, 3, 0}
	for i, want := range wantLabels {
		if labels[i] != want {
			t.Errorf("slot %d: label=%d, want %d (labels %v)", i, labels[i], want, labels)
		}
	}
	if dists[0] != 1 || dists[1] != 1 || dists[2] != 1 {
		t.Errorf("tied distances: %v", dists[:3])
	}
}

func TestNativeFlatL2_SearchPadsMissingSlots(t *testing.T) {
	idx, _ := NewNativeFlatL2(2)
	_ = idx.Add([][]float32{{1, 1}})
	_, labels, err := idx.Search([]float32{1, 1}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(labels))
	}
	if labels[0] != 0 {
		t.Errorf("slot 0 label=%d", labels[0])
	}
	for i := 1; i < 4; i++ {
		if labels[i] != -1 {
			t.Errorf("slot %d label=%d, want -1", i, labels[i])
		}
	}
}

func TestNativeFlatL2_AddAllOrNothing(t *testing.T) {
	idx, _ := NewNativeFlatL2(2)
	err := idx.Add([][]float32{{1, 1}, {1, 1, 1}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len=%d after failed add", idx.Len())
	}
}

func TestNativeFlatL2_InvalidDimension(t *testing.T) {
	if _, err := NewNativeFlatL2(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestNativeFlatL2_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "index.bin")
	idx, _ := NewNativeFlatL2(3)
	_ = idx.Add([][]float32{{1, 2, 3}, {4, 5, 6}})
	if err := idx.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := ReadNativeFlatL2(path)
	if err != nil {
		t.Fatalf("ReadNativeFlatL2: %v", err)
	}
	if loaded.Len() != 2 || loaded.Dimension() != 3 {
		t.Fatalf("loaded len=%d dim=%d", loaded.Len(), loaded.Dimension())
	}
	_, labels, _ := loaded.Search([]float32{4, 5, 6}, 1)
	if labels[0] != 1 {
		t.Errorf("nearest label=%d, want 1", labels[0])
	}
}

func TestReadNativeFlatL2_Corrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	idx, _ := NewNativeFlatL2(2)
	_ = idx.Add([][]float32{{1, 2}})
	if err := idx.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)

	truncated := filepath.Join(dir, "truncated.bin")
	_ = os.WriteFile(truncated, data[:len(data)-2], 0644)
	if _, err := ReadNativeFlatL2(truncated); err == nil {
		t.Error("expected error for truncated file")
	}

	garbage := filepath.Join(dir, "garbage.bin")
	_ = os.WriteFile(garbage, []byte("not an index at all"), 0644)
	if _, err := ReadNativeFlatL2(garbage); err == nil {
		t.Error("expected error for bad magic")
	}
}
