package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(f1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	sub := filepath.Join(dir, "sub", "deeper")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(filepath.Join(dir, "sub"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("directory: got %d bytes, want 3", got)
	}

	got, err = DiskUsageBytes(f1, filepath.Join(dir, "missing"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("missing and empty paths should be skipped: got %d", got)
	}
}

func TestFootprintPaths(t *testing.T) {
	paths := FootprintPaths("/data/store.idx", "/data/catalog.db")
	want := []string{
		"/data/store.idx", "/data/store.meta", "/data/store.contents",
		"/data/catalog.db", "/data/catalog.db-wal", "/data/catalog.db-shm",
	}
	if len(paths) != len(want) {
		t.Fatalf("got %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
	if len(FootprintPaths("", "")) != 0 {
		t.Error("empty inputs should yield no paths")
	}
}
