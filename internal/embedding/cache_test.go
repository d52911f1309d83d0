package embedding

import (
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len=%d", c.Len())
	}
}

func TestEmbeddingCache_GetRefreshesRecency(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	_, _ = c.Get("a")
	c.Set("c", []float32{3}) // evicts b, not a
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive after recent Get")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

func TestEmbeddingCache_Disabled(t *testing.T) {
	c := NewEmbeddingCache(0)
	c.Set("a", []float32{1})
	if _, ok := c.Get("a"); ok {
		t.Error("zero capacity cache should not store")
	}
}

func TestEmbeddingCache_CopiesVectors(t *testing.T) {
	c := NewEmbeddingCache(4)
	in := []float32{1, 2}
	c.Set("a", in)
	in[0] = 99

	got, _ := c.Get("a")
	if got[0] != 1 {
		t.Fatalf("cache aliased the caller's slice: %v", got)
	}
	got[1] = 42
	again, _ := c.Get("a")
	if again[1] != 2 {
		t.Errorf("cache returned its internal slice: %v", again)
	}
}

func TestEmbeddingCache_Stats(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("missing")
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 2, 1", hits, misses)
	}
}
