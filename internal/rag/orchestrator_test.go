package rag

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/vector"
)

// axisEmbedder maps text to a 3-d vector counting the letters a, b and c.
type axisEmbedder struct {
	dims  int
	fail  bool
	calls int
}

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.fail {
		return nil, embedding.ErrProviderUnavailable
	}
	dims := e.dims
	if dims == 0 {
		dims = 3
	}
	v := make([]float32, dims)
	for _, r := range text {
		switch r {
		case 'a':
			v[0]++
		case 'b':
			v[1]++
		case 'c':
			v[2%dims]++
		}
	}
	return v, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedding.EmbedEach(ctx, e, texts)
}

func (e *axisEmbedder) Dimensions() int { return 3 }
func (e *axisEmbedder) Name() string    { return "axis" }
func (e *axisEmbedder) Close() error    { return nil }

func newResults(pairs ...string) []models.SearchResult {
	var out []models.SearchResult
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.SearchResult{
			Metadata: models.Metadata{ID: i / 2, Source: pairs[i], Type: models.TypeText},
			Content:  pairs[i+1],
		})
	}
	return out
}

func newTestOrchestrator(opts ...Option) *Orchestrator {
	base := []Option{WithEmbedder(&axisEmbedder{}), WithStore(vector.NewCosineStore())}
	return NewOrchestrator(append(base, opts...)...)
}

func TestAddText_SingleChunk(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()
	n, err := o.AddText(ctx, "aaa", "doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || o.StoreSize() != 1 || o.NextID() != 1 {
		t.Fatalf("n=%d size=%d next=%d", n, o.StoreSize(), o.NextID())
	}
	results, err := o.SearchText(ctx, "a", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Source != "doc.txt" || results[0].Type != models.TypeText {
		t.Errorf("results = %+v", results)
	}
}

func TestAddText_ChunkLabelsAndIDs(t *testing.T) {
	o := newTestOrchestrator(WithChunking(4, 1))
	ctx := context.Background()

	n, err := o.AddText(ctx, "abcabcabca", "doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 chunks, got %d", n)
	}
	if _, err := o.AddText(ctx, "cc", "other.txt"); err != nil {
		t.Fatal(err)
	}

	results, err := o.SearchText(ctx, "abc", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	ids := map[int]bool{}
	labels := map[string]bool{}
	for _, r := range results {
		if ids[r.ID] {
			t.Errorf("duplicate id %d", r.ID)
		}
		ids[r.ID] = true
		labels[r.Source] = true
	}
	for id := 0; id < 4; id++ {
		if !ids[id] {
			t.Errorf("missing id %d", id)
		}
	}
	for _, want := range []string{"doc.txt (chunk 1/3)", "doc.txt (chunk 2/3)", "doc.txt (chunk 3/3)", "other.txt"} {
		if !labels[want] {
			t.Errorf("missing label %q in %v", want, labels)
		}
	}
	if got := o.ContextSources(); !reflect.DeepEqual(got, []string{"doc.txt", "other.txt"}) {
		t.Errorf("ContextSources = %v", got)
	}

	if err := o.ClearStore(); err != nil {
		t.Fatal(err)
	}
	if o.NextID() != 0 || o.StoreSize() != 0 {
		t.Errorf("after clear: next=%d size=%d", o.NextID(), o.StoreSize())
	}
	if _, err := o.AddText(ctx, "b", "again.txt"); err != nil {
		t.Fatal(err)
	}
	results, _ = o.SearchText(ctx, "b", 1)
	if len(results) != 1 || results[0].ID != 0 {
		t.Errorf("ids should restart at 0 after clear, got %+v", results)
	}
}

func TestAddText_EmptyAndUntitled(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()
	for _, text := range []string{"", "   \n\t"} {
		if _, err := o.AddText(ctx, text, "x"); !errors.Is(err, ErrEmptyText) {
			t.Errorf("AddText(%q): expected ErrEmptyText, got %v", text, err)
		}
	}
	if _, err := o.AddText(ctx, "abc", ""); err != nil {
		t.Fatal(err)
	}
	sources := o.ContextSources()
	if len(sources) != 1 || !strings.HasPrefix(sources[0], "untitled-") || len(sources[0]) != len("untitled-")+8 {
		t.Errorf("untitled source = %v", sources)
	}
}

func TestAddText_ProviderFailureLeavesStoreUnchanged(t *testing.T) {
	e := &axisEmbedder{}
	o := NewOrchestrator(WithEmbedder(e), WithStore(vector.NewCosineStore()), WithChunking(2, 0))
	ctx := context.Background()
	if _, err := o.AddText(ctx, "ab", "first"); err != nil {
		t.Fatal(err)
	}
	e.fail = true
	_, err := o.AddText(ctx, "abcabc", "second")
	if !errors.Is(err, embedding.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if o.StoreSize() != 1 || o.NextID() != 1 {
		t.Errorf("store changed after failure: size=%d next=%d", o.StoreSize(), o.NextID())
	}
}

func TestAddText_DimensionMismatchRejectedBeforeAdd(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()
	if _, err := o.AddText(ctx, "abc", "three"); err != nil {
		t.Fatal(err)
	}
	o.SetEmbedder(&axisEmbedder{dims: 4})
	if _, err := o.AddText(ctx, "abc", "four"); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if o.StoreSize() != 1 || o.NextID() != 1 {
		t.Errorf("size=%d next=%d", o.StoreSize(), o.NextID())
	}
	if _, err := o.SearchText(ctx, "abc", 1); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Errorf("search with mismatched provider: got %v", err)
	}
}

// poisonEmbedder returns a NaN vector for any text containing poison.
type poisonEmbedder struct {
	axisEmbedder
	poison string
}

func (e *poisonEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, e.poison) {
		return []float32{float32(math.NaN()), 0, 0}, nil
	}
	return e.axisEmbedder.Embed(ctx, text)
}

func (e *poisonEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedding.EmbedEach(ctx, e, texts)
}

func TestAddText_NonFiniteEmbeddingRejectedBeforeAdd(t *testing.T) {
	o := newTestOrchestrator(WithEmbedder(&poisonEmbedder{poison: "x"}), WithChunking(4, 0))
	ctx := context.Background()
	if _, err := o.AddText(ctx, "abc", "clean"); err != nil {
		t.Fatal(err)
	}
	// Only the second chunk is poisoned; neither may be stored.
	_, err := o.AddText(ctx, "aaaabbbx", "mixed")
	if !errors.Is(err, vector.ErrInvalidEmbedding) {
		t.Fatalf("expected ErrInvalidEmbedding, got %v", err)
	}
	if o.StoreSize() != 1 || o.NextID() != 1 {
		t.Errorf("size=%d next=%d after rejected add", o.StoreSize(), o.NextID())
	}
	if err := o.SaveStore(filepath.Join(t.TempDir(), "store.json")); err != nil {
		t.Errorf("SaveStore after rejected add: %v", err)
	}
}

func TestAddText_DegradedProviderTagsChunks(t *testing.T) {
	o := NewOrchestrator(WithEmbedder(embedding.NewPlaceholderEmbedder(8)), WithStore(vector.NewCosineStore()))
	ctx := context.Background()
	if _, err := o.AddText(ctx, "hello", "p.txt"); err != nil {
		t.Fatal(err)
	}
	results, err := o.SearchText(ctx, "hello", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Type != models.TypeTextPlaceholder {
		t.Errorf("expected placeholder type, got %+v", results)
	}
}

func TestSearchText_EmptyCases(t *testing.T) {
	o := newTestOrchestrator()
	e := o.Embedder().(*axisEmbedder)
	ctx := context.Background()

	results, err := o.SearchText(ctx, "abc", 5)
	if err != nil || len(results) != 0 {
		t.Errorf("empty store: %v, %v", results, err)
	}
	if _, err := o.AddText(ctx, "abc", "doc"); err != nil {
		t.Fatal(err)
	}
	calls := e.calls
	for _, q := range []string{"", "  "} {
		results, err := o.SearchText(ctx, q, 5)
		if err != nil || results == nil || len(results) != 0 {
			t.Errorf("blank query %q: %v, %v", q, results, err)
		}
	}
	if results, err := o.SearchText(ctx, "abc", 0); err != nil || len(results) != 0 {
		t.Errorf("top_k 0: %v, %v", results, err)
	}
	if e.calls != calls {
		t.Error("blank queries should not reach the provider")
	}
}

func TestSearchText_RanksByScore(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()
	for _, in := range []struct{ text, src string }{{"aaa", "a"}, {"bbb", "b"}, {"ccc", "c"}, {"aab", "ab"}} {
		if _, err := o.AddText(ctx, in.text, in.src); err != nil {
			t.Fatal(err)
		}
	}
	results, err := o.SearchText(ctx, "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Source != "a" || results[1].Source != "ab" {
		t.Errorf("results = %+v", results)
	}
	if results[0].Score < results[1].Score {
		t.Error("cosine scores should descend")
	}
}

func TestSearch_ReportsMetric(t *testing.T) {
	l2, err := vector.NewStore("l2", 3, "native")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name       string
		store      vector.Store
		wantMetric string
		wantHigher bool
		wantFirst  string
	}{
		{"cosine", vector.NewCosineStore(), "cosine", true, "aaa"},
		{"l2", l2, "l2", false, "aab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(WithEmbedder(&axisEmbedder{}), WithStore(tt.store))
			ctx := context.Background()
			for _, text := range []string{"aaa", "aab", "ccc"} {
				if _, err := o.AddText(ctx, text, text); err != nil {
					t.Fatal(err)
				}
			}
			resp, err := o.Search(ctx, "a", 2)
			if err != nil {
				t.Fatal(err)
			}
			if resp.Metric != tt.wantMetric || resp.HigherIsCloser != tt.wantHigher {
				t.Errorf("metric = %q higher=%v", resp.Metric, resp.HigherIsCloser)
			}
			if resp.Total != 2 || resp.Query != "a" || resp.Results[0].Source != tt.wantFirst {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestOrchestrator_NotConfigured(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator(WithLogger(nil))
	if _, err := o.AddText(ctx, "x", "y"); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("AddText: %v", err)
	}
	if _, err := o.SearchText(ctx, "x", 1); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("SearchText: %v", err)
	}
	if _, err := o.EmbedText(ctx, "x"); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("EmbedText: %v", err)
	}
	o.SetEmbedder(&axisEmbedder{})
	if _, err := o.AddText(ctx, "x", "y"); !errors.Is(err, ErrNoStore) {
		t.Errorf("AddText without store: %v", err)
	}
	if err := o.ClearStore(); !errors.Is(err, ErrNoStore) {
		t.Errorf("ClearStore: %v", err)
	}
	if err := o.SaveStore("x"); !errors.Is(err, ErrNoStore) {
		t.Errorf("SaveStore: %v", err)
	}
	if err := o.LoadStore("x"); !errors.Is(err, ErrNoStore) {
		t.Errorf("LoadStore: %v", err)
	}
	if o.StoreSize() != 0 || len(o.ContextSources()) != 0 {
		t.Error("size and sources should be empty without a store")
	}
}

func TestEmbedText(t *testing.T) {
	o := newTestOrchestrator()
	v, err := o.EmbedText(context.Background(), "aab")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []float32{2, 1, 0}) {
		t.Errorf("EmbedText = %v", v)
	}
}

func TestSaveLoad_ResumesIDs(t *testing.T) {
	for _, kind := range []string{"cosine", "l2"} {
		t.Run(kind, func(t *testing.T) {
			store, err := vector.NewStore(kind, 3, "native")
			if err != nil {
				t.Fatal(err)
			}
			o := NewOrchestrator(WithEmbedder(&axisEmbedder{}), WithStore(store))
			ctx := context.Background()
			for _, text := range []string{"a", "b", "c"} {
				if _, err := o.AddText(ctx, text, text+".txt"); err != nil {
					t.Fatal(err)
				}
			}
			path := filepath.Join(t.TempDir(), "store.bin")
			if err := o.SaveStore(path); err != nil {
				t.Fatal(err)
			}
			if err := o.ClearStore(); err != nil {
				t.Fatal(err)
			}
			if err := o.LoadStore(path); err != nil {
				t.Fatal(err)
			}
			if o.StoreSize() != 3 || o.NextID() != 3 {
				t.Errorf("after load: size=%d next=%d", o.StoreSize(), o.NextID())
			}
			if got := o.ContextSources(); !reflect.DeepEqual(got, []string{"a.txt", "b.txt", "c.txt"}) {
				t.Errorf("sources = %v", got)
			}

			if err := o.LoadStore(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
				t.Error("expected error loading missing file")
			}
			if o.NextID() != 3 || o.StoreSize() != 3 {
				t.Errorf("failed load changed state: size=%d next=%d", o.StoreSize(), o.NextID())
			}
		})
	}
}

func TestSetStore_ContinuesIDs(t *testing.T) {
	store := vector.NewCosineStore()
	first := NewOrchestrator(WithEmbedder(&axisEmbedder{}), WithStore(store))
	if _, err := first.AddText(context.Background(), "ab", "x"); err != nil {
		t.Fatal(err)
	}
	o := NewOrchestrator(WithEmbedder(&axisEmbedder{}))
	o.SetStore(store)
	if o.NextID() != 1 {
		t.Errorf("NextID = %d, want 1", o.NextID())
	}
}
