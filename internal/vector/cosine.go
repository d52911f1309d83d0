package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hyperjump/ragstore/internal/models"
)

// CosineStore is an in-memory store using brute-force cosine similarity.
// Embeddings, metadata, and contents are kept in parallel slices of equal length.
// Search is O(size * dimension); it targets modest single-session corpora.
type CosineStore struct {
	dimension  int
	embeddings [][]float32
	metadata   []models.Metadata
	contents   []string
}

// NewCosineStore creates an empty cosine store. The dimension is established by the first Add.
func NewCosineStore() *CosineStore {
	return &CosineStore{
		embeddings: make([][]float32, 0),
		metadata:   make([]models.Metadata, 0),
		contents:   make([]string, 0),
	}
}

// Type returns the store type identifier.
func (s *CosineStore) Type() string {
	return string(StoreTypeCosine)
}

// Metric returns MetricCosine: scores are similarities, higher is closer.
func (s *CosineStore) Metric() Metric {
	return MetricCosine
}

// Add appends one record. The embedding is copied.
func (s *CosineStore) Add(ctx context.Context, embedding []float32, meta models.Metadata, content string) error {
	if len(embedding) == 0 {
		return wrapError("add", ErrEmptyEmbedding)
	}
	if s.dimension != 0 && len(embedding) != s.dimension {
		return dimensionError("add", len(embedding), s.dimension)
	}
	if err := CheckFinite(embedding); err != nil {
		return wrapError("add", err)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	if s.dimension == 0 {
		s.dimension = len(vec)
	}
	s.embeddings = append(s.embeddings, vec)
	s.metadata = append(s.metadata, meta)
	s.contents = append(s.contents, content)
	return nil
}

// Search returns up to k records by descending cosine similarity. Equal scores keep insertion order.
func (s *CosineStore) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 || len(s.embeddings) == 0 || len(query) == 0 {
		return []models.SearchResult{}, nil
	}
	if len(query) != s.dimension {
		return nil, dimensionError("search", len(query), s.dimension)
	}
	if err := CheckFinite(query); err != nil {
		return nil, wrapError("search", err)
	}
	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, len(s.embeddings))
	for i, vec := range s.embeddings {
		scores[i] = scored{index: i, score: CosineSimilarity(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	results := make([]models.SearchResult, k)
	for i := 0; i < k; i++ {
		idx := scores[i].index
		results[i] = models.SearchResult{
			Metadata: s.metadata[idx],
			Content:  s.contents[idx],
			Score:    scores[i].score,
			Rank:     i + 1,
		}
	}
	return results, nil
}

// Clear removes all records and releases the dimension lock.
func (s *CosineStore) Clear() {
	s.dimension = 0
	s.embeddings = make([][]float32, 0)
	s.metadata = make([]models.Metadata, 0)
	s.contents = make([]string, 0)
}

// Size returns the number of records.
func (s *CosineStore) Size() int {
	return len(s.embeddings)
}

// Dimension returns the established dimension, or 0 when the store is empty and unlocked.
func (s *CosineStore) Dimension() int {
	return s.dimension
}

// Sources returns de-duplicated base source labels in first-seen order.
func (s *CosineStore) Sources() []string {
	return uniqueSources(s.metadata)
}

// Close is a no-op for CosineStore.
func (s *CosineStore) Close() error {
	return nil
}

// cosineSnapshot is the persisted document. Contents is optional on read: snapshots
// written before contents were stored fall back to each record's source.
type cosineSnapshot struct {
	Count      *int              `json:"count"`
	Embeddings [][]float32       `json:"embeddings"`
	Metadata   []models.Metadata `json:"metadata"`
	Contents   []string          `json:"contents"`
}

// Save writes the store as a single JSON document. The directory is created if needed and
// the file is replaced via rename so a crash never leaves a half-written snapshot at path.
func (s *CosineStore) Save(path string) error {
	if path == "" {
		return wrapError("save", errors.New("empty path"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrapError("save", fmt.Errorf("create snapshot dir: %w", err))
	}
	count := len(s.embeddings)
	snap := cosineSnapshot{
		Count:      &count,
		Embeddings: s.embeddings,
		Metadata:   s.metadata,
		Contents:   s.contents,
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return wrapError("save", fmt.Errorf("create snapshot file: %w", err))
	}
	if err := json.NewEncoder(f).Encode(&snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return wrapError("save", fmt.Errorf("encode snapshot: %w", err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return wrapError("save", fmt.Errorf("close snapshot file: %w", err))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return wrapError("save", fmt.Errorf("rename snapshot file: %w", err))
	}
	return nil
}

// Load reads a snapshot written by Save and replaces the store contents. The snapshot is
// parsed and validated in full first; on any error the store is left unchanged.
func (s *CosineStore) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wrapError("load", fmt.Errorf("read snapshot: %w", err))
	}
	var snap cosineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshotError("load", "parse: %v", err)
	}
	if snap.Count == nil {
		return snapshotError("load", "missing count")
	}
	count := *snap.Count
	if count < 0 {
		return snapshotError("load", "negative count %d", count)
	}
	if len(snap.Embeddings) != count {
		return snapshotError("load", "count %d but %d embeddings", count, len(snap.Embeddings))
	}
	if len(snap.Metadata) != count {
		return snapshotError("load", "count %d but %d metadata entries", count, len(snap.Metadata))
	}
	contents := snap.Contents
	if contents == nil {
		contents = make([]string, count)
		for i, m := range snap.Metadata {
			contents[i] = m.Source
		}
	} else if len(contents) != count {
		return snapshotError("load", "count %d but %d contents", count, len(contents))
	}
	dimension := 0
	for i, vec := range snap.Embeddings {
		if len(vec) == 0 {
			return snapshotError("load", "embedding %d is empty", i)
		}
		if dimension == 0 {
			dimension = len(vec)
		}
		if len(vec) != dimension {
			return snapshotError("load", "embedding %d has dimension %d, expected %d", i, len(vec), dimension)
		}
	}

	s.dimension = dimension
	s.embeddings = snap.Embeddings
	s.metadata = snap.Metadata
	s.contents = contents
	if s.embeddings == nil {
		s.embeddings = make([][]float32, 0)
	}
	if s.metadata == nil {
		s.metadata = make([]models.Metadata, 0)
	}
	return nil
}
