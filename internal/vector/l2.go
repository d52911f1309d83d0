package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/ragstore/internal/models"
)

// IndexStore adapts a FlatIndex into a Store. The index holds the vectors; metadata and
// contents are kept in parallel slices addressed by index label. The dimension is fixed at
// construction and survives Clear.
//
// Scores are squared L2 distances, lower is closer. They are not comparable with CosineStore scores.
type IndexStore struct {
	dimension int
	backend   L2Backend
	index     FlatIndex
	open      IndexReader
	metadata  []models.Metadata
	contents  []string
}

// NewIndexStore creates an L2 store over the given index backend.
func NewIndexStore(dimension int, backend L2Backend) (*IndexStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	resolved, err := resolveL2Backend(backend)
	if err != nil {
		return nil, err
	}
	index, open, err := newFlatIndex(resolved, dimension)
	if err != nil {
		return nil, err
	}
	return &IndexStore{
		dimension: dimension,
		backend:   resolved,
		index:     index,
		open:      open,
		metadata:  make([]models.Metadata, 0),
		contents:  make([]string, 0),
	}, nil
}

// Type returns the store type identifier.
func (s *IndexStore) Type() string {
	return string(StoreTypeL2)
}

// Backend returns the index backend in use (native or faiss).
func (s *IndexStore) Backend() L2Backend {
	return s.backend
}

// Metric returns MetricL2: scores are squared distances, lower is closer.
func (s *IndexStore) Metric() Metric {
	return MetricL2
}

// Add appends one record to the index and the sidecar slices.
func (s *IndexStore) Add(ctx context.Context, embedding []float32, meta models.Metadata, content string) error {
	if len(embedding) == 0 {
		return wrapError("add", ErrEmptyEmbedding)
	}
	if len(embedding) != s.dimension {
		return dimensionError("add", len(embedding), s.dimension)
	}
	if err := CheckFinite(embedding); err != nil {
		return wrapError("add", err)
	}
	if err := s.index.Add([][]float32{embedding}); err != nil {
		return wrapError("add", err)
	}
	s.metadata = append(s.metadata, meta)
	s.contents = append(s.contents, content)
	return nil
}

// Search returns up to k records by ascending squared L2 distance. Labels the index reports
// as invalid (negative or without metadata) are dropped.
func (s *IndexStore) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 || s.index.Len() == 0 || len(query) == 0 {
		return []models.SearchResult{}, nil
	}
	if len(query) != s.dimension {
		return nil, dimensionError("search", len(query), s.dimension)
	}
	if err := CheckFinite(query); err != nil {
		return nil, wrapError("search", err)
	}
	if k > s.index.Len() {
		k = s.index.Len()
	}
	distances, labels, err := s.index.Search(query, k)
	if err != nil {
		return nil, wrapError("search", err)
	}
	results := make([]models.SearchResult, 0, len(labels))
	for i, label := range labels {
		if label < 0 || label >= int64(len(s.metadata)) {
			continue
		}
		results = append(results, models.SearchResult{
			Metadata: s.metadata[label],
			Content:  s.contents[label],
			Score:    float64(distances[i]),
			Rank:     len(results) + 1,
		})
	}
	return results, nil
}

// Clear removes all records. The configured dimension is kept because the index requires it.
func (s *IndexStore) Clear() {
	if err := s.index.Reset(); err != nil {
		// A backend that cannot reset is replaced with a fresh index of the same kind.
		if fresh, _, ferr := newFlatIndex(s.backend, s.dimension); ferr == nil {
			_ = s.index.Close()
			s.index = fresh
		}
	}
	s.metadata = make([]models.Metadata, 0)
	s.contents = make([]string, 0)
}

// Size returns the number of records.
func (s *IndexStore) Size() int {
	return len(s.metadata)
}

// Dimension returns the configured dimension.
func (s *IndexStore) Dimension() int {
	return s.dimension
}

// Sources returns de-duplicated base source labels in first-seen order.
func (s *IndexStore) Sources() []string {
	return uniqueSources(s.metadata)
}

// Close releases the index.
func (s *IndexStore) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

// SidecarPaths returns the metadata and contents paths stored next to the index blob at path.
func SidecarPaths(path string) (metaPath, contentsPath string) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ".meta", base + ".contents"
}

// Save writes three artifacts: the index blob at path, and JSON metadata and contents
// sidecars next to it. The three writes are not atomic as a group; a crash in between
// leaves an inconsistent set that Load will reject.
func (s *IndexStore) Save(path string) error {
	if path == "" {
		return wrapError("save", errors.New("empty path"))
	}
	if err := s.index.WriteFile(path); err != nil {
		return wrapError("save", err)
	}
	metaPath, contentsPath := SidecarPaths(path)
	if err := writeJSONFile(metaPath, s.metadata); err != nil {
		return wrapError("save", fmt.Errorf("write metadata: %w", err))
	}
	if err := writeJSONFile(contentsPath, s.contents); err != nil {
		return wrapError("save", fmt.Errorf("write contents: %w", err))
	}
	return nil
}

// Load reads the three artifacts written by Save. All must be present, agree in length,
// and match the configured dimension; otherwise the store is left unchanged.
func (s *IndexStore) Load(path string) error {
	index, err := s.open(path)
	if err != nil {
		return wrapError("load", err)
	}
	keep := false
	defer func() {
		if !keep {
			_ = index.Close()
		}
	}()
	if index.Dimension() != s.dimension {
		return snapshotError("load", "index has dimension %d, store expects %d", index.Dimension(), s.dimension)
	}
	metaPath, contentsPath := SidecarPaths(path)
	var metadata []models.Metadata
	if err := readJSONFile(metaPath, &metadata); err != nil {
		return snapshotError("load", "metadata: %v", err)
	}
	var contents []string
	if err := readJSONFile(contentsPath, &contents); err != nil {
		return snapshotError("load", "contents: %v", err)
	}
	if len(metadata) != index.Len() || len(contents) != index.Len() {
		return snapshotError("load", "index has %d vectors but %d metadata entries and %d contents",
			index.Len(), len(metadata), len(contents))
	}

	keep = true
	_ = s.index.Close()
	s.index = index
	s.metadata = metadata
	s.contents = contents
	if s.metadata == nil {
		s.metadata = make([]models.Metadata, 0)
	}
	if s.contents == nil {
		s.contents = make([]string, 0)
	}
	return nil
}

func writeJSONFile(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
