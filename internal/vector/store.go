// Package vector provides embedding stores with exact nearest-neighbor search.
//
// Stores do no internal locking. A store assumes a single logical writer: concurrent
// Add/Clear/Load and Search calls without external synchronization are undefined.
// Callers that share a store across goroutines must serialize access themselves.
package vector

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/ragstore/internal/models"
)

var (
	// ErrDimensionMismatch is returned when an embedding or query length differs from the store dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyEmbedding is returned when Add is called with an empty embedding.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrInvalidEmbedding is returned when an embedding or query holds a NaN or infinite value.
	ErrInvalidEmbedding = errors.New("invalid embedding")
	// ErrInvalidSnapshot is returned when a persisted store is malformed or inconsistent.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Store holds embeddings with their metadata and original content and answers similarity queries.
//
// Add rejects empty, mismatched or non-finite embeddings and leaves the store unchanged. The first
// successful Add establishes the dimension unless the store was constructed with one.
// Search returns an empty slice and no error when the store is empty, the query is empty,
// or k <= 0. Load replaces the contents only after the snapshot has been fully validated.
type Store interface {
	Add(ctx context.Context, embedding []float32, meta models.Metadata, content string) error
	Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error)
	Clear()
	Save(path string) error
	Load(path string) error
	Size() int
	// Dimension is 0 while no dimension is established.
	Dimension() int
	// Sources returns de-duplicated base source labels in first-seen order.
	Sources() []string
	Type() string
	Metric() Metric
	Close() error
}

// Metric describes how a store's scores compare. Scores from stores with different
// metrics are not comparable.
type Metric struct {
	Name           string
	HigherIsCloser bool
}

var (
	// MetricCosine is cosine similarity in [-1, 1]; higher is closer.
	MetricCosine = Metric{Name: "cosine", HigherIsCloser: true}
	// MetricL2 is squared Euclidean distance; lower is closer.
	MetricL2 = Metric{Name: "l2", HigherIsCloser: false}
)

// StoreError wraps a store failure with the operation that produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("vector store: %v", e.Err)
	}
	return fmt.Sprintf("vector store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// CheckFinite reports ErrInvalidEmbedding for the first NaN or infinite component of v.
func CheckFinite(v []float32) error {
	for i, x := range v {
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrInvalidEmbedding, i, x)
		}
	}
	return nil
}

func dimensionError(op string, got, want int) error {
	return wrapError(op, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, got, want))
}

func snapshotError(op, format string, args ...interface{}) error {
	return wrapError(op, fmt.Errorf("%w: %s", ErrInvalidSnapshot, fmt.Sprintf(format, args...)))
}
