// Package embedding provides text embedding providers (ONNX, OpenAI-compatible, placeholder) and caching.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// DefaultDimensions is the embedding size of the T5-base encoder.
const DefaultDimensions = 768

var (
	// ErrProviderUnavailable is returned when a model, runtime, or remote API cannot produce an embedding.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrEmptyText is returned when asked to embed empty text.
	ErrEmptyText = errors.New("cannot embed empty text")
	// ErrDimensionMismatch is returned when a provider yields a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder produces fixed-dimension vector embeddings for text. Embed must return exactly
// Dimensions() values or an error. EmbedBatch must return the same vectors as calling
// Embed per item, in order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// Degraded is implemented by embedders whose vectors carry no semantic meaning.
type Degraded interface {
	Degraded() bool
}

// IsDegraded reports whether e declares itself degraded.
func IsDegraded(e Embedder) bool {
	d, ok := e.(Degraded)
	return ok && d.Degraded()
}

// EmbedEach is the default EmbedBatch: it calls Embed for each text and stops at the first error.
func EmbedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func checkDimensions(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}
