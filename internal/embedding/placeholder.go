package embedding

import (
	"context"
	"math/rand"

	"github.com/hyperjump/ragstore/pkg/utils"
)

// PlaceholderEmbedder is an explicit offline mode. It returns pseudo-random unit vectors
// seeded by the text hash, so identical text always gets the same vector, but similarity
// between different texts is meaningless. It reports Degraded() == true.
type PlaceholderEmbedder struct {
	dimensions int
}

// NewPlaceholderEmbedder returns a placeholder embedder with the given dimensions
// (DefaultDimensions when dimensions <= 0).
func NewPlaceholderEmbedder(dimensions int) *PlaceholderEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &PlaceholderEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic pseudo-random vector in [-1, 1]^d, normalized to unit length.
func (e *PlaceholderEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	rng := rand.New(rand.NewSource(int64(HashString(text))))
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = rng.Float32()*2 - 1
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *PlaceholderEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return EmbedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *PlaceholderEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns "placeholder".
func (e *PlaceholderEmbedder) Name() string {
	return "placeholder"
}

// Degraded always returns true.
func (e *PlaceholderEmbedder) Degraded() bool {
	return true
}

// Close is a no-op for PlaceholderEmbedder.
func (e *PlaceholderEmbedder) Close() error {
	return nil
}
