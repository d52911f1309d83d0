// Package models defines core data structures for stored chunks, queries, and search results.
package models

// Type tags stored in Metadata.Type.
const (
	// TypeText marks a chunk embedded by a real provider.
	TypeText = "text"
	// TypeTextPlaceholder marks a chunk embedded by a degraded provider. Its vector carries
	// no semantic meaning and should not be mixed with real embeddings.
	TypeTextPlaceholder = "text-placeholder"
)

// Metadata is the per-record label set persisted next to each embedding.
type Metadata struct {
	ID     int    `json:"id"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// Record is one stored chunk: metadata, original text, and embedding.
type Record struct {
	Metadata
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}
