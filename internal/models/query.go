package models

import "fmt"

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate ensures the query is non-empty and clamps TopK into [1, maxTopK].
// A zero or negative TopK is replaced by defaultTopK.
func (q *SearchQuery) Validate(defaultTopK, maxTopK int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// TextInput is the input for adding raw text to the store.
type TextInput struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}
