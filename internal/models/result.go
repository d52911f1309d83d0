package models

// SearchResult is a single hit: the stored record's metadata and content plus a score.
// Score meaning depends on the store that produced it (see SearchResponse.HigherIsCloser).
type SearchResult struct {
	Metadata
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Query   string         `json:"query"`
	// Metric names the score space, e.g. "cosine" or "l2".
	Metric string `json:"metric"`
	// HigherIsCloser is true for similarity scores and false for distances.
	HigherIsCloser bool  `json:"higher_is_closer"`
	QueryTime      int64 `json:"query_time_ms"`
}
