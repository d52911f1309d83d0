package rag

import (
	"fmt"
	"strings"

	"github.com/hyperjump/ragstore/internal/models"
)

const contextHeader = "[RAG CONTEXT]\n"

// BuildContext renders search results as a context block for a downstream prompt.
func BuildContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return contextHeader + "No context provided."
	}
	var b strings.Builder
	b.WriteString(contextHeader)
	for _, r := range results {
		fmt.Fprintf(&b, "Source: %s\nText: %s\n\n", r.Source, r.Content)
	}
	return b.String()
}
