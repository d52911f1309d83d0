package vector

import (
	"strings"

	"github.com/hyperjump/ragstore/internal/models"
)

// chunkSuffixMarker starts the per-chunk label suffix, e.g. "doc.txt (chunk 2/5)".
const chunkSuffixMarker = " (chunk "

// BaseSource strips a trailing chunk suffix from a source label.
func BaseSource(source string) string {
	if i := strings.LastIndex(source, chunkSuffixMarker); i >= 0 {
		return source[:i]
	}
	return source
}

func uniqueSources(meta []models.Metadata) []string {
	seen := make(map[string]struct{}, len(meta))
	sources := make([]string, 0)
	for _, m := range meta {
		base := BaseSource(m.Source)
		if _, ok := seen[base]; ok {
			continue
		}
		seen[base] = struct{}{}
		sources = append(sources, base)
	}
	return sources
}
