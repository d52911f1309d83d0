// Package cli provides output formatting and an HTTP client for the ragstore CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
// Unknown formats fall back to text.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	order := "higher is closer"
	if !response.HigherIsCloser {
		order = "lower is closer"
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s, %s)\n\n", response.Total, response.QueryTime, response.Metric, order)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	return nil
}

func writeOneResult(w io.Writer, result models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | ID: %d\n", result.Rank, result.Score, result.ID)
	fmt.Fprintf(w, "Source: %s\n", result.Source)
	if result.Type == models.TypeTextPlaceholder {
		fmt.Fprintln(w, "(placeholder embedding)")
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(utils.OneLine(result.Content), 200))
	fmt.Fprintln(w)
}

// WriteSources writes one source label per line, or a JSON object.
func WriteSources(w io.Writer, sources []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string][]string{"sources": sources})
	}
	for _, s := range sources {
		fmt.Fprintln(w, s)
	}
	return nil
}

// WriteStatus writes a store status summary.
func WriteStatus(w io.Writer, st *models.StoreStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "size:               %d   # stored chunks\n", st.Size)
	fmt.Fprintf(w, "next_id:            %d\n", st.NextID)
	fmt.Fprintf(w, "sources:            %d   # distinct source labels\n", st.Sources)
	fmt.Fprintf(w, "catalog_files:      %d   # ingested files on record\n", st.CatalogFiles)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # snapshot + catalog on disk\n", *st.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "store_type:         %s\n", st.StoreType)
	if st.Metric != "" {
		fmt.Fprintf(w, "metric:             %s\n", st.Metric)
	}
	if st.Dimension > 0 {
		fmt.Fprintf(w, "dimension:          %d\n", st.Dimension)
	}
	fmt.Fprintf(w, "provider:           %s\n", st.Provider)
	if st.Degraded {
		fmt.Fprintln(w, "degraded:           true   # placeholder vectors, search is not semantic")
	}
	if st.SnapshotPath != "" {
		fmt.Fprintf(w, "snapshot_path:      %s\n", st.SnapshotPath)
	}
	return nil
}
