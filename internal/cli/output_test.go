package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/ragstore/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:          "test query",
		QueryTime:      42,
		Total:          2,
		Metric:         "cosine",
		HigherIsCloser: true,
		Results: []models.SearchResult{
			{
				Metadata: models.Metadata{ID: 3, Source: "notes.md (chunk 1/2)", Type: models.TypeText},
				Content:  "Content\nhere",
				Score:    0.9,
				Rank:     1,
			},
			{
				Metadata: models.Metadata{ID: 7, Source: "scratch", Type: models.TypeTextPlaceholder},
				Content:  strings.Repeat("x", 300),
				Score:    0.1,
				Rank:     2,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"compact", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d", decoded.Query, decoded.QueryTime)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].Source != "notes.md (chunk 1/2)" || decoded.Results[1].ID != 7 {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
	if decoded.Metric != "cosine" || !decoded.HigherIsCloser {
		t.Errorf("decoded metric: %q %v", decoded.Metric, decoded.HigherIsCloser)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{
		"Found 2 results", "42ms", "cosine, higher is closer",
		"Rank: 1", "ID: 3", "Source: notes.md (chunk 1/2)", "Content here",
		"(placeholder embedding)", strings.Repeat("x", 200) + "...",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_distanceMetric(t *testing.T) {
	response := &models.SearchResponse{Metric: "l2"}
	var buf bytes.Buffer
	_ = WriteSearchResults(&buf, response, OutputFormat("unknown"))
	if !strings.Contains(buf.String(), "Found 0 results") || !strings.Contains(buf.String(), "lower is closer") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteSources(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteSources(&buf, []string{"a.txt", "b.txt"}, OutputText)
	if buf.String() != "a.txt\nb.txt\n" {
		t.Errorf("text: got %q", buf.String())
	}
	buf.Reset()
	_ = WriteSources(&buf, []string{}, OutputJSON)
	var out struct {
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil || out.Sources == nil {
		t.Errorf("json: got %q, err %v", buf.String(), err)
	}
}

func TestWriteStatus(t *testing.T) {
	disk := int64(2048)
	st := &models.StoreStatus{
		Size: 4, NextID: 4, Dimension: 768, StoreType: "l2", Metric: "l2",
		Provider: "placeholder", Degraded: true, Sources: 2, CatalogFiles: 1,
		SnapshotPath: "/data/store.bin", DiskUsageBytes: &disk,
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"size:               4", "dimension:          768", "store_type:         l2",
		"disk_usage_bytes:   2048", "degraded:           true", "snapshot_path:      /data/store.bin"} {
		if !strings.Contains(out, sub) {
			t.Errorf("status output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteStatus(&buf, st, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.StoreStatus
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Size != 4 || decoded.DiskUsageBytes == nil || *decoded.DiskUsageBytes != 2048 {
		t.Errorf("decoded: %+v", decoded)
	}
}
