package rag

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{"overlapping windows", "abcdefghij", 4, 1, []string{"abcd", "defg", "ghij"}},
		{"shorter than window", "short", 10, 2, []string{"short"}},
		{"empty text", "", 4, 1, []string{}},
		{"zero size returns whole text", "abcdef", 0, 0, []string{"abcdef"}},
		{"negative size returns whole text", "abc", -3, 0, []string{"abc"}},
		{"overlap equal to size advances by size", "abcdef", 2, 2, []string{"ab", "cd", "ef"}},
		{"overlap larger than size advances by size", "abcde", 2, 5, []string{"ab", "cd", "e"}},
		{"no overlap", "abcdef", 3, 0, []string{"abc", "def"}},
		{"exact fit", "abcd", 4, 1, []string{"abcd"}},
		{"multibyte runes", "héllo wörld", 4, 0, []string{"héll", "o wö", "rld"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkText(tt.text, tt.size, tt.overlap)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ChunkText(%q, %d, %d) = %q, want %q", tt.text, tt.size, tt.overlap, got, tt.want)
			}
		})
	}
}

func TestChunkText_Restartable(t *testing.T) {
	a := ChunkText("the quick brown fox jumps", 6, 2)
	b := ChunkText("the quick brown fox jumps", 6, 2)
	if !reflect.DeepEqual(a, b) {
		t.Error("chunking the same input twice should give the same chunks")
	}
}

func TestBuildContext(t *testing.T) {
	if got := BuildContext(nil); got != "[RAG CONTEXT]\nNo context provided." {
		t.Errorf("empty context: %q", got)
	}
	results := newResults("a.txt", "alpha", "b.txt", "beta")
	want := "[RAG CONTEXT]\nSource: a.txt\nText: alpha\n\nSource: b.txt\nText: beta\n\n"
	if got := BuildContext(results); got != want {
		t.Errorf("BuildContext = %q, want %q", got, want)
	}
}

func BenchmarkChunkText(b *testing.B) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	}
}
