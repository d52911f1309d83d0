// Package extract provides text extraction from various document formats.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupported is returned for binary content with no registered extractor.
var ErrUnsupported = errors.New("unsupported file format")

// DefaultMaxBytes caps the size of files Extract will read.
const DefaultMaxBytes int64 = 64 << 20

type extractFunc func(content []byte) (string, error)

var formats = map[string]extractFunc{
	".txt":  extractPlain,
	".md":   extractPlain,
	".rst":  extractPlain,
	".csv":  extractPlain,
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".xlsx": extractExcel,
	".pptx": extractPPTX,
	".odp":  extractODP,
	".ods":  extractODS,
	".odt":  extractRich,
	".rtf":  extractRich,
}

// SupportedExtensions returns the registered extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extractor extracts plain text from document files.
type Extractor struct {
	maxBytes int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes sets the largest file Extract accepts. Zero or negative disables the limit.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) { e.maxBytes = n }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its text content, choosing the format by extension.
func (e *Extractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return "", fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), e.maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as
// plain text when the content looks textual and rejected with ErrUnsupported otherwise.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if fn, ok := formats[strings.ToLower(ext)]; ok {
		return fn(content)
	}
	if looksBinary(content) {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return extractPlain(content)
}
