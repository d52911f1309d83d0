package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{"text", []byte("Hello world\nLine 2"), ".txt", "Hello world\nLine 2"},
		{"utf8", []byte("caf\xc3\xa9"), ".md", "café"},
		{"invalid utf8", []byte("hello\x80world"), ".rst", "hello\uFFFDworld"},
		{"bom and crlf", []byte("\xEF\xBB\xBFa\r\nb"), ".txt", "a\nb"},
		{"upper-case extension", []byte("x"), ".TXT", "x"},
		{"unknown textual extension", []byte("raw content"), ".xyz", "raw content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_unknownBinary(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte{0x7f, 'E', 'L', 'F', 0, 0}, ".bin")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A3", "Value 1")
	f.SetCellValue("Sheet1", "B3", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excelSkipsHiddenSheets(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "shown")
	if _, err := f.NewSheet("Secret"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Secret", "A1", "hidden")
	if err := f.SetSheetVisible("Secret", false); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "shown" {
		t.Errorf("got %q, want only the visible sheet", got)
	}
}

func TestExtractBytes_malformedPDF(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("%PDF-1.4 truncated"), ".pdf"); err == nil {
		t.Error("expected error for a malformed PDF")
	}
}

func TestExtractBytes_docx(t *testing.T) {
	content := zipBytes(t, map[string]string{
		"word/document.xml": `<w:document><w:body><w:p w:rsidR="1"><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world </w:t></w:r></w:p></w:body></w:document>`,
	})
	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxMainPartFromContentTypes(t *testing.T) {
	for name, override := range map[string]string{
		"part name first":    `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`,
		"content type first": `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`,
	} {
		t.Run(name, func(t *testing.T) {
			content := zipBytes(t, map[string]string{
				contentTypesPath:     `<Types>` + override + `</Types>`,
				"word/document2.xml": `<w:t>From document2</w:t>`,
			})
			got, err := NewExtractor().ExtractBytes(content, ".docx")
			if err != nil {
				t.Fatal(err)
			}
			if got != "From document2" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxMissingBody(t *testing.T) {
	content := zipBytes(t, map[string]string{"other.xml": "<x/>"})
	if _, err := NewExtractor().ExtractBytes(content, ".docx"); err == nil {
		t.Error("expected error when document.xml is missing")
	}
}

func TestExtractBytes_pptxSlideOrder(t *testing.T) {
	content := zipBytes(t, map[string]string{
		"ppt/slides/slide10.xml":           `<a:t>ten</a:t>`,
		"ppt/slides/slide2.xml":            `<a:t>two</a:t>`,
		"ppt/slides/slide1.xml":            `<a:t>one</a:t><a:t xml:space="preserve">  </a:t>`,
		"ppt/slides/_rels/slide1.xml.rels": `<a:t>ignored</a:t>`,
	})
	got, err := NewExtractor().ExtractBytes(content, ".pptx")
	if err != nil {
		t.Fatal(err)
	}
	if got != "one two ten" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_pptxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a zip"), ".pptx"); err == nil {
		t.Error("expected error for non-zip content")
	}
}

func TestExtractBytes_odf(t *testing.T) {
	xml := `<office:body><text:h text:outline-level="1">Heading</text:h><text:p>Para</text:p><text:p text:style-name="P1">Second</text:p><text:span>Span</text:span></office:body>`
	content := zipBytes(t, map[string]string{"content.xml": xml})

	got, err := NewExtractor().ExtractBytes(content, ".odp")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Heading Para Second Span" {
		t.Errorf("odp: got %q", got)
	}

	got, err = NewExtractor().ExtractBytes(content, ".ods")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Para Second Span" {
		t.Errorf("ods: got %q", got)
	}
}

func TestExtractBytes_odfMissingContent(t *testing.T) {
	content := zipBytes(t, map[string]string{"meta.xml": "<x/>"})
	for _, ext := range []string{".odp", ".ods"} {
		if _, err := NewExtractor().ExtractBytes(content, ext); err == nil {
			t.Errorf("%s: expected error when content.xml is missing", ext)
		}
	}
}

func TestExtractBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestExtract_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}

	if _, err := NewExtractor(WithMaxBytes(4)).Extract(path); err == nil {
		t.Error("expected size limit error")
	}
	if _, err := NewExtractor(WithMaxBytes(0)).Extract(path); err != nil {
		t.Errorf("zero limit should disable the check: %v", err)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	seen := map[string]bool{}
	for i, ext := range exts {
		seen[ext] = true
		if i > 0 && exts[i-1] > ext {
			t.Errorf("extensions not sorted: %v", exts)
		}
	}
	for _, want := range []string{".txt", ".pdf", ".docx", ".rtf", ".odt"} {
		if !seen[want] {
			t.Errorf("missing %s in %v", want, exts)
		}
	}
}
