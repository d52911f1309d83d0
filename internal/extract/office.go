package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	contentTypesPath    = "[Content_Types].xml"
	docxDefaultMainPath = "word/document.xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix     = "ppt/slides/slide"
	odfContentPath      = "content.xml"
)

var (
	// <w:t> and <a:t> runs, with any attributes.
	wordText  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	slideText = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

	// OpenDocument paragraphs, headings and spans in document order.
	odfPresentationText = regexp.MustCompile(`<text:(?:p|h|span)[^>]*>([^<]*)</text:(?:p|h|span)>`)
	odfSpreadsheetText  = regexp.MustCompile(`<text:(?:p|span)[^>]*>([^<]*)</text:(?:p|span)>`)

	// The main document part can be declared with either attribute order.
	docxPartName = []*regexp.Regexp{
		regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`),
		regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`),
	}

	slideNumber = regexp.MustCompile(`slide(\d+)\.xml$`)
)

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// readEntry returns the named entry, or nil when the archive has no such entry.
func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readFile(f)
		}
	}
	return nil, nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// joinMatches joins the trimmed first submatch of every non-empty match with spaces.
func joinMatches(b *strings.Builder, xml []byte, re *regexp.Regexp) {
	for _, m := range re.FindAllSubmatch(xml, -1) {
		text := strings.TrimSpace(string(m[1]))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
}

func docxMainPath(zr *zip.Reader) string {
	types, err := readEntry(zr, contentTypesPath)
	if err != nil || types == nil {
		return docxDefaultMainPath
	}
	for _, re := range docxPartName {
		if m := re.FindSubmatch(types); m != nil {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultMainPath
}

// extractDOCX reads the main document part named in [Content_Types].xml and joins
// its text runs.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	mainPath := docxMainPath(zr)
	doc, err := readEntry(zr, mainPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", mainPath)
	}
	var b strings.Builder
	joinMatches(&b, doc, wordText)
	return b.String(), nil
}

// extractPPTX joins the text runs of every slide in slide-number order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		n    int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePrefix) {
			continue
		}
		m := slideNumber.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var b strings.Builder
	for _, s := range slides {
		xml, err := readFile(s.file)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		joinMatches(&b, xml, slideText)
	}
	return b.String(), nil
}

func extractODF(content []byte, format string, re *regexp.Regexp) (string, error) {
	zr, err := openZip(content, format)
	if err != nil {
		return "", err
	}
	xml, err := readEntry(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if xml == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, odfContentPath)
	}
	var b strings.Builder
	joinMatches(&b, xml, re)
	return b.String(), nil
}

func extractODP(content []byte) (string, error) {
	return extractODF(content, "ODP", odfPresentationText)
}

func extractODS(content []byte) (string, error) {
	return extractODF(content, "ODS", odfSpreadsheetText)
}
