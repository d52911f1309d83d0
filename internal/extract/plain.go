package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain returns content as a string with a leading BOM dropped and CRLF line
// endings normalized. Invalid UTF-8 sequences are replaced with U+FFFD.
func extractPlain(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}

// looksBinary reports whether the first KiB holds a NUL byte.
func looksBinary(content []byte) bool {
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.IndexByte(head, 0) >= 0
}
