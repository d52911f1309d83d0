package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractRich handles RTF and ODT, detecting the format from the content.
func extractRich(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract rich text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
