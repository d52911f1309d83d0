// Package utils provides shared utilities for text, math, paths, and logging.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Truncate returns s truncated to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// OneLine collapses runs of whitespace (including newlines) into single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ModelPath resolves a model file name under root. Absolute names are returned as-is,
// a leading "~/" expands to the home directory, and an empty name returns "".
func ModelPath(root, name string) string {
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, name[2:])
		}
	}
	if filepath.IsAbs(name) || root == "" {
		return name
	}
	return filepath.Join(root, name)
}
