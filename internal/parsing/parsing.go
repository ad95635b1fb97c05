// Package parsing extracts plain text from uploaded files.
package parsing

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// FileType returns the lowercase extension of a filename without the dot.
func FileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// ExtractText converts an uploaded file to plain text based on its
// extension. PDF content is extracted page-agnostically; txt and md (and
// anything else) pass through as UTF-8 text.
func ExtractText(filename string, data []byte) (string, error) {
	switch FileType(filename) {
	case "pdf":
		return extractPDF(data)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("file %s is not valid UTF-8 text", filename)
		}
		return string(data), nil
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("creating PDF reader: %w", err)
	}

	text, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading PDF content: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("buffering PDF text: %w", err)
	}
	return buf.String(), nil
}
