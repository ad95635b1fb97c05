// Package chunker splits document text into overlapping, bounded segments
// for embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrInvalidParams reports chunking parameters that cannot produce a valid
// split.
var ErrInvalidParams = errors.New("invalid chunking parameters")

// Chunker splits text into chunks of at most maxChunkSize runes where
// consecutive chunks share exactly overlap runes. Splitting prefers natural
// boundaries: a paragraph break, then a sentence end, then a line break,
// then a hard cut. Split is pure; the same input always yields the same
// chunks.
type Chunker struct {
	maxChunkSize int
	overlap      int
}

// New creates a Chunker. Sizes are measured in runes; overlap must be
// non-negative and smaller than maxChunkSize.
func New(maxChunkSize, overlap int) (*Chunker, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: max chunk size must be positive, got %d", ErrInvalidParams, maxChunkSize)
	}
	if overlap < 0 || overlap >= maxChunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidParams, maxChunkSize, overlap)
	}
	return &Chunker{maxChunkSize: maxChunkSize, overlap: overlap}, nil
}

// Split returns the chunk sequence for text. Empty text yields no chunks.
// Concatenating the chunks while dropping each chunk's leading overlap
// reproduces the input exactly.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.maxChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + c.maxChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		cut := c.boundary(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - c.overlap
	}
}

// boundary picks the cut position in (start+overlap, end]: the latest
// natural boundary when one exists, end otherwise. Cuts at or before
// start+overlap would stall the scan, so they are never considered.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	min := start + c.overlap + 1
	if min > end {
		return end
	}
	if cut := lastParagraphBreak(runes, min, end); cut > 0 {
		return cut
	}
	if cut := lastSentenceEnd(runes, min, end); cut > 0 {
		return cut
	}
	if cut := lastLineBreak(runes, min, end); cut > 0 {
		return cut
	}
	return end
}

// lastParagraphBreak finds the latest cut in [min, end] placed right after
// a blank line. Returns 0 when there is none.
func lastParagraphBreak(runes []rune, min, end int) int {
	for cut := end; cut >= min; cut-- {
		if cut >= 2 && runes[cut-1] == '\n' && runes[cut-2] == '\n' {
			return cut
		}
	}
	return 0
}

// lastSentenceEnd finds the latest cut in [min, end] placed right after
// sentence-ending punctuation followed by whitespace.
func lastSentenceEnd(runes []rune, min, end int) int {
	for cut := end; cut >= min; cut-- {
		if cut >= 2 && unicode.IsSpace(runes[cut-1]) && isSentenceEnd(runes[cut-2]) {
			return cut
		}
	}
	return 0
}

// lastLineBreak finds the latest cut in [min, end] placed right after a
// newline.
func lastLineBreak(runes []rune, min, end int) int {
	for cut := end; cut >= min; cut-- {
		if runes[cut-1] == '\n' {
			return cut
		}
	}
	return 0
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
