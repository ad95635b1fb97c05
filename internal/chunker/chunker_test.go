package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRejectsInvalidParams(t *testing.T) {
	cases := []struct {
		name         string
		maxChunkSize int
		overlap      int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.maxChunkSize, tc.overlap)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("got %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	c, _ := New(100, 20)
	if chunks := c.Split(""); len(chunks) != 0 {
		t.Errorf("empty text should yield no chunks, got %d", len(chunks))
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	c, _ := New(100, 20)
	text := "short enough to fit in one chunk"
	chunks := c.Split(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("got %v, want the text unchanged", chunks)
	}
}

func TestSplitRespectsMaxSize(t *testing.T) {
	c, _ := New(50, 10)
	text := strings.Repeat("Some sentences repeat here. ", 30)

	for i, chunk := range c.Split(text) {
		if n := len([]rune(chunk)); n > 50 {
			t.Errorf("chunk %d has %d runes, max is 50", i, n)
		}
	}
}

func TestSplitConsecutiveChunksShareOverlap(t *testing.T) {
	const overlap = 12
	c, _ := New(60, overlap)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 15)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		curr := []rune(chunks[i])
		tail := string(prev[len(prev)-overlap:])
		head := string(curr[:overlap])
		if tail != head {
			t.Errorf("chunks %d/%d overlap mismatch: %q vs %q", i-1, i, tail, head)
		}
	}
}

func TestSplitReconstruction(t *testing.T) {
	inputs := []string{
		strings.Repeat("Sentences of moderate length keep appearing. ", 25),
		"First paragraph with a few words.\n\nSecond paragraph follows on here.\n\nThird one closes the document out.",
		strings.Repeat("x", 500),
		"unicode überprüfung: ä ö ü ß — " + strings.Repeat("mehr Wörter hier. ", 40),
	}

	for i, text := range inputs {
		for _, overlap := range []int{0, 7, 20} {
			c, err := New(64, overlap)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			chunks := c.Split(text)

			var b strings.Builder
			for j, chunk := range chunks {
				runes := []rune(chunk)
				if j == 0 {
					b.WriteString(chunk)
				} else {
					b.WriteString(string(runes[overlap:]))
				}
			}
			if b.String() != text {
				t.Errorf("input %d overlap %d: reconstruction mismatch", i, overlap)
			}
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	c, _ := New(80, 16)
	text := strings.Repeat("Determinism matters for re-ingestion. ", 20)

	first := c.Split(text)
	second := c.Split(text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c, _ := New(50, 0)
	text := "A complete first sentence sits here. The second sentence is much longer and will not fit."

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected a split, got %d chunks", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "sentence sits here. ") {
		t.Errorf("first chunk should end at the sentence boundary, got %q", chunks[0])
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	c, _ := New(60, 0)
	text := "Short opening paragraph.\n\nThe second paragraph contains quite a lot more text than the first."

	chunks := c.Split(text)
	if !strings.HasSuffix(chunks[0], "paragraph.\n\n") {
		t.Errorf("first chunk should end at the paragraph break, got %q", chunks[0])
	}
}

func TestSplitHardCutWithoutBoundaries(t *testing.T) {
	c, _ := New(40, 8)
	text := strings.Repeat("a", 200)

	chunks := c.Split(text)
	if len([]rune(chunks[0])) != 40 {
		t.Errorf("hard cut should fill the window, got %d runes", len([]rune(chunks[0])))
	}
}
