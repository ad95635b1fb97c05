package rag

import (
	"regexp"
	"strconv"

	"github.com/zdk-labs/docchat/internal/store"
	"github.com/zdk-labs/docchat/internal/vectordb"
)

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// ExtractSources resolves an answer's bracketed citation markers against
// the context sources that were supplied to generation. When the answer
// carries valid markers, exactly those sources are reported in first
// appearance order; without any, attribution cannot be verified and every
// supplied source is reported. Duplicate document+ordinal pairs collapse
// to one entry.
func ExtractSources(answer string, supplied []ContextSource) []store.Source {
	if len(supplied) == 0 {
		return []store.Source{}
	}

	var picked []ContextSource
	seenLabel := make(map[int]bool)
	for _, m := range citationMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(supplied) || seenLabel[n] {
			continue
		}
		seenLabel[n] = true
		picked = append(picked, supplied[n-1])
	}
	if len(picked) == 0 {
		picked = supplied
	}

	seen := make(map[string]bool)
	out := make([]store.Source, 0, len(picked))
	for _, s := range picked {
		key := vectordb.ChunkID(s.DocumentID, s.Ordinal)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, store.Source{
			DocumentID:   s.DocumentID,
			DocumentName: s.DocumentName,
			Ordinal:      s.Ordinal,
			Page:         s.Page,
		})
	}
	return out
}
