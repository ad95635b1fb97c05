package vectordb

import "fmt"

// ChunkRecord is the unit of storage and retrieval: one bounded segment of
// a document's text together with its embedding and citation metadata.
type ChunkRecord struct {
	ID           string // documentID:ordinal, stable across re-ingestion
	ProjectID    string
	DocumentID   string
	DocumentName string
	Ordinal      int // 1-based position within the document
	Page         int // 0 when unknown
	Text         string
	Embedding    []float32
}

// ChunkID builds the canonical chunk identity for a document position.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%d", documentID, ordinal)
}

// ScoredChunk pairs a chunk with its similarity score. Scores are only
// comparable within the query execution that produced them.
type ScoredChunk struct {
	Chunk      ChunkRecord
	Similarity float32
}

// ScopeFilter restricts a query to one project and, when DocumentIDs is
// non-empty, to an allow-list of documents within it. An empty DocumentIDs
// slice means every document in the project is eligible.
type ScopeFilter struct {
	ProjectID   string
	DocumentIDs []string
}

func (f ScopeFilter) allows(documentID string) bool {
	if len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if id == documentID {
			return true
		}
	}
	return false
}
