package vectordb

import (
	"context"
	"errors"
	"math"
	"testing"
)

// unitVec returns a normalized one-hot vector so similarities between
// different axes are exactly zero and identical axes exactly one.
func unitVec(dims, axis int) []float32 {
	vec := make([]float32, dims)
	vec[axis] = 1
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func mustStore(t *testing.T, dims int) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(dims)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return s
}

func chunk(project, doc string, ordinal int, text string, vec []float32) ChunkRecord {
	return ChunkRecord{
		ID:           ChunkID(doc, ordinal),
		ProjectID:    project,
		DocumentID:   doc,
		DocumentName: doc + ".txt",
		Ordinal:      ordinal,
		Text:         text,
		Embedding:    vec,
	}
}

func TestQueryScopedToProject(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	chunks := []ChunkRecord{
		chunk("p1", "d1", 1, "alpha", unitVec(8, 0)),
		chunk("p1", "d2", 1, "beta", unitVec(8, 1)),
		chunk("p2", "d3", 1, "gamma", unitVec(8, 0)),
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	results, err := s.Query(ctx, unitVec(8, 0), ScopeFilter{ProjectID: "p1"}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Chunk.ProjectID != "p1" {
			t.Errorf("result from project %q leaked into p1 query", r.Chunk.ProjectID)
		}
	}
	if results[0].Chunk.DocumentID != "d1" {
		t.Errorf("most similar chunk should be d1, got %s", results[0].Chunk.DocumentID)
	}
}

func TestQueryDocumentScopeAllowList(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	chunks := []ChunkRecord{
		chunk("p1", "d1", 1, "alpha", unitVec(8, 0)),
		chunk("p1", "d2", 1, "beta", unitVec(8, 0)),
		chunk("p1", "d3", 1, "gamma", unitVec(8, 0)),
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	filter := ScopeFilter{ProjectID: "p1", DocumentIDs: []string{"d2"}}
	results, err := s.Query(ctx, unitVec(8, 0), filter, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Chunk.DocumentID != "d2" {
		t.Errorf("scoped query returned chunk from %s", results[0].Chunk.DocumentID)
	}
}

func TestQueryTieBreaksByOrdinal(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	// Identical vectors: similarity ties across all three chunks.
	vec := unitVec(8, 3)
	chunks := []ChunkRecord{
		chunk("p1", "d1", 3, "third", vec),
		chunk("p1", "d1", 1, "first", vec),
		chunk("p1", "d1", 2, "second", vec),
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	for run := 0; run < 3; run++ {
		results, err := s.Query(ctx, vec, ScopeFilter{ProjectID: "p1"}, 3)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("got %d results, want 3", len(results))
		}
		for i, want := range []int{1, 2, 3} {
			if results[i].Chunk.Ordinal != want {
				t.Errorf("run %d: position %d has ordinal %d, want %d", run, i, results[i].Chunk.Ordinal, want)
			}
		}
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	chunks := []ChunkRecord{
		chunk("p1", "d1", 1, "alpha", unitVec(8, 0)),
		chunk("p1", "d1", 2, "beta", unitVec(8, 1)),
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got := s.Count(); got != 2 {
		t.Errorf("Count after double upsert: got %d, want 2", got)
	}

	results, err := s.Query(ctx, unitVec(8, 0), ScopeFilter{ProjectID: "p1"}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results after double upsert, want 2", len(results))
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	bad := chunk("p1", "d1", 1, "alpha", unitVec(4, 0))
	err := s.UpsertChunks(ctx, []ChunkRecord{bad})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
	if s.Count() != 0 {
		t.Errorf("mismatched chunk must not be stored")
	}
}

func TestQueryRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	if err := s.UpsertChunks(ctx, []ChunkRecord{chunk("p1", "d1", 1, "alpha", unitVec(8, 0))}); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	_, err := s.Query(ctx, unitVec(16, 0), ScopeFilter{ProjectID: "p1"}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestQueryEmptyProject(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	results, err := s.Query(ctx, unitVec(8, 0), ScopeFilter{ProjectID: "nothing"}, 5)
	if err != nil {
		t.Fatalf("Query on empty project: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty project, want 0", len(results))
	}
}

func TestDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t, 8)

	chunks := []ChunkRecord{
		chunk("p1", "d1", 1, "alpha", unitVec(8, 0)),
		chunk("p1", "d2", 1, "beta", unitVec(8, 1)),
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}

	if err := s.DeleteByDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count after delete: got %d, want 1", got)
	}

	results, err := s.Query(ctx, unitVec(8, 0), ScopeFilter{ProjectID: "p1"}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, r := range results {
		if r.Chunk.DocumentID == "d1" {
			t.Error("deleted document still queryable")
		}
	}

	// Deleting a document with no chunks is a no-op.
	if err := s.DeleteByDocument(ctx, "missing"); err != nil {
		t.Errorf("DeleteByDocument on missing document: %v", err)
	}
}

func TestPersistAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := mustStore(t, 8)
	chunks := []ChunkRecord{
		chunk("p1", "d1", 1, "alpha", unitVec(8, 0)),
		chunk("p1", "d1", 2, "beta", unitVec(8, 1)),
	}
	if err := s.UpsertChunks(ctx, chunks); err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
	if err := s.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored := mustStore(t, 8)
	if err := restored.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := restored.Count(); got != 2 {
		t.Fatalf("Count after load: got %d, want 2", got)
	}

	results, err := restored.Query(ctx, unitVec(8, 0), ScopeFilter{ProjectID: "p1"}, 1)
	if err != nil {
		t.Fatalf("Query after load: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Text != "alpha" {
		t.Errorf("restored query mismatch: %+v", results)
	}
}
