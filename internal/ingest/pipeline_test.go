package ingest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/zdk-labs/docchat/internal/chunker"
	"github.com/zdk-labs/docchat/internal/embeddings"
	"github.com/zdk-labs/docchat/internal/store"
	"github.com/zdk-labs/docchat/internal/vectordb"
)

// keywordEmbedder produces vectors from keyword occurrence counts plus a
// constant bias component, so texts sharing a keyword score measurably
// higher than texts that only share the bias.
type keywordEmbedder struct {
	keywords []string
	failOn   string
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if e.failOn != "" && strings.Contains(text, e.failOn) {
			return nil, errors.New("provider exploded")
		}
		vec := make([]float32, e.Dimensions())
		lower := strings.ToLower(text)
		for k, kw := range e.keywords {
			vec[k] = float32(strings.Count(lower, kw))
		}
		vec[len(e.keywords)] = 1 // bias
		out[i] = normalize(vec)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int { return len(e.keywords) + 1 }
func (e *keywordEmbedder) Name() string    { return "keyword" }

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

type fixture struct {
	db       *store.Store
	vectors  *vectordb.ChromemStore
	embedder *keywordEmbedder
	pipeline *Pipeline
}

func newFixture(t *testing.T, keywords ...string) *fixture {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	embedder := &keywordEmbedder{keywords: keywords}
	vectors, err := vectordb.NewChromemStore(embedder.Dimensions())
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	ch, err := chunker.New(120, 20)
	if err != nil {
		t.Fatalf("chunker.New: %v", err)
	}
	return &fixture{
		db:       db,
		vectors:  vectors,
		embedder: embedder,
		pipeline: NewPipeline(ch, embedder, vectors, db, 5*time.Second),
	}
}

func TestIngestDocumentMarksReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "storage")

	p, _ := f.db.CreateProject(ctx, "P", "")
	text := strings.Repeat("The storage layer persists records on disk. ", 10)
	doc, _ := f.db.CreateDocument(ctx, p.ID, "storage.txt", "txt", int64(len(text)), text)

	if err := f.pipeline.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}

	got, _ := f.db.GetDocument(ctx, doc.ID)
	if got.Status != store.StatusReady {
		t.Errorf("status: got %s, want ready", got.Status)
	}
	if got.ChunkCount == 0 || got.ChunkCount != f.vectors.Count() {
		t.Errorf("chunk count %d does not match stored vectors %d", got.ChunkCount, f.vectors.Count())
	}
}

func TestIngestFindsPhraseNearEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "zebra")

	p, _ := f.db.CreateProject(ctx, "P", "")
	filler := strings.Repeat("Quarterly figures held steady across all regions. ", 20)
	text := filler + "The zebra enclosure budget doubled this year."
	doc, _ := f.db.CreateDocument(ctx, p.ID, "report.txt", "txt", int64(len(text)), text)

	if err := f.pipeline.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if f.vectors.Count() < 2 {
		t.Fatalf("document should span multiple chunks, got %d", f.vectors.Count())
	}

	queryVec, err := f.embedder.Embed(ctx, []string{"zebra"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	results, err := f.vectors.Query(ctx, queryVec[0],
		vectordb.ScopeFilter{ProjectID: p.ID, DocumentIDs: []string{doc.ID}}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if !strings.Contains(results[0].Chunk.Text, "zebra") {
		t.Errorf("top chunk should contain the phrase, got %q", results[0].Chunk.Text)
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "x")

	p, _ := f.db.CreateProject(ctx, "P", "")
	doc, _ := f.db.CreateDocument(ctx, p.ID, "empty.txt", "txt", 0, "")

	if err := f.pipeline.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	got, _ := f.db.GetDocument(ctx, doc.ID)
	if got.Status != store.StatusReady || got.ChunkCount != 0 {
		t.Errorf("empty document: got status=%s chunks=%d, want ready/0", got.Status, got.ChunkCount)
	}
}

func TestIngestEmbedderFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "x")
	f.embedder.failOn = "radioactive"

	p, _ := f.db.CreateProject(ctx, "P", "")
	doc, _ := f.db.CreateDocument(ctx, p.ID, "bad.txt", "txt", 1, "radioactive content")

	err := f.pipeline.IngestDocument(ctx, doc)
	if !errors.Is(err, embeddings.ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
	got, _ := f.db.GetDocument(ctx, doc.ID)
	if got.Status != store.StatusFailed {
		t.Errorf("status: got %s, want failed", got.Status)
	}
	if f.vectors.Count() != 0 {
		t.Errorf("failed document must not be queryable, %d chunks stored", f.vectors.Count())
	}
}

func TestIngestAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "x")
	f.embedder.failOn = "radioactive"

	p, _ := f.db.CreateProject(ctx, "P", "")
	good, _ := f.db.CreateDocument(ctx, p.ID, "good.txt", "txt", 1, "perfectly fine text.")
	bad, _ := f.db.CreateDocument(ctx, p.ID, "bad.txt", "txt", 1, "radioactive content")

	var progressCalls int
	f.pipeline.SetProgressFunc(func(done, total int, name string) { progressCalls++ })

	result := f.pipeline.IngestAll(ctx, []store.Document{*good, *bad})
	if result.Processed != 1 || result.Failed != 1 {
		t.Errorf("got processed=%d failed=%d, want 1/1", result.Processed, result.Failed)
	}
	if progressCalls != 2 {
		t.Errorf("progress called %d times, want 2", progressCalls)
	}

	gotGood, _ := f.db.GetDocument(ctx, good.ID)
	if gotGood.Status != store.StatusReady {
		t.Errorf("sibling document affected by failure: %s", gotGood.Status)
	}
}

func TestReingestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "storage")

	p, _ := f.db.CreateProject(ctx, "P", "")
	text := strings.Repeat("The storage layer persists records on disk. ", 10)
	doc, _ := f.db.CreateDocument(ctx, p.ID, "storage.txt", "txt", int64(len(text)), text)

	if err := f.pipeline.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	first := f.vectors.Count()
	if err := f.pipeline.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if got := f.vectors.Count(); got != first {
		t.Errorf("re-ingestion changed chunk count: %d -> %d", first, got)
	}
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "storage")

	p, _ := f.db.CreateProject(ctx, "P", "")
	text := strings.Repeat("The storage layer persists records on disk. ", 10)
	doc, _ := f.db.CreateDocument(ctx, p.ID, "storage.txt", "txt", int64(len(text)), text)

	if err := f.pipeline.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if err := f.pipeline.RemoveDocument(ctx, doc.ID); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if f.vectors.Count() != 0 {
		t.Errorf("vectors remain after removal: %d", f.vectors.Count())
	}
	if got, _ := f.db.GetDocument(ctx, doc.ID); got != nil {
		t.Error("document row remains after removal")
	}
}
