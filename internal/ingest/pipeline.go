// Package ingest turns uploaded documents into queryable chunk vectors.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zdk-labs/docchat/internal/chunker"
	"github.com/zdk-labs/docchat/internal/embeddings"
	"github.com/zdk-labs/docchat/internal/store"
	"github.com/zdk-labs/docchat/internal/vectordb"
)

// ProgressFunc is called after each document finishes (or fails).
type ProgressFunc func(done, total int, documentName string)

// Pipeline runs the ingestion path: split -> embed -> upsert -> mark ready.
// One document is one unit of work; a document only becomes queryable once
// every one of its chunks has been stored.
type Pipeline struct {
	chunker      *chunker.Chunker
	embedder     embeddings.Embedder
	vectors      vectordb.VectorStore
	db           *store.Store
	embedTimeout time.Duration
	onProgress   ProgressFunc
}

// NewPipeline creates a Pipeline.
func NewPipeline(ch *chunker.Chunker, embedder embeddings.Embedder, vectors vectordb.VectorStore, db *store.Store, embedTimeout time.Duration) *Pipeline {
	return &Pipeline{
		chunker:      ch,
		embedder:     embedder,
		vectors:      vectors,
		db:           db,
		embedTimeout: embedTimeout,
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

// IngestDocument chunks, embeds and stores one document. On failure the
// document is marked failed and no partial chunk set is queryable.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *store.Document) error {
	if err := p.db.SetDocumentStatus(ctx, doc.ID, store.StatusIngesting); err != nil {
		return err
	}

	if err := p.ingest(ctx, doc); err != nil {
		if statusErr := p.db.SetDocumentStatus(ctx, doc.ID, store.StatusFailed); statusErr != nil {
			log.Printf("marking document %s failed: %v", doc.ID, statusErr)
		}
		return err
	}
	return nil
}

func (p *Pipeline) ingest(ctx context.Context, doc *store.Document) error {
	texts := p.chunker.Split(doc.Text)
	if len(texts) == 0 {
		return p.db.MarkDocumentReady(ctx, doc.ID, 0)
	}

	embedCtx, cancel := context.WithTimeout(ctx, p.embedTimeout)
	defer cancel()
	vecs, err := p.embedder.Embed(embedCtx, texts)
	if err != nil {
		return fmt.Errorf("%w: embedding document %s: %v", embeddings.ErrUnavailable, doc.ID, err)
	}
	if len(vecs) != len(texts) {
		return fmt.Errorf("%w: embedding document %s: got %d vectors for %d chunks",
			embeddings.ErrUnavailable, doc.ID, len(vecs), len(texts))
	}

	chunks := make([]vectordb.ChunkRecord, len(texts))
	for i, text := range texts {
		ordinal := i + 1
		chunks[i] = vectordb.ChunkRecord{
			ID:           vectordb.ChunkID(doc.ID, ordinal),
			ProjectID:    doc.ProjectID,
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Ordinal:      ordinal,
			Text:         text,
			Embedding:    vecs[i],
		}
	}

	// Drop stale vectors from a previous ingestion before writing the new
	// set; chunk IDs are positional, so a shrunk document could otherwise
	// leave orphans behind.
	if err := p.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("deleting stale chunks for document %s: %w", doc.ID, err)
	}
	if err := p.vectors.UpsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("storing chunks for document %s: %w", doc.ID, err)
	}

	return p.db.MarkDocumentReady(ctx, doc.ID, len(chunks))
}

// Result summarizes a batch ingestion run.
type Result struct {
	Processed int
	Failed    int
	Errors    []error
}

// IngestAll ingests documents one by one. A failing document is recorded
// and skipped; it never aborts its siblings.
func (p *Pipeline) IngestAll(ctx context.Context, docs []store.Document) *Result {
	result := &Result{}
	for i := range docs {
		doc := &docs[i]
		if err := p.IngestDocument(ctx, doc); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			log.Printf("ingesting %s: %v", doc.Name, err)
		} else {
			result.Processed++
		}
		if p.onProgress != nil {
			p.onProgress(i+1, len(docs), doc.Name)
		}
	}
	return result
}

// RemoveDocument deletes a document's vectors and its database row.
func (p *Pipeline) RemoveDocument(ctx context.Context, documentID string) error {
	if err := p.vectors.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting chunks for document %s: %w", documentID, err)
	}
	return p.db.DeleteDocument(ctx, documentID)
}
