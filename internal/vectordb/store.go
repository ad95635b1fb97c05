package vectordb

import (
	"context"
	"errors"
)

// ErrDimensionMismatch indicates a vector whose dimension differs from the
// store's fixed dimension. Mismatches are never truncated or padded.
var ErrDimensionMismatch = errors.New("vectordb: embedding dimension mismatch")

// VectorStore persists chunk embeddings and answers scoped nearest-neighbor
// queries.
type VectorStore interface {
	// UpsertChunks adds or replaces chunks. It is idempotent per chunk ID.
	// None of the chunks become queryable unless the whole batch succeeds.
	UpsertChunks(ctx context.Context, chunks []ChunkRecord) error

	// Query returns up to topK chunks matching the scope filter, ordered by
	// descending similarity to vec. Score ties break by chunk ordinal
	// ascending so identical queries return identical orderings.
	Query(ctx context.Context, vec []float32, filter ScopeFilter, topK int) ([]ScoredChunk, error)

	// DeleteByDocument removes all chunks of a document. Deleting a document
	// with no chunks is a no-op, not an error.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Count returns the number of queryable chunks in the store.
	Count() int

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error
}
