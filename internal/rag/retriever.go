// Package rag runs the retrieval-augmented generation pipeline: retrieve
// relevant chunks for a query, assemble them with conversation history into
// a prompt, generate an answer and trace it back to its sources.
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/zdk-labs/docchat/internal/embeddings"
	"github.com/zdk-labs/docchat/internal/vectordb"
)

// Retriever finds the chunks most relevant to a query within a document
// scope. An empty scope widens retrieval to the whole project.
type Retriever struct {
	embedder     embeddings.Embedder
	vectors      vectordb.VectorStore
	topK         int
	embedTimeout time.Duration
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder embeddings.Embedder, vectors vectordb.VectorStore, topK int, embedTimeout time.Duration) *Retriever {
	return &Retriever{
		embedder:     embedder,
		vectors:      vectors,
		topK:         topK,
		embedTimeout: embedTimeout,
	}
}

// Retrieve embeds the query and returns up to topK scoped chunks, most
// similar first. Fewer candidates than topK, or none at all, is a valid
// result rather than an error.
func (r *Retriever) Retrieve(ctx context.Context, query, projectID string, docScope []string) ([]vectordb.ScoredChunk, error) {
	embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()

	vecs, err := r.embedder.Embed(embedCtx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", embeddings.ErrUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: embedding query: got %d vectors", embeddings.ErrUnavailable, len(vecs))
	}

	filter := vectordb.ScopeFilter{ProjectID: projectID, DocumentIDs: docScope}
	return r.vectors.Query(ctx, vecs[0], filter, r.topK)
}
