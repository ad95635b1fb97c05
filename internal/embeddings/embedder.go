package embeddings

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the embedding provider failed or timed out.
// Callers may retry with backoff; retrieval degrades to an empty context.
var ErrUnavailable = errors.New("embeddings: provider unavailable")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	// The value is fixed for the lifetime of a deployment.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}
