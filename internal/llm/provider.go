package llm

import (
	"context"
	"errors"
)

// ErrGenerationFailed indicates the generation provider failed or timed out.
// It is terminal for the request it occurred in; the caller's question is
// preserved even when no answer could be produced.
var ErrGenerationFailed = errors.New("llm: generation failed")

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
