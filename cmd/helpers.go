package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zdk-labs/docchat/internal/chunker"
	"github.com/zdk-labs/docchat/internal/config"
	"github.com/zdk-labs/docchat/internal/embeddings"
	"github.com/zdk-labs/docchat/internal/llm"
	"github.com/zdk-labs/docchat/internal/store"
	"github.com/zdk-labs/docchat/internal/vectordb"
)

// loadConfig loads and validates the config, providing a friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docchat init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createEmbedder creates an embeddings.Embedder from config. The embedding
// provider falls back to the chat provider when unset.
func createEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDimensions, cfg.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// createProvider creates the generation provider from config.
func createProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for the OpenAI provider")
		}
		return llm.NewOpenAIProvider(apiKey, cfg.Model), nil
	case config.ProviderOllama:
		return llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// openStores opens the SQLite database and the vector store under the
// configured data directory. A missing persisted vector store is not an
// error; it just starts empty.
func openStores(cfg *config.Config) (*store.Store, *vectordb.ChromemStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "docchat.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	vectors, err := vectordb.NewChromemStore(cfg.EmbeddingDimensions)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating vector store: %w", err)
	}
	return db, vectors, nil
}

// vectorDir is where the vector store persists under the data directory.
func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectordb")
}

// newChunker builds the chunker from config.
func newChunker(cfg *config.Config) (*chunker.Chunker, error) {
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}
	return ch, nil
}
