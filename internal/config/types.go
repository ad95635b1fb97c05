package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level docchat configuration, corresponding to
// .docchat.yml. Values are passed into components at construction; nothing
// reads this from ambient global state.
type Config struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`

	EmbeddingProvider   ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int          `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`

	OllamaBaseURL string `yaml:"ollama_base_url" koanf:"ollama_base_url"`

	// Chunking and retrieval. Sizes are measured in characters.
	ChunkSize       int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TopK            int `yaml:"top_k" koanf:"top_k"`
	MaxContextChars int `yaml:"max_context_chars" koanf:"max_context_chars"`
	MinHistoryChars int `yaml:"min_history_chars" koanf:"min_history_chars"`

	// Provider call timeouts in seconds.
	EmbedTimeoutSecs    int `yaml:"embed_timeout_secs" koanf:"embed_timeout_secs"`
	GenerateTimeoutSecs int `yaml:"generate_timeout_secs" koanf:"generate_timeout_secs"`

	Port    int    `yaml:"port" koanf:"port"`
	DataDir string `yaml:"data_dir" koanf:"data_dir"`

	MaxFileSizeMB     int      `yaml:"max_file_size_mb" koanf:"max_file_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions" koanf:"allowed_extensions"`
}
