package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            ProviderOpenAI,
		Model:               "gpt-4o",
		EmbeddingProvider:   ProviderOpenAI,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		TopK:                5,
		MaxContextChars:     12000,
		MinHistoryChars:     2000,
		EmbedTimeoutSecs:    30,
		GenerateTimeoutSecs: 120,
		Port:                8080,
		DataDir:             ".docchat",
		MaxFileSizeMB:       50,
		AllowedExtensions:   []string{"pdf", "txt", "md"},
	}
}
