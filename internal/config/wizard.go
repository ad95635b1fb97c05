package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .docchat.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to docchat! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat provider.
	providerPrompt := promptui.Select{
		Label: "Select chat provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Chat model.
	defaultModel := "gpt-4o"
	if cfg.Provider == ProviderOllama {
		defaultModel = "llama3"
	}
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: defaultModel,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model prompt: %w", err)
	}
	cfg.Model = model

	// 3. Embedding provider and model.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama"},
	}
	_, embedStr, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding provider selection: %w", err)
	}
	cfg.EmbeddingProvider = ProviderType(embedStr)

	if cfg.EmbeddingProvider == ProviderOllama {
		cfg.EmbeddingModel = "nomic-embed-text"
		cfg.EmbeddingDimensions = 768
	}
	embedModelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: cfg.EmbeddingModel,
	}
	embedModel, err := embedModelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model prompt: %w", err)
	}
	cfg.EmbeddingModel = embedModel

	dimsPrompt := promptui.Prompt{
		Label:   "Embedding dimensions",
		Default: strconv.Itoa(cfg.EmbeddingDimensions),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("must be a positive integer")
			}
			return nil
		},
	}
	dimsStr, err := dimsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("dimensions prompt: %w", err)
	}
	cfg.EmbeddingDimensions, _ = strconv.Atoi(dimsStr)

	// 4. Data directory.
	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	dataDir, err := dataDirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir prompt: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := cfg.Save(".docchat.yml"); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Println("Configuration saved to .docchat.yml")
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		fmt.Printf("Remember to set %s before running docchat serve.\n", envVar)
	}
	return cfg, nil
}
