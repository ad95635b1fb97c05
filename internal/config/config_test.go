package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.ChunkSize != 1000 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docchat.yml")
	content := []byte("provider: ollama\nmodel: llama3\nchunk_size: 500\nchunk_overlap: 50\ntop_k: 3\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOllama || cfg.Model != "llama3" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 || cfg.TopK != 3 {
		t.Errorf("chunking values not applied: %+v", cfg)
	}
	// Untouched keys keep defaults.
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("default embedding model lost: %q", cfg.EmbeddingModel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docchat.yml")
	if err := os.WriteFile(path, []byte("model: gpt-4o\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("DOCCHAT_MODEL", "gpt-4o-mini")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("env override not applied: %q", cfg.Model)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "watson" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }},
		{"overlap >= chunk size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"history floor above budget", func(c *Config) { c.MinHistoryChars = c.MaxContextChars }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"no extensions", func(c *Config) { c.AllowedExtensions = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docchat.yml")
	cfg := DefaultConfig()
	cfg.Model = "gpt-4o-mini"
	cfg.TopK = 7

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "gpt-4o-mini" || loaded.TopK != 7 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestAllowsExtension(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.AllowsExtension("pdf") || !cfg.AllowsExtension("PDF") {
		t.Error("pdf should be allowed case-insensitively")
	}
	if cfg.AllowsExtension("exe") {
		t.Error("exe should not be allowed")
	}
}
