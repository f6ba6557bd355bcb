package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GENERATION_PRIORITY", "")
	t.Setenv("QDRANT_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QdrantURL != "" {
		t.Fatalf("expected no vector index without QDRANT_URL, got %q", cfg.QdrantURL)
	}
	if cfg.StoreDriver != "sqlite" || cfg.RAGTopK != 5 || cfg.BatchYear != "2024-2025" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Generation.MaxAttempts != 2 || cfg.Generation.AttemptTimeout != 30*time.Second {
		t.Fatalf("unexpected generation defaults %+v", cfg.Generation)
	}
	if got := len(cfg.Generation.Priority); got != 3 {
		t.Fatalf("expected default priority of 3 providers, got %v", cfg.Generation.Priority)
	}
	if backends := SelectBackends(cfg.Generation); len(backends) != 0 {
		t.Fatalf("expected no backends without credentials, got %+v", backends)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := `
api:
  port: "9000"
store:
  driver: postgres
  dsn: postgres://file
rag:
  top_k: 8
generation:
  priority: [gemini, openrouter]
  gemini:
    api_key: from-file
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STORE_DSN", "postgres://env")
	t.Setenv("GENERATION_PRIORITY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("RAG_TOP_K", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9000" || cfg.StoreDriver != "postgres" || cfg.RAGTopK != 8 {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.StoreDSN != "postgres://env" {
		t.Fatalf("expected env override, got %q", cfg.StoreDSN)
	}
	if cfg.Generation.GeminiAPIKey != "from-file" || cfg.Generation.Priority[0] != "gemini" {
		t.Fatalf("unexpected generation config %+v", cfg.Generation)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSelectBackendsHonorsPriority(t *testing.T) {
	gen := GenerationConfig{
		Priority:         []string{"ollama", "gemini", "unknown", "gemini", "openrouter"},
		OpenRouterAPIKey: "or-key",
		GeminiAPIKey:     "gm-key",
		OllamaEnabled:    true,
	}
	got := SelectBackends(gen)
	want := []string{ProviderOllama, ProviderGemini, ProviderOpenRouter}
	if len(got) != len(want) {
		t.Fatalf("SelectBackends() = %+v", got)
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, got[i].Name, want[i])
		}
	}
}

func TestSelectBackendsSkipsUnconfigured(t *testing.T) {
	got := SelectBackends(GenerationConfig{GeminiAPIKey: " "})
	if len(got) != 0 {
		t.Fatalf("expected blank key to be ignored, got %+v", got)
	}
	got = SelectBackends(GenerationConfig{OpenRouterAPIKey: "k"})
	if len(got) != 1 || got[0].Name != ProviderOpenRouter || got[0].APIKey != "k" {
		t.Fatalf("unexpected selection %+v", got)
	}
}
