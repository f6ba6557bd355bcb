package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	StoreDriver string
	StoreDSN    string

	NATSURL     string
	NATSSubject string

	QdrantURL        string
	QdrantCollection string

	EmbeddingProvider   string
	EmbeddingDimensions int
	EmbeddingSeed       int
	OllamaURL           string
	OllamaEmbedModel    string

	RAGTopK   int
	BatchYear string

	Generation GenerationConfig

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int

	WorkerMetricsPort string
}

// GenerationConfig describes every generation provider. Providers without
// credentials are simply not selected.
type GenerationConfig struct {
	Priority []string

	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string
	OpenRouterReferer string

	GeminiAPIKey string
	GeminiModel  string

	OllamaEnabled bool
	OllamaURL     string
	OllamaModel   string

	MaxAttempts    int
	AttemptTimeout time.Duration
}

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderOllama     = "ollama"
)

// Provider is one selected generation backend with its connection details.
type Provider struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// SelectBackends returns the configured providers in priority order. Unknown
// or duplicate names in the priority list are ignored.
func SelectBackends(gen GenerationConfig) []Provider {
	priority := gen.Priority
	if len(priority) == 0 {
		priority = []string{ProviderOpenRouter, ProviderGemini, ProviderOllama}
	}

	seen := make(map[string]struct{}, len(priority))
	out := make([]Provider, 0, len(priority))
	for _, raw := range priority {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		switch name {
		case ProviderOpenRouter:
			if strings.TrimSpace(gen.OpenRouterAPIKey) != "" {
				out = append(out, Provider{Name: name, APIKey: gen.OpenRouterAPIKey, Model: gen.OpenRouterModel, BaseURL: gen.OpenRouterBaseURL})
			}
		case ProviderGemini:
			if strings.TrimSpace(gen.GeminiAPIKey) != "" {
				out = append(out, Provider{Name: name, APIKey: gen.GeminiAPIKey, Model: gen.GeminiModel})
			}
		case ProviderOllama:
			if gen.OllamaEnabled {
				out = append(out, Provider{Name: name, Model: gen.OllamaModel, BaseURL: gen.OllamaURL})
			}
		}
	}
	return out
}

// Load reads the optional YAML file named by CONFIG_FILE and lets environment
// variables override it.
func Load() (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	ollamaURL := mustEnv("OLLAMA_URL", or(file.Ollama.URL, "http://localhost:11434"))
	return Config{
		APIPort:  mustEnv("API_PORT", or(file.API.Port, "8080")),
		LogLevel: mustEnv("LOG_LEVEL", or(file.API.LogLevel, "info")),

		StoreDriver: mustEnv("STORE_DRIVER", or(file.Store.Driver, "sqlite")),
		StoreDSN:    mustEnv("STORE_DSN", or(file.Store.DSN, "./data/placement.db")),

		NATSURL:     mustEnv("NATS_URL", or(file.NATS.URL, "nats://localhost:4222")),
		NATSSubject: mustEnv("NATS_SUBJECT", or(file.NATS.Subject, "jd.chunks")),

		QdrantURL:        mustEnv("QDRANT_URL", file.Qdrant.URL),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", or(file.Qdrant.Collection, "job_descriptions")),

		EmbeddingProvider:   mustEnv("EMBEDDING_PROVIDER", or(file.Embedding.Provider, "hashing")),
		EmbeddingDimensions: mustEnvInt("EMBEDDING_DIMENSIONS", or(file.Embedding.Dimensions, 384)),
		EmbeddingSeed:       mustEnvInt("EMBEDDING_SEED", or(file.Embedding.Seed, 42)),
		OllamaURL:           ollamaURL,
		OllamaEmbedModel:    mustEnv("OLLAMA_EMBED_MODEL", or(file.Ollama.EmbedModel, "nomic-embed-text")),

		RAGTopK:   mustEnvInt("RAG_TOP_K", or(file.RAG.TopK, 5)),
		BatchYear: mustEnv("BATCH_YEAR", or(file.RAG.BatchYear, "2024-2025")),

		Generation: GenerationConfig{
			Priority: splitList(mustEnv("GENERATION_PRIORITY", or(strings.Join(file.Generation.Priority, ","), "openrouter,gemini,ollama"))),

			OpenRouterAPIKey:  mustEnv("OPENROUTER_API_KEY", file.Generation.OpenRouter.APIKey),
			OpenRouterModel:   mustEnv("OPENROUTER_MODEL", or(file.Generation.OpenRouter.Model, "openai/gpt-4o-mini")),
			OpenRouterBaseURL: mustEnv("OPENROUTER_BASE_URL", or(file.Generation.OpenRouter.BaseURL, "https://openrouter.ai/api/v1")),
			OpenRouterReferer: mustEnv("OPENROUTER_REFERER", file.Generation.OpenRouter.Referer),

			GeminiAPIKey: mustEnv("GEMINI_API_KEY", file.Generation.Gemini.APIKey),
			GeminiModel:  mustEnv("GEMINI_MODEL", or(file.Generation.Gemini.Model, "gemini-1.5-flash")),

			OllamaEnabled: mustEnvBool("OLLAMA_GENERATION_ENABLED", file.Generation.Ollama.Enabled),
			OllamaURL:     ollamaURL,
			OllamaModel:   mustEnv("OLLAMA_GEN_MODEL", or(file.Ollama.GenModel, "llama3.1:8b")),

			MaxAttempts:    mustEnvInt("GENERATION_MAX_ATTEMPTS", or(file.Generation.MaxAttempts, 2)),
			AttemptTimeout: time.Duration(mustEnvInt("GENERATION_TIMEOUT_SECONDS", or(file.Generation.TimeoutSeconds, 30))) * time.Second,
		},

		RateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", or(file.API.RateLimitRPS, 20)),
		RateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", or(file.API.RateLimitBurst, 40)),
		MaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", or(file.API.MaxInFlight, 64)),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", or(file.Worker.MetricsPort, "9090")),
	}, nil
}

type fileConfig struct {
	API struct {
		Port           string  `yaml:"port"`
		LogLevel       string  `yaml:"log_level"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
		MaxInFlight    int     `yaml:"max_in_flight"`
	} `yaml:"api"`
	Store struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Qdrant struct {
		URL        string `yaml:"url"`
		Collection string `yaml:"collection"`
	} `yaml:"qdrant"`
	Embedding struct {
		Provider   string `yaml:"provider"`
		Dimensions int    `yaml:"dimensions"`
		Seed       int    `yaml:"seed"`
	} `yaml:"embedding"`
	Ollama struct {
		URL        string `yaml:"url"`
		GenModel   string `yaml:"gen_model"`
		EmbedModel string `yaml:"embed_model"`
	} `yaml:"ollama"`
	RAG struct {
		TopK      int    `yaml:"top_k"`
		BatchYear string `yaml:"batch_year"`
	} `yaml:"rag"`
	Generation struct {
		Priority       []string `yaml:"priority"`
		MaxAttempts    int      `yaml:"max_attempts"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		OpenRouter     struct {
			APIKey  string `yaml:"api_key"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"base_url"`
			Referer string `yaml:"referer"`
		} `yaml:"openrouter"`
		Gemini struct {
			APIKey string `yaml:"api_key"`
			Model  string `yaml:"model"`
		} `yaml:"gemini"`
		Ollama struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"ollama"`
	} `yaml:"generation"`
	Worker struct {
		MetricsPort string `yaml:"metrics_port"`
	} `yaml:"worker"`
}

// or returns v unless it is the zero value.
func or[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
