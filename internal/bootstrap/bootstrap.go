package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/config"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
	"github.com/kirillkom/jd-copilot/internal/core/usecase"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/embedding/hashing"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/llm"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/llm/openrouter"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/queue/nats"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/resilience"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/jd-copilot/internal/observability/metrics"
)

type Options struct {
	Logger *slog.Logger
	// Metrics receives query, generation and breaker observations. Optional.
	Metrics *metrics.HTTPServerMetrics
	// ConnectQueue opens the NATS connection; only processes that publish or
	// consume chunk batches need it.
	ConnectQueue bool
	// SkipStore leaves the structured store unconfigured.
	SkipStore bool
	// EnsureCollection creates the Qdrant collection on startup when the
	// embedder reports a fixed dimension.
	EnsureCollection bool
}

type dimensioned interface {
	Dimensions() int
}

type App struct {
	Config config.Config

	Store    *sqlstore.PlacementStore
	Queue    *nats.Queue
	Backends []ports.GenerationBackend

	QueryUC  *usecase.QueryOrchestrator
	ResumeUC *usecase.ResumeMatcher
	IndexUC  *usecase.IndexChunksUseCase

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	var vectorIndex ports.VectorIndex
	var vectorWriter ports.VectorIndexWriter
	if strings.TrimSpace(cfg.QdrantURL) != "" {
		vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
		vectorIndex = vectorDB
		vectorWriter = vectorDB
		if sized, ok := embedder.(dimensioned); ok && opts.EnsureCollection {
			if err := vectorDB.EnsureCollection(ctx, sized.Dimensions()); err != nil {
				logger.Warn("qdrant_collection_ensure_failed",
					"collection", cfg.QdrantCollection,
					"error", err,
				)
			}
		}
	}

	var store ports.StructuredStore
	var facts ports.ChunkFactRecorder
	if !opts.SkipStore && strings.TrimSpace(cfg.StoreDSN) != "" {
		placements, err := app.openStore(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Store = placements
		store = placements
		facts = placements
	}

	backends, err := app.newBackends(ctx, cfg.Generation, opts, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Backends = backends

	var generationObserver usecase.GenerationObserver
	var queryObserver usecase.QueryObserver
	if opts.Metrics != nil {
		generationObserver = opts.Metrics
		queryObserver = opts.Metrics
	}

	orchestratorOpts := usecase.OrchestratorOptions{
		DefaultTopK: cfg.RAGTopK,
		BatchYear:   cfg.BatchYear,
		Observer:    queryObserver,
		Logger:      logger,
	}
	if len(backends) > 0 {
		orchestratorOpts.LLMClassifier = usecase.NewLLMClassifier(backends, logger)
	}
	retriever := usecase.NewRetriever(embedder, vectorIndex, logger)
	app.QueryUC = usecase.NewQueryOrchestrator(
		usecase.NewPatternClassifier(),
		retriever,
		usecase.NewAnswerSynthesizer(backends, generationObserver, logger),
		store,
		orchestratorOpts,
	)
	app.ResumeUC = usecase.NewResumeMatcher(retriever, logger)
	app.IndexUC = usecase.NewIndexChunksUseCase(embedder, vectorWriter, facts, logger)

	if opts.ConnectQueue {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ClientName: "jd-copilot",
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(),
				resilience.WithLogger(logger),
				breakerListener(opts.Metrics),
			),
			Logger: logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.closeFns = append(app.closeFns, queue.Close)
	}

	return app, nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

func newEmbedder(cfg config.Config) (ports.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider)) {
	case "", "hashing":
		return hashing.New(cfg.EmbeddingDimensions, uint64(cfg.EmbeddingSeed)), nil
	case "ollama":
		return ollama.NewEmbedder(ollama.New(cfg.OllamaURL, "", cfg.OllamaEmbedModel)), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (*sqlstore.PlacementStore, error) {
	dialect, err := sqlstore.ParseDialect(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	if dialect == sqlstore.DialectSQLite {
		if err := ensureSQLiteDir(cfg.StoreDSN); err != nil {
			return nil, err
		}
	}

	db, err := sqlstore.OpenDB(ctx, dialect, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open structured store: %w", err)
	}
	a.closeFns = append(a.closeFns, func() { _ = db.Close() })

	if err := sqlstore.EnsureSchema(ctx, db, dialect); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return sqlstore.NewPlacementStore(db, dialect), nil
}

func ensureSQLiteDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory: %w", err)
	}
	return nil
}

// newBackends builds the generation fallback chain in configured priority
// order. Every backend shares one executor; breakers are keyed per backend.
func (a *App) newBackends(ctx context.Context, gen config.GenerationConfig, opts Options, logger *slog.Logger) ([]ports.GenerationBackend, error) {
	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = gen.MaxAttempts
	policy.AttemptTimeout = gen.AttemptTimeout
	executor := resilience.NewExecutor(policy, resilience.WithLogger(logger), breakerListener(opts.Metrics))

	providers := config.SelectBackends(gen)
	backends := make([]ports.GenerationBackend, 0, len(providers))
	for _, provider := range providers {
		var backend ports.GenerationBackend
		switch provider.Name {
		case config.ProviderOpenRouter:
			backend = openrouter.New(provider.APIKey, provider.Model,
				openrouter.WithBaseURL(provider.BaseURL),
				openrouter.WithReferer(gen.OpenRouterReferer),
			)
		case config.ProviderGemini:
			client, err := gemini.New(ctx, provider.APIKey, provider.Model)
			if err != nil {
				return nil, fmt.Errorf("init gemini backend: %w", err)
			}
			a.closeFns = append(a.closeFns, func() { _ = client.Close() })
			backend = client
		case config.ProviderOllama:
			backend = ollama.NewGenerator(ollama.New(provider.BaseURL, provider.Model, ""))
		default:
			continue
		}
		backends = append(backends, llm.NewResilient(backend, executor))
	}

	names := make([]string, 0, len(backends))
	for _, backend := range backends {
		names = append(names, backend.Name())
	}
	logger.Info("generation_backends_selected", "backends", names)
	return backends, nil
}

func breakerListener(m *metrics.HTTPServerMetrics) resilience.Option {
	if m == nil {
		return resilience.WithStateListener(nil)
	}
	return resilience.WithStateListener(m.RecordBreakerState)
}
