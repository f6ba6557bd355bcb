package ports

import (
	"context"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

// Embedder builds vectors for chunks and query text. Output dimensionality
// is fixed per instance.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs similarity search over indexed job-description chunks.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, limit int, filter domain.SearchFilter) ([]domain.VectorMatch, error)
}

// VectorIndexWriter is used by the indexing worker only.
type VectorIndexWriter interface {
	Upsert(ctx context.Context, chunks []domain.ChunkRecord, vectors [][]float32) error
}

type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// GenerationBackend turns a system and user prompt into text.
type GenerationBackend interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)
}

// StructuredStore answers aggregate placement questions.
type StructuredStore interface {
	Stats(ctx context.Context, filter domain.StatsFilter) (domain.PlacementStats, error)
	CompaniesBySalary(ctx context.Context, threshold float64, operator string, limit int) ([]domain.CompanySalary, error)
	ListCompanies(ctx context.Context) ([]domain.CompanySummary, error)
}

// ChunkFactRecorder stores company and role facts observed while indexing.
type ChunkFactRecorder interface {
	RecordChunk(ctx context.Context, chunk domain.ChunkRecord) error
}

// ChunkQueue carries pre-chunked records from publishers to the indexing worker.
type ChunkQueue interface {
	PublishChunkBatch(ctx context.Context, batch domain.ChunkBatch) error
	SubscribeChunkBatches(ctx context.Context, handler func(context.Context, domain.ChunkBatch) error) error
}
