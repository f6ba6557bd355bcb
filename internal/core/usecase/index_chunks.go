package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

type IndexChunksUseCase struct {
	embedder ports.Embedder
	index    ports.VectorIndexWriter
	facts    ports.ChunkFactRecorder
	logger   *slog.Logger
}

// NewIndexChunksUseCase builds the worker-side indexer. facts may be nil when
// no structured store is configured.
func NewIndexChunksUseCase(
	embedder ports.Embedder,
	index ports.VectorIndexWriter,
	facts ports.ChunkFactRecorder,
	logger *slog.Logger,
) *IndexChunksUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexChunksUseCase{
		embedder: embedder,
		index:    index,
		facts:    facts,
		logger:   logger,
	}
}

func (uc *IndexChunksUseCase) IndexBatch(ctx context.Context, batch domain.ChunkBatch) error {
	chunks, err := validChunks(batch.Chunks)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	if uc.index == nil {
		return domain.WrapError(domain.ErrConfiguration, "index batch", errors.New("vector index is not configured"))
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if err := uc.index.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("upsert chunks in vector index: %w", err)
	}

	if uc.facts != nil {
		for _, chunk := range chunks {
			if err := uc.facts.RecordChunk(ctx, chunk); err != nil {
				return fmt.Errorf("record chunk %s facts: %w", chunk.ID, err)
			}
		}
	}

	uc.logger.Info("chunk_batch_indexed", "batch_id", batch.BatchID, "chunks", len(chunks))
	return nil
}

func (uc *IndexChunksUseCase) embed(ctx context.Context, chunks []domain.ChunkRecord) ([][]float32, error) {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	return vectors, nil
}

// validChunks drops chunks without text and rejects chunks without an id.
func validChunks(in []domain.ChunkRecord) ([]domain.ChunkRecord, error) {
	out := make([]domain.ChunkRecord, 0, len(in))
	for i, chunk := range in {
		if strings.TrimSpace(chunk.ID) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "index chunks", fmt.Errorf("chunk %d has no id", i))
		}
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		out = append(out, chunk)
	}
	if len(in) > 0 && len(out) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "index chunks", errors.New("batch contains only empty chunks"))
	}
	return out, nil
}
