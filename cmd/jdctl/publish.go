package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/jd-copilot/internal/config"
	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/queue/nats"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/resilience"
)

const maxRecordBytes = 4 << 20

var publishBatchSize int

var publishCmd = &cobra.Command{
	Use:   "publish <chunks.jsonl|->",
	Short: "Publish pre-chunked job-description records to the indexing queue",
	Long: `Reads one JSON chunk record per line ({"id", "text", "metadata"}) and
publishes them in batches to the configured NATS subject for the worker.`,
	Example: `  jdctl publish ./data/chunks.jsonl
  cat chunks.jsonl | jdctl publish --batch-size 64 -`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().IntVar(&publishBatchSize, "batch-size", 32, "Chunks per published batch")
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open chunk file: %w", err)
		}
		defer f.Close()
		in = f
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ClientName:         "jdctl",
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), resilience.WithLogger(logger)),
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	defer queue.Close()

	batches, chunks, err := publishChunks(cmd.Context(), queue, in, publishBatchSize)
	if err != nil {
		return err
	}

	flushCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	if err := queue.Flush(flushCtx); err != nil {
		return err
	}

	logger.Info("chunks_published", "subject", cfg.NATSSubject, "batches", batches, "chunks", chunks)
	fmt.Fprintf(cmd.OutOrStdout(), "published %d chunks in %d batches\n", chunks, batches)
	return nil
}

// publishChunks streams JSONL records from r into batches of batchSize.
// Blank lines are skipped; a malformed line aborts with its line number.
func publishChunks(ctx context.Context, queue ports.ChunkQueue, r io.Reader, batchSize int) (int, int, error) {
	if batchSize <= 0 {
		batchSize = 32
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxRecordBytes)

	var (
		pending []domain.ChunkRecord
		batches int
		chunks  int
		line    int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := queue.PublishChunkBatch(ctx, domain.ChunkBatch{Chunks: pending}); err != nil {
			return fmt.Errorf("publish batch %d: %w", batches+1, err)
		}
		batches++
		chunks += len(pending)
		pending = nil
		return nil
	}

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var record domain.ChunkRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return batches, chunks, domain.WrapError(domain.ErrInvalidInput, "publish", fmt.Errorf("line %d: %w", line, err))
		}
		if strings.TrimSpace(record.ID) == "" {
			return batches, chunks, domain.WrapError(domain.ErrInvalidInput, "publish", fmt.Errorf("line %d: chunk id is required", line))
		}
		pending = append(pending, record)
		if len(pending) >= batchSize {
			if err := flush(); err != nil {
				return batches, chunks, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return batches, chunks, fmt.Errorf("read chunk records: %w", err)
	}
	if err := flush(); err != nil {
		return batches, chunks, err
	}
	return batches, chunks, nil
}
