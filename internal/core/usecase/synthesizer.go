package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

const (
	synthesisTemperature = 0
	synthesisMaxTokens   = 2048
)

// GenerationObserver receives per-backend outcomes. It may be nil.
type GenerationObserver interface {
	RecordGeneration(backend, outcome string)
}

type AnswerSynthesizer struct {
	backends []ports.GenerationBackend
	observer GenerationObserver
	logger   *slog.Logger
}

// NewAnswerSynthesizer takes backends already ordered by priority. Retries
// and timeouts are the responsibility of each backend.
func NewAnswerSynthesizer(backends []ports.GenerationBackend, observer GenerationObserver, logger *slog.Logger) *AnswerSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerSynthesizer{
		backends: append([]ports.GenerationBackend(nil), backends...),
		observer: observer,
		logger:   logger,
	}
}

// Synthesize returns nil when there is nothing to ground an answer in, or
// when every backend failed or returned empty text. The only error is
// cancellation of ctx.
func (s *AnswerSynthesizer) Synthesize(
	ctx context.Context,
	question string,
	results domain.RankedResultSet,
	filters domain.QueryFilters,
) (*domain.Answer, error) {
	if results.Empty() {
		return nil, nil
	}
	if len(s.backends) == 0 {
		s.logger.Info("synthesis_skipped", "reason", "no_backend_configured")
		return nil, nil
	}

	system, user := BuildSynthesisPrompt(question, results.Passages, filters, results.FullDocument)
	opts := ports.GenerateOptions{Temperature: synthesisTemperature, MaxTokens: synthesisMaxTokens}

	for _, backend := range s.backends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := backend.Generate(ctx, system, user, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.record(backend.Name(), "error")
			s.logger.Warn("generation_backend_failed", "backend", backend.Name(), "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			s.record(backend.Name(), "empty")
			s.logger.Warn("generation_backend_empty", "backend", backend.Name())
			continue
		}

		s.record(backend.Name(), "success")
		return &domain.Answer{Text: text, Backend: backend.Name()}, nil
	}

	s.logger.Warn("generation_backends_exhausted", "backends", len(s.backends))
	return nil, nil
}

func (s *AnswerSynthesizer) record(backend, outcome string) {
	if s.observer != nil {
		s.observer.RecordGeneration(backend, outcome)
	}
}
