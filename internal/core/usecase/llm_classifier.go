package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

const (
	llmClassifierSystemPrompt = "You are a precise query classifier. Respond with ONLY one word: SQL, RAG, or HYBRID."
	llmClassifierTimeout      = 10 * time.Second
)

// LLMClassifier asks a generation backend to pick SQL, RAG or HYBRID.
// Every failure path resolves to HYBRID.
type LLMClassifier struct {
	backend ports.GenerationBackend
	timeout time.Duration
	logger  *slog.Logger
}

// NewLLMClassifier uses the first backend in priority order, if any.
func NewLLMClassifier(backends []ports.GenerationBackend, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	c := &LLMClassifier{timeout: llmClassifierTimeout, logger: logger}
	if len(backends) > 0 {
		c.backend = backends[0]
	}
	return c
}

func (c *LLMClassifier) Classify(ctx context.Context, question string) domain.Classification {
	if c.backend == nil {
		return hybridFallback(question, "no_api_key")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.backend.Generate(callCtx, llmClassifierSystemPrompt, buildClassificationPrompt(question), ports.GenerateOptions{
		Temperature: 0,
		MaxTokens:   10,
	})
	if err != nil {
		c.logger.Warn("llm_classification_failed", "backend", c.backend.Name(), "error", err)
		return hybridFallback(question, "llm_api_error")
	}

	lower := strings.ToLower(question)
	label := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(label, "SQL"):
		return domain.Classification{Type: domain.QueryStructured, Params: extractStructuredParams(question, lower)}
	case strings.Contains(label, "RAG"):
		return domain.Classification{Type: domain.QueryUnstructured, Params: extractUnstructuredParams(question, lower)}
	case strings.Contains(label, "HYBRID"):
		return domain.Classification{Type: domain.QueryHybrid, Params: extractHybridParams(question, lower)}
	default:
		c.logger.Warn("llm_classification_unexpected", "backend", c.backend.Name(), "response", raw)
		return hybridFallback(question, "unexpected_llm_response")
	}
}

func hybridFallback(question, reason string) domain.Classification {
	return domain.Classification{
		Type:   domain.QueryHybrid,
		Params: domain.ClassificationParams{Query: question, Fallback: reason},
	}
}

func buildClassificationPrompt(question string) string {
	return `You are a query router for a placement database.
Classify the user's query into one of:
- SQL (counts, statistics, totals, averages, medians, comparisons across companies or years)
- RAG (open-ended, descriptive, unstructured answers requiring JD details)
- HYBRID (needs both SQL stats + JD text details).

Respond ONLY with one label: SQL, RAG, or HYBRID.

User Query: "` + question + `"

Classification:`
}
