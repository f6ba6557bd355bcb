package llm

import (
	"context"

	"github.com/kirillkom/jd-copilot/internal/core/ports"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/resilience"
)

// Resilient runs a generation backend through a resilience executor so every
// call gets bounded retries, a per-attempt deadline and a circuit breaker.
type Resilient struct {
	backend  ports.GenerationBackend
	executor *resilience.Executor
}

func NewResilient(backend ports.GenerationBackend, executor *resilience.Executor) *Resilient {
	return &Resilient{backend: backend, executor: executor}
}

func (r *Resilient) Name() string { return r.backend.Name() }

func (r *Resilient) Generate(ctx context.Context, system, user string, opts ports.GenerateOptions) (string, error) {
	if r.executor == nil {
		return r.backend.Generate(ctx, system, user, opts)
	}
	return resilience.Call(ctx, r.executor, "generate_"+r.backend.Name(), func(attemptCtx context.Context) (string, error) {
		return r.backend.Generate(attemptCtx, system, user, opts)
	}, Classify)
}
