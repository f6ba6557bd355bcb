package usecase

import (
	"context"
	"sync"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

type backendFake struct {
	name string
	text string
	err  error

	mu      sync.Mutex
	calls   int
	system  string
	user    string
	options ports.GenerateOptions
}

func (f *backendFake) Name() string { return f.name }

func (f *backendFake) Generate(ctx context.Context, system, user string, opts ports.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.system = system
	f.user = user
	f.options = opts
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *backendFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type embedderFake struct {
	err     error
	queries []string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for range texts {
		out = append(out, []float32{0.1, 0.2, 0.3})
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type indexFake struct {
	matches []domain.VectorMatch
	err     error

	limit  int
	filter domain.SearchFilter

	upserted [][]domain.ChunkRecord
}

func (f *indexFake) Query(_ context.Context, _ []float32, limit int, filter domain.SearchFilter) ([]domain.VectorMatch, error) {
	f.limit = limit
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *indexFake) Upsert(_ context.Context, chunks []domain.ChunkRecord, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, chunks)
	return nil
}

type storeFake struct {
	stats     domain.PlacementStats
	statsErr  error
	salaries  []domain.CompanySalary
	salaryErr error

	mu          sync.Mutex
	statsFilter domain.StatsFilter
	threshold   float64
	operator    string
	recorded    []domain.ChunkRecord
}

func (f *storeFake) Stats(_ context.Context, filter domain.StatsFilter) (domain.PlacementStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsFilter = filter
	return f.stats, f.statsErr
}

func (f *storeFake) CompaniesBySalary(_ context.Context, threshold float64, operator string, _ int) ([]domain.CompanySalary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = threshold
	f.operator = operator
	return f.salaries, f.salaryErr
}

func (f *storeFake) ListCompanies(context.Context) ([]domain.CompanySummary, error) {
	return nil, nil
}

func (f *storeFake) RecordChunk(_ context.Context, chunk domain.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, chunk)
	return nil
}
