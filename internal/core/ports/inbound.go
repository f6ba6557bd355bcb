package ports

import (
	"context"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

// QueryService is the inbound contract for answering placement questions.
type QueryService interface {
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
	Analyze(ctx context.Context, question string, useLLM bool) domain.QueryAnalysis
}

// QuestionClassifier assigns a query type and extracted parameters.
type QuestionClassifier interface {
	Classify(ctx context.Context, question string) domain.Classification
}

// PlacementReader is the inbound read model over the structured store.
type PlacementReader interface {
	Stats(ctx context.Context, filter domain.StatsFilter) (domain.PlacementStats, error)
	ListCompanies(ctx context.Context) ([]domain.CompanySummary, error)
	SearchSkills(ctx context.Context, skill, company string) ([]domain.SkillRole, error)
	CompaniesBySpecialization(ctx context.Context, filter domain.StatsFilter) ([]domain.SpecializationCompany, error)
	CompareCompany(ctx context.Context, company, batchYear string) (domain.CompanyComparison, error)
	SpecializationInsights(ctx context.Context, filter domain.StatsFilter) (domain.SpecializationInsights, error)
	MedianSalary(ctx context.Context, filter domain.StatsFilter) (domain.MedianSalary, error)
}

// ResumeMatcher ranks indexed job descriptions against a resume.
type ResumeMatcher interface {
	Match(ctx context.Context, resumeText string, topK int) ([]domain.ResumeMatch, error)
}

// ChunkIndexer is the inbound contract for the indexing worker.
type ChunkIndexer interface {
	IndexBatch(ctx context.Context, batch domain.ChunkBatch) error
}
