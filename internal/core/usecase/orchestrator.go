package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

const multiHopCompanyLimit = 5

// QueryObserver receives one observation per answered query. It may be nil.
type QueryObserver interface {
	RecordQuery(queryType string, passages int, answered bool)
}

type OrchestratorOptions struct {
	DefaultTopK int
	BatchYear   string
	// LLMClassifier serves requests that opt into generation-backed classification.
	LLMClassifier ports.QuestionClassifier
	Observer      QueryObserver
	Logger        *slog.Logger
}

type QueryOrchestrator struct {
	classifier    ports.QuestionClassifier
	llmClassifier ports.QuestionClassifier
	retriever     *Retriever
	synthesizer   *AnswerSynthesizer
	store         ports.StructuredStore

	defaultTopK int
	batchYear   string
	observer    QueryObserver
	logger      *slog.Logger
}

// NewQueryOrchestrator wires the query pipeline. store may be nil, in which
// case structured questions fall back to retrieval.
func NewQueryOrchestrator(
	classifier ports.QuestionClassifier,
	retriever *Retriever,
	synthesizer *AnswerSynthesizer,
	store ports.StructuredStore,
	opts OrchestratorOptions,
) *QueryOrchestrator {
	if classifier == nil {
		classifier = NewPatternClassifier()
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	if strings.TrimSpace(opts.BatchYear) == "" {
		opts.BatchYear = domain.DefaultBatchYear
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &QueryOrchestrator{
		classifier:    classifier,
		llmClassifier: opts.LLMClassifier,
		retriever:     retriever,
		synthesizer:   synthesizer,
		store:         store,
		defaultTopK:   opts.DefaultTopK,
		batchYear:     opts.BatchYear,
		observer:      opts.Observer,
		logger:        opts.Logger,
	}
}

func (o *QueryOrchestrator) Analyze(ctx context.Context, question string, useLLM bool) domain.QueryAnalysis {
	cls := o.classify(ctx, question, useLLM)
	return domain.QueryAnalysis{
		QueryType: cls.Type,
		Params:    cls.Params,
		Strategy:  RoutingStrategyFor(cls.Type),
	}
}

func (o *QueryOrchestrator) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query", errors.New("question is required"))
	}
	if req.TopK < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query", fmt.Errorf("top_k must be >= 1, got %d", req.TopK))
	}
	topK := req.TopK
	if topK == 0 {
		topK = o.defaultTopK
	}

	cls := o.classify(ctx, question, req.UseLLMClassifier)
	result := &domain.QueryResult{
		QueryType: cls.Type,
		Params:    cls.Params,
		Strategy:  RoutingStrategyFor(cls.Type),
		Passages:  []domain.Passage{},
	}
	o.logger.Info("query_classified", "query_type", cls.Type, "fallback", cls.Params.Fallback)

	var err error
	switch cls.Type {
	case domain.QueryStructured:
		err = o.runStructured(ctx, question, topK, req.Filters, cls.Params, result)
	case domain.QueryHybrid:
		err = o.runHybrid(ctx, question, topK, req.Filters, cls.Params, result)
	case domain.QueryMultiHop:
		err = o.runMultiHop(ctx, question, topK, req.Filters, cls.Params, result)
	default:
		err = o.runRAG(ctx, question, topK, req.Filters, result)
	}
	if err != nil {
		return nil, err
	}

	if o.observer != nil {
		o.observer.RecordQuery(string(cls.Type), len(result.Passages), result.Answer != nil)
	}
	return result, nil
}

func (o *QueryOrchestrator) classify(ctx context.Context, question string, useLLM bool) domain.Classification {
	if useLLM && o.llmClassifier != nil {
		return o.llmClassifier.Classify(ctx, question)
	}
	return o.classifier.Classify(ctx, question)
}

func (o *QueryOrchestrator) runRAG(
	ctx context.Context,
	question string,
	topK int,
	filters domain.QueryFilters,
	result *domain.QueryResult,
) error {
	answer, err := o.retrieveAndSynthesize(ctx, question, topK, filters, result)
	if err != nil {
		return err
	}
	if answer != nil {
		result.Answer = &answer.Text
		result.Backend = answer.Backend
	}
	return nil
}

// retrieveAndSynthesize fills the passage fields of result and returns the
// synthesized answer, which is nil when absent.
func (o *QueryOrchestrator) retrieveAndSynthesize(
	ctx context.Context,
	question string,
	topK int,
	filters domain.QueryFilters,
	result *domain.QueryResult,
) (*domain.Answer, error) {
	if o.retriever == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "query", errors.New("retriever is not configured"))
	}
	ranked, err := o.retriever.Retrieve(ctx, question, topK, filters)
	if err != nil {
		return nil, err
	}
	return o.synthesize(ctx, question, ranked, filters, result)
}

func (o *QueryOrchestrator) synthesize(
	ctx context.Context,
	question string,
	ranked domain.RankedResultSet,
	filters domain.QueryFilters,
	result *domain.QueryResult,
) (*domain.Answer, error) {
	result.Passages = ranked.Passages
	result.FullDocument = ranked.FullDocument
	result.Company = ranked.Company

	if o.synthesizer == nil {
		return nil, nil
	}
	// An auto-detected company selects the company-specific prompt mode too.
	if filters.Company == "" {
		filters.Company = ranked.Company
	}
	return o.synthesizer.Synthesize(ctx, question, ranked, filters)
}

func (o *QueryOrchestrator) runStructured(
	ctx context.Context,
	question string,
	topK int,
	filters domain.QueryFilters,
	params domain.ClassificationParams,
	result *domain.QueryResult,
) error {
	stats, err := o.structuredStats(ctx, params)
	if err != nil {
		o.logger.Warn("structured_path_failed", "fallback", result.Strategy.Fallback, "error", err)
		return o.runRAG(ctx, question, topK, filters, result)
	}

	text := FormatStructuredAnswer(params, stats)
	result.Structured = &stats
	result.Answer = &text
	result.Backend = "sql"
	return nil
}

func (o *QueryOrchestrator) runHybrid(
	ctx context.Context,
	question string,
	topK int,
	filters domain.QueryFilters,
	params domain.ClassificationParams,
	result *domain.QueryResult,
) error {
	if o.retriever == nil {
		return domain.WrapError(domain.ErrConfiguration, "query", errors.New("retriever is not configured"))
	}

	var (
		stats  *domain.PlacementStats
		ranked domain.RankedResultSet
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s, err := o.structuredStats(groupCtx, params)
		if err != nil {
			o.logger.Warn("hybrid_structured_part_failed", "error", err)
			return nil
		}
		stats = &s
		return nil
	})
	group.Go(func() error {
		r, err := o.retriever.Retrieve(groupCtx, question, topK, filters)
		if err != nil {
			return err
		}
		ranked = r
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}

	answer, err := o.synthesize(ctx, question, ranked, filters, result)
	if err != nil {
		return err
	}

	var insights *string
	if answer != nil {
		insights = &answer.Text
	}
	switch {
	case stats != nil:
		text := formatHybridAnswer(FormatStructuredAnswer(params, *stats), insights)
		result.Structured = stats
		result.Answer = &text
		result.Backend = "sql"
		if answer != nil {
			result.Backend = "sql+" + answer.Backend
		}
	case answer != nil:
		result.Answer = insights
		result.Backend = answer.Backend
	}
	return nil
}

func (o *QueryOrchestrator) runMultiHop(
	ctx context.Context,
	question string,
	topK int,
	filters domain.QueryFilters,
	params domain.ClassificationParams,
	result *domain.QueryResult,
) error {
	var companies []domain.CompanySalary
	if params.SalaryThreshold != nil && o.store != nil {
		var err error
		companies, err = o.store.CompaniesBySalary(ctx, *params.SalaryThreshold, params.SalaryOperator, multiHopCompanyLimit)
		if err != nil {
			o.logger.Warn("multi_hop_filter_failed", "error", err)
			companies = nil
		}
	}

	answer, err := o.retrieveAndSynthesize(ctx, question, topK, filters, result)
	if err != nil {
		return err
	}

	if len(companies) == 0 {
		if answer != nil {
			result.Answer = &answer.Text
			result.Backend = answer.Backend
		}
		return nil
	}

	var insights *string
	result.Backend = "sql"
	if answer != nil {
		insights = &answer.Text
		result.Backend = "sql+" + answer.Backend
	}
	text := formatMultiHopAnswer(*params.SalaryThreshold, params.SalaryOperator, companies, insights)
	result.Answer = &text
	return nil
}

func (o *QueryOrchestrator) structuredStats(ctx context.Context, params domain.ClassificationParams) (domain.PlacementStats, error) {
	if o.store == nil {
		return domain.PlacementStats{}, domain.WrapError(domain.ErrConfiguration, "structured stats", errors.New("structured store is not configured"))
	}
	return o.store.Stats(ctx, domain.StatsFilter{
		Specialization: params.Specialization,
		BatchYear:      o.batchYearFor(params.Year),
	})
}

// batchYearFor maps a calendar year from the question onto an academic
// batch such as "2024-2025".
func (o *QueryOrchestrator) batchYearFor(year int) string {
	if year <= 0 {
		return o.batchYear
	}
	return domain.BatchYear(year)
}
