package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

const (
	snippetCharLimit      = 400
	fullDocumentCharLimit = 10000
	fullDocumentResultCap = 50
	maxCompanyWords       = 3
)

var fullDocumentPhrases = []string{
	"full jd",
	"complete jd",
	"entire jd",
	"full job description",
	"complete job description",
	"entire job description",
	"show me jd",
	"give jd",
}

type Retriever struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	logger   *slog.Logger
}

func NewRetriever(embedder ports.Embedder, index ports.VectorIndex, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Retrieve returns passages sorted by score descending, ties broken by id.
// Filter mismatches yield an empty set; infrastructure failures are errors.
func (r *Retriever) Retrieve(
	ctx context.Context,
	question string,
	topK int,
	filters domain.QueryFilters,
) (domain.RankedResultSet, error) {
	if topK < 1 {
		return domain.RankedResultSet{}, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("top_k must be >= 1, got %d", topK))
	}
	if r.index == nil {
		return domain.RankedResultSet{}, domain.WrapError(domain.ErrConfiguration, "retrieve", errors.New("vector index is not configured"))
	}
	if r.embedder == nil {
		return domain.RankedResultSet{}, domain.WrapError(domain.ErrConfiguration, "retrieve", errors.New("embedding provider is not configured"))
	}

	fullDocument := IsFullDocumentRequest(question)
	charLimit, resultCap, fetchLimit := snippetCharLimit, topK, max(20, topK*4)
	if fullDocument {
		charLimit, resultCap, fetchLimit = fullDocumentCharLimit, fullDocumentResultCap, max(50, topK*8)
	}

	company := strings.TrimSpace(filters.Company)
	if company == "" {
		company = DetectCompany(question)
	}

	queryText := question
	if company != "" {
		queryText = fmt.Sprintf("[company=%s] %s", company, question)
	}

	vector, err := r.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return domain.RankedResultSet{}, domain.WrapError(domain.ErrBackendUnavailable, "embed query", err)
	}

	matches, err := r.index.Query(ctx, vector, fetchLimit, domain.SearchFilter{Year: filters.Year})
	if err != nil {
		kind := domain.ErrBackendUnavailable
		if domain.IsKind(err, domain.ErrConfiguration) {
			kind = domain.ErrConfiguration
		}
		return domain.RankedResultSet{}, domain.WrapError(kind, "query vector index", err)
	}

	roleContains := strings.ToLower(strings.TrimSpace(filters.RoleContains))
	passages := make([]domain.Passage, 0, len(matches))
	for _, m := range matches {
		if company != "" && !MatchCompany(company, m.Metadata.Company) {
			continue
		}
		if roleContains != "" && !strings.Contains(strings.ToLower(m.Metadata.Role), roleContains) {
			continue
		}
		passages = append(passages, domain.Passage{
			ID:       m.ID,
			Text:     truncateRunes(m.Text, charLimit),
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}

	sortPassages(passages)
	if len(passages) > resultCap {
		passages = passages[:resultCap]
	}

	r.logger.Debug("passages_retrieved",
		"candidates", len(matches),
		"returned", len(passages),
		"company", company,
		"full_document", fullDocument,
	)

	return domain.RankedResultSet{
		Passages:     passages,
		FullDocument: fullDocument,
		Company:      company,
	}, nil
}

// IsFullDocumentRequest detects a request for the whole job description.
func IsFullDocumentRequest(question string) bool {
	lower := strings.ToLower(question)
	for _, phrase := range fullDocumentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// DetectCompany takes up to three words after the first "of", or failing
// that the first "for". Collection stops at trailing punctuation. It returns
// "" when nothing usable follows.
func DetectCompany(question string) string {
	words := strings.Fields(question)
	for _, connector := range []string{"of", "for"} {
		for i, w := range words {
			if !strings.EqualFold(w, connector) {
				continue
			}
			if candidate := collectCompanyWords(words[i+1:]); candidate != "" {
				return candidate
			}
		}
	}
	return ""
}

func collectCompanyWords(words []string) string {
	out := make([]string, 0, maxCompanyWords)
	for _, w := range words {
		if len(out) == maxCompanyWords {
			break
		}
		trimmed := strings.Trim(w, `.,;:!?"'()[]`)
		if trimmed != "" {
			out = append(out, trimmed)
		}
		if trimmed != strings.TrimLeft(w, `"'([`) {
			break
		}
	}
	return strings.Join(out, " ")
}

func sortPassages(passages []domain.Passage) {
	sort.SliceStable(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		return passages[i].ID < passages[j].ID
	})
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
