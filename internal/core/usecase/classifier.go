package usecase

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

type patternGroup struct {
	queryType domain.QueryType
	patterns  []*regexp.Regexp
	extract   func(question, lower string) domain.ClassificationParams
}

// Groups are evaluated in slice order and the first match wins. Multi-hop
// phrasing usually also carries a structured cue such as "salary", so it
// has to be checked first.
var classificationGroups = []patternGroup{
	{
		queryType: domain.QueryMultiHop,
		patterns: compilePatterns(
			`among.*salary.*skills`,
			`companies.*salary.*what skills`,
			`high paying.*skills`,
			`top paying.*requirements`,
			`best companies.*skills`,
		),
		extract: extractMultiHopParams,
	},
	{
		queryType: domain.QueryHybrid,
		patterns: compilePatterns(
			`compare.*salary`,
			`compare.*skills`,
			`compare.*companies`,
			`vs.*salary`,
			`vs.*skills`,
			`salary.*skills`,
			`skills.*salary`,
			`company.*salary.*skills`,
		),
		extract: extractHybridParams,
	},
	{
		queryType: domain.QueryStructured,
		patterns: compilePatterns(
			`how many companies`,
			`count.*companies`,
			`total.*companies`,
			`median salary`,
			`average salary`,
			`salary range`,
			`highest salary`,
			`lowest salary`,
			`number of roles`,
			`total roles`,
			`placement statistics`,
			`placement data`,
			`salary statistics`,
			`company count`,
			`role count`,
			`which companies.*(?:marketing|finance|hr|operations|strategy|it|analytics)`,
			`companies.*(?:marketing|finance|hr|operations|strategy|it|analytics)`,
			`(?:marketing|finance|hr|operations|strategy|it|analytics).*companies`,
		),
		extract: extractStructuredParams,
	},
	{
		queryType: domain.QueryUnstructured,
		patterns: compilePatterns(
			`what skills`,
			`key skills`,
			`required skills`,
			`skills needed`,
			`company culture`,
			`work environment`,
			`job description`,
			`role description`,
			`responsibilities`,
			`requirements`,
			`what does.*do`,
			`how to prepare`,
			`career advice`,
			`job requirements`,
			`role requirements`,
			`full jd`,
			`complete jd`,
			`entire jd`,
			`full job description`,
			`complete job description`,
			`entire job description`,
			`show me.*jd`,
			`give.*jd`,
			`what is.*jd`,
		),
		extract: extractUnstructuredParams,
	},
}

var routingTable = map[domain.QueryType]domain.RoutingStrategy{
	domain.QueryStructured: {
		Primary:     "sql",
		Fallback:    "rag",
		Description: "Use SQL database for fast, accurate statistics",
	},
	domain.QueryUnstructured: {
		Primary:     "rag",
		Fallback:    "sql",
		Description: "Use RAG for detailed, contextual answers",
	},
	domain.QueryHybrid: {
		Primary:     "hybrid",
		Components:  []string{"sql", "rag"},
		Description: "Combine SQL for structured data and RAG for context",
	},
	domain.QueryMultiHop: {
		Primary:     "multi_step",
		Steps:       []string{"sql_filter", "rag_analysis"},
		Description: "Multi-step approach: filter then analyze",
	},
}

// PatternClassifier is the deterministic, regex-driven question classifier.
type PatternClassifier struct{}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

func (c *PatternClassifier) Classify(_ context.Context, question string) domain.Classification {
	return ClassifyQuestion(question)
}

// ClassifyQuestion assigns exactly one query type. Questions that match no
// group are treated as UNSTRUCTURED.
func ClassifyQuestion(question string) domain.Classification {
	lower := strings.ToLower(question)
	for _, group := range classificationGroups {
		if matchesAny(lower, group.patterns) {
			return domain.Classification{Type: group.queryType, Params: group.extract(question, lower)}
		}
	}
	return domain.Classification{
		Type:   domain.QueryUnstructured,
		Params: domain.ClassificationParams{Query: question},
	}
}

// RoutingStrategyFor is a pure lookup over the routing table.
func RoutingStrategyFor(queryType domain.QueryType) domain.RoutingStrategy {
	strategy, ok := routingTable[queryType]
	if !ok {
		return domain.RoutingStrategy{Primary: "rag", Description: "Default to RAG"}
	}
	strategy.Components = append([]string(nil), strategy.Components...)
	strategy.Steps = append([]string(nil), strategy.Steps...)
	return strategy
}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

type specializationKeyword struct {
	pattern *regexp.Regexp
	label   string
}

var specializationVocabulary = []specializationKeyword{
	{regexp.MustCompile(`\bmarketing\b`), "Marketing"},
	{regexp.MustCompile(`\bfinance\b`), "Finance"},
	{regexp.MustCompile(`\bhr\b`), "HR"},
	{regexp.MustCompile(`\boperations\b`), "Operations"},
	{regexp.MustCompile(`\bstrategy\b`), "Strategy"},
	{regexp.MustCompile(`\bit\b`), "IT"},
	{regexp.MustCompile(`\banalytics\b`), "Analytics"},
	{regexp.MustCompile(`\bhuman resources\b`), "HR"},
	{regexp.MustCompile(`\bsupply chain\b`), "Operations"},
	{regexp.MustCompile(`\bconsulting\b`), "Strategy"},
	{regexp.MustCompile(`\bdigital transformation\b`), "IT"},
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

func extractStructuredParams(question, lower string) domain.ClassificationParams {
	params := domain.ClassificationParams{Query: question}

	if m := yearPattern.FindStringSubmatch(lower); m != nil {
		if year, err := strconv.Atoi(m[1]); err == nil {
			params.Year = year
		}
	}

	for _, kw := range specializationVocabulary {
		if kw.pattern.MatchString(lower) {
			params.Specialization = kw.label
			break
		}
	}

	if strings.Contains(lower, "salary") {
		switch {
		case strings.Contains(lower, "median"):
			params.Metric = "median"
		case strings.Contains(lower, "average"), strings.Contains(lower, "avg"):
			params.Metric = "average"
		case strings.Contains(lower, "range"):
			params.Metric = "range"
		case strings.Contains(lower, "highest"), strings.Contains(lower, "max"):
			params.Metric = "max"
		case strings.Contains(lower, "lowest"), strings.Contains(lower, "min"):
			params.Metric = "min"
		}
	}

	if strings.Contains(lower, "count") || strings.Contains(lower, "how many") || strings.Contains(lower, "number of") || strings.Contains(lower, "total") {
		switch {
		case strings.Contains(lower, "companies"):
			params.Entity = "companies"
		case strings.Contains(lower, "roles"):
			params.Entity = "roles"
		case strings.Contains(lower, "offers"):
			params.Entity = "offers"
		}
	}

	return params
}

var (
	skillTypePattern = regexp.MustCompile(`(\w+)\s+skills?\b`)
	// Words that precede "skills" in questions without naming a kind of skill.
	skillTypeStopwords = map[string]struct{}{
		"what": {}, "which": {}, "key": {}, "required": {}, "the": {}, "of": {}, "are": {}, "and": {}, "any": {}, "some": {},
	}
)

func extractUnstructuredParams(question, lower string) domain.ClassificationParams {
	params := domain.ClassificationParams{Query: question}

	if strings.Contains(lower, "skill") {
		params.Focus = "skills"
		for _, m := range skillTypePattern.FindAllStringSubmatch(lower, -1) {
			if _, skip := skillTypeStopwords[m[1]]; skip {
				continue
			}
			params.SkillType = m[1]
			break
		}
	}
	if strings.Contains(lower, "role") {
		params.Focus = "role_description"
	}
	if strings.Contains(lower, "culture") || strings.Contains(lower, "environment") {
		params.Focus = "company_culture"
	}
	return params
}

var (
	compareSeparatorPattern = regexp.MustCompile(`[,;:?!.()]|\b(?:compare|vs|versus|and|with|between|against)\b`)
	compareCuePattern       = regexp.MustCompile(`\b(?:compare|vs|versus)\b`)
)

func extractHybridParams(question, lower string) domain.ClassificationParams {
	params := domain.ClassificationParams{Query: question}

	if compareCuePattern.MatchString(lower) {
		params.CompareEntities = compareEntities(lower)
	}
	params.CompareSalary = strings.Contains(lower, "salary")
	params.CompareSkills = strings.Contains(lower, "skill")
	return params
}

// compareEntities is best-effort: it keeps every phrase of at most three
// words between separators, which may include non-entity words.
func compareEntities(lower string) []string {
	var out []string
	for _, part := range compareSeparatorPattern.Split(lower, -1) {
		words := strings.Fields(part)
		if len(words) == 0 || len(words) > 3 {
			continue
		}
		out = append(out, strings.Join(words, " "))
	}
	return out
}

var salaryThresholdPattern = regexp.MustCompile(
	`salary\s*(>=|<=|>|<|more than|greater than|above|over|less than|below|under)?\s*(?:of\s+)?(?:rs\.?\s*|inr\s*|₹\s*)?(\d+(?:\.\d+)?)`,
)

func extractMultiHopParams(question, lower string) domain.ClassificationParams {
	params := domain.ClassificationParams{Query: question}

	if m := salaryThresholdPattern.FindStringSubmatch(lower); m != nil {
		if threshold, err := strconv.ParseFloat(m[2], 64); err == nil {
			params.SalaryThreshold = &threshold
			params.SalaryOperator = salaryOperator(m[1])
		}
	}

	switch {
	case strings.Contains(lower, "skills"):
		params.TargetInfo = "skills"
	case strings.Contains(lower, "requirements"):
		params.TargetInfo = "requirements"
	}
	return params
}

// salaryOperator defaults to ">" when no comparator token is present, even
// where the question meant a ceiling. Kept as observed behavior.
func salaryOperator(token string) string {
	switch token {
	case "<", "<=", "less than", "below", "under":
		return "<"
	default:
		return ">"
	}
}
