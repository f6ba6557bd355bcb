package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

const (
	resumeCandidatePassages = 50
	defaultResumeMatches    = 3
	maxResumeMatches        = 20
	maxMissingSkills        = 15
	maxExtractedSkills      = 50
	resumeSkillQuestion     = "Key skills and responsibilities"
)

type skillPattern struct {
	label string
	re    *regexp.Regexp
}

var keywordSkills = []skillPattern{
	{"python", regexp.MustCompile(`(?i)\bpython\b`)},
	{"java", regexp.MustCompile(`(?i)\bjava\b`)},
	{"c++", regexp.MustCompile(`(?i)(^|[^a-z0-9])c\+\+`)},
	{"nlp", regexp.MustCompile(`(?i)\bnlp\b`)},
	{"ml", regexp.MustCompile(`(?i)\b(ml|machine learning)\b`)},
	{"deep learning", regexp.MustCompile(`(?i)\bdeep learning\b`)},
	{"pandas", regexp.MustCompile(`(?i)\bpandas\b`)},
	{"numpy", regexp.MustCompile(`(?i)\bnumpy\b`)},
	{"sql", regexp.MustCompile(`(?i)\bsql\b`)},
	{"rest", regexp.MustCompile(`(?i)\b(rest|apis?)\b`)},
	{"docker", regexp.MustCompile(`(?i)\bdocker\b`)},
	{"kubernetes", regexp.MustCompile(`(?i)\b(kubernetes|k8s)\b`)},
	{"aws", regexp.MustCompile(`(?i)\b(aws|gcp|azure)\b`)},
	{"spark", regexp.MustCompile(`(?i)\bspark\b`)},
	{"tensorflow", regexp.MustCompile(`(?i)\b(tensorflow|pytorch)\b`)},
}

var (
	skillToken       = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.\-]{2,}`)
	commonSkillWords = map[string]struct{}{
		"the": {}, "and": {}, "with": {}, "this": {}, "that": {}, "you": {}, "will": {}, "work": {},
	}
)

// ExtractSkills returns the sorted, lower-cased skills named in text: known
// keywords under their canonical label plus capitalized tokens.
func ExtractSkills(text string) []string {
	found := make(map[string]struct{})
	for _, p := range keywordSkills {
		if p.re.MatchString(text) {
			found[p.label] = struct{}{}
		}
	}
	for _, tok := range skillToken.FindAllString(text, -1) {
		tok = strings.TrimRight(tok, ".-")
		if len(tok) < 3 || tok[0] < 'A' || tok[0] > 'Z' {
			continue
		}
		lower := strings.ToLower(tok)
		if _, common := commonSkillWords[lower]; common {
			continue
		}
		found[lower] = struct{}{}
	}

	out := make([]string, 0, len(found))
	for skill := range found {
		out = append(out, skill)
	}
	sort.Strings(out)
	if len(out) > maxExtractedSkills {
		out = out[:maxExtractedSkills]
	}
	return out
}

type ResumeMatcher struct {
	retriever *Retriever
	logger    *slog.Logger
}

func NewResumeMatcher(retriever *Retriever, logger *slog.Logger) *ResumeMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeMatcher{retriever: retriever, logger: logger}
}

type jdGroup struct {
	meta   domain.ChunkMetadata
	skills map[string]struct{}
}

// Match groups indexed passages into job descriptions by source file and
// ranks them by Jaccard similarity between their skills and the resume's.
// Job descriptions without recorded skills are skipped.
func (m *ResumeMatcher) Match(ctx context.Context, resumeText string, topK int) ([]domain.ResumeMatch, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resume match", errors.New("resume_text is required"))
	}
	if topK < 0 || topK > maxResumeMatches {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resume match", fmt.Errorf("top_k must be in [1, %d], got %d", maxResumeMatches, topK))
	}
	if topK == 0 {
		topK = defaultResumeMatches
	}
	if m.retriever == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "resume match", errors.New("retriever is not configured"))
	}

	ranked, err := m.retriever.Retrieve(ctx, resumeSkillQuestion, resumeCandidatePassages, domain.QueryFilters{})
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*jdGroup)
	for _, p := range ranked.Passages {
		id := jdID(p.Metadata)
		g, ok := groups[id]
		if !ok {
			g = &jdGroup{meta: p.Metadata, skills: make(map[string]struct{})}
			groups[id] = g
		}
		for _, skill := range p.Metadata.ExtractedSkills {
			if skill = strings.ToLower(strings.TrimSpace(skill)); skill != "" {
				g.skills[skill] = struct{}{}
			}
		}
	}

	resumeSkills := make(map[string]struct{})
	for _, skill := range ExtractSkills(resumeText) {
		resumeSkills[skill] = struct{}{}
	}

	matches := make([]domain.ResumeMatch, 0, len(groups))
	for id, g := range groups {
		if len(g.skills) == 0 {
			continue
		}
		overlap := 0
		missing := make([]string, 0)
		for skill := range g.skills {
			if _, ok := resumeSkills[skill]; ok {
				overlap++
			} else {
				missing = append(missing, skill)
			}
		}
		union := len(g.skills) + len(resumeSkills) - overlap
		sort.Strings(missing)
		if len(missing) > maxMissingSkills {
			missing = missing[:maxMissingSkills]
		}
		matches = append(matches, domain.ResumeMatch{
			JDID:           id,
			Score:          float64(overlap) / float64(union),
			MissingSkills:  missing,
			UpskillingPlan: UpskillingPlan(missing),
			Metadata:       g.meta,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].JDID < matches[j].JDID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	m.logger.Info("resume_matched",
		"candidates", len(ranked.Passages),
		"job_descriptions", len(groups),
		"resume_skills", len(resumeSkills),
		"returned", len(matches),
	)
	return matches, nil
}

func jdID(meta domain.ChunkMetadata) string {
	if v := strings.TrimSpace(meta.SourceFile); v != "" {
		return v
	}
	if v := strings.TrimSpace(meta.Company); v != "" {
		return v
	}
	return "unknown"
}

// UpskillingPlan lists three to six steps, naming at most two missing skills.
func UpskillingPlan(missing []string) []string {
	plan := make([]string, 0, 6)
	for _, skill := range missing[:min(2, len(missing))] {
		plan = append(plan,
			"Study fundamentals of "+skill,
			"Complete a mini-project using "+skill,
		)
	}
	plan = append(plan, "Write notes and flashcards on gaps", "Practice interview-style questions")
	if len(plan) < 3 {
		plan = append(plan, "Prepare project stories that show the role's key skills")
	}
	return plan
}
