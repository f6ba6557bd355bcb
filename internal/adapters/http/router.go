package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/jd-copilot/internal/config"
	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
	"github.com/kirillkom/jd-copilot/internal/observability/metrics"
)

const (
	maxQueryBodyBytes = 64 << 10
	backpressureWait  = 50 * time.Millisecond
)

type Router struct {
	cfg        config.Config
	queries    ports.QueryService
	resumes    ports.ResumeMatcher
	placements ports.PlacementReader
	metrics    *metrics.HTTPServerMetrics
}

// NewRouter builds the API router. placements and m may be nil; the
// placement endpoints then answer 503 and /metrics is not mounted.
func NewRouter(
	cfg config.Config,
	queries ports.QueryService,
	placements ports.PlacementReader,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:        cfg,
		queries:    queries,
		placements: placements,
		metrics:    m,
	}
}

// WithResumeMatcher enables POST /v1/resume/match; without it the endpoint
// answers 503.
func (rt *Router) WithResumeMatcher(resumes ports.ResumeMatcher) *Router {
	rt.resumes = resumes
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/query", rt.query)
	mux.HandleFunc("GET /v1/query/analyze", rt.analyze)
	mux.HandleFunc("POST /v1/resume/match", rt.resumeMatch)
	mux.HandleFunc("GET /v1/companies", rt.listCompanies)
	mux.HandleFunc("GET /v1/companies/{name}/compare", rt.compareCompany)
	mux.HandleFunc("GET /v1/stats/placement", rt.placementStats)
	mux.HandleFunc("GET /v1/skills/search", rt.searchSkills)
	mux.HandleFunc("GET /v1/specializations/{name}/companies", rt.specializationCompanies)
	mux.HandleFunc("GET /v1/specializations/{name}/insights", rt.specializationInsights)
	mux.HandleFunc("GET /v1/specializations/{name}/median-salary", rt.medianSalary)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := rt.queries.Query(r.Context(), req)
	if err != nil {
		rt.writeDomainError(w, r, "query", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.URL.Query().Get("q"))
	if question == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	useLLM := strings.EqualFold(r.URL.Query().Get("mode"), "llm")
	writeJSON(w, http.StatusOK, rt.queries.Analyze(r.Context(), question, useLLM))
}

func (rt *Router) listCompanies(w http.ResponseWriter, r *http.Request) {
	if !rt.requireStore(w) {
		return
	}
	companies, err := rt.placements.ListCompanies(r.Context())
	if err != nil {
		rt.writeDomainError(w, r, "list_companies", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (rt *Router) placementStats(w http.ResponseWriter, r *http.Request) {
	if !rt.requireStore(w) {
		return
	}
	filter, ok := rt.statsFilter(w, r, r.URL.Query().Get("specialization"))
	if !ok {
		return
	}

	stats, err := rt.placements.Stats(r.Context(), filter)
	if err != nil {
		rt.writeDomainError(w, r, "placement_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type resumeMatchRequest struct {
	ResumeText string `json:"resume_text"`
	TopK       int    `json:"top_k"`
}

func (rt *Router) resumeMatch(w http.ResponseWriter, r *http.Request) {
	if rt.resumes == nil {
		writeError(w, http.StatusServiceUnavailable, "resume matching is not configured")
		return
	}
	var req resumeMatchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	matches, err := rt.resumes.Match(r.Context(), req.ResumeText, req.TopK)
	if err != nil {
		rt.writeDomainError(w, r, "resume_match", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (rt *Router) searchSkills(w http.ResponseWriter, r *http.Request) {
	if !rt.requireStore(w) {
		return
	}
	skill := strings.TrimSpace(r.URL.Query().Get("skill"))
	if skill == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'skill' is required")
		return
	}
	company := strings.TrimSpace(r.URL.Query().Get("company"))

	roles, err := rt.placements.SearchSkills(r.Context(), skill, company)
	if err != nil {
		rt.writeDomainError(w, r, "search_skills", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skill": skill, "company": company, "roles": roles})
}

func (rt *Router) compareCompany(w http.ResponseWriter, r *http.Request) {
	if !rt.requireStore(w) {
		return
	}
	filter, ok := rt.statsFilter(w, r, "")
	if !ok {
		return
	}

	cmp, err := rt.placements.CompareCompany(r.Context(), r.PathValue("name"), filter.BatchYear)
	if err != nil {
		rt.writeDomainError(w, r, "compare_company", err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (rt *Router) specializationCompanies(w http.ResponseWriter, r *http.Request) {
	if !rt.requireStore(w) {
		return
	}
	filter, ok := rt.statsFilter(w, r, r.PathValue("name"))
	if !ok {
		return
	}

	companies, err := rt.placements.CompaniesBySpecialization(r.Context(), filter)
	if err != nil {
		rt.writeDomainError(w, r, "specialization_companies", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"specialization": filter.Specialization,
		"batch_year":     filter.BatchYear,
		"companies":      companies,
	})
}

func (rt *Router) specializationInsights(w http.ResponseWriter, r *http.Request) {
	if !rt.requireStore(w) {
		return
	}
	filter, ok := rt.statsFilter(w, r, r.PathValue("name"))
	if !ok {
		return
	}

	insights, err := rt.placements.SpecializationInsights(r.Context(), filter)
	if err != nil {
		rt.writeDomainError(w, r, "specialization_insights", err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (rt *Router) medianSalary(w http.ResponseWriter, r *http.Request) {
	if !rt.requireStore(w) {
		return
	}
	filter, ok := rt.statsFilter(w, r, r.PathValue("name"))
	if !ok {
		return
	}

	median, err := rt.placements.MedianSalary(r.Context(), filter)
	if err != nil {
		rt.writeDomainError(w, r, "median_salary", err)
		return
	}
	writeJSON(w, http.StatusOK, median)
}

func (rt *Router) requireStore(w http.ResponseWriter) bool {
	if rt.placements == nil {
		writeError(w, http.StatusServiceUnavailable, "structured store is not configured")
		return false
	}
	return true
}

// statsFilter reads batch_year, or failing that year, defaulting to the
// configured batch. It writes a 400 and reports false on a malformed year.
func (rt *Router) statsFilter(w http.ResponseWriter, r *http.Request, specialization string) (domain.StatsFilter, bool) {
	filter := domain.StatsFilter{
		Specialization: strings.TrimSpace(specialization),
		BatchYear:      strings.TrimSpace(r.URL.Query().Get("batch_year")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" && filter.BatchYear == "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year <= 0 {
			writeError(w, http.StatusBadRequest, "year must be a positive integer")
			return domain.StatsFilter{}, false
		}
		filter.BatchYear = domain.BatchYear(year)
	}
	if filter.BatchYear == "" {
		filter.BatchYear = rt.cfg.BatchYear
	}
	return filter, true
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"op", op,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(d.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
