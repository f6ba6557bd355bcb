package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/jd-copilot/internal/config"
	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

type resumeMatcherFake struct {
	err     error
	gotText string
	gotTopK int
}

func (f *resumeMatcherFake) Match(_ context.Context, resumeText string, topK int) ([]domain.ResumeMatch, error) {
	f.gotText, f.gotTopK = resumeText, topK
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ResumeMatch{{JDID: "acme.pdf", Score: 0.5, MissingSkills: []string{"docker"}}}, nil
}

func TestResumeMatchReturnsMatches(t *testing.T) {
	resumes := &resumeMatcherFake{}
	handler := NewRouter(config.Config{}, &queryServiceFake{}, nil, nil).WithResumeMatcher(resumes).Handler()

	payload, _ := json.Marshal(map[string]any{"resume_text": "Python and SQL", "top_k": 2})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resume/match", bytes.NewReader(payload)))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if resumes.gotText != "Python and SQL" || resumes.gotTopK != 2 {
		t.Fatalf("unexpected request %q/%d", resumes.gotText, resumes.gotTopK)
	}
	var body struct {
		Matches []domain.ResumeMatch `json:"matches"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Matches) != 1 || body.Matches[0].JDID != "acme.pdf" {
		t.Fatalf("unexpected matches %+v", body.Matches)
	}
}

func TestResumeMatchErrors(t *testing.T) {
	handler := NewRouter(config.Config{}, &queryServiceFake{}, nil, nil).Handler()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resume/match", strings.NewReader(`{"resume_text":"x"}`)))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without matcher, got %d", res.Code)
	}

	invalid := &resumeMatcherFake{err: domain.WrapError(domain.ErrInvalidInput, "resume match", errors.New("resume_text is required"))}
	handler = NewRouter(config.Config{}, &queryServiceFake{}, nil, nil).WithResumeMatcher(invalid).Handler()
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resume/match", strings.NewReader(`{"resume_text":""}`)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/resume/match", strings.NewReader(`{`)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken json, got %d", res.Code)
	}
}

func TestSearchSkillsPassesCompanyFilter(t *testing.T) {
	placements := &placementFake{}
	handler := NewRouter(config.Config{}, &queryServiceFake{}, placements, nil).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/skills/search?skill=sql&company=Acme+Corp", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if placements.gotSkill != "sql" || placements.gotCompany != "Acme Corp" {
		t.Fatalf("unexpected search args %q/%q", placements.gotSkill, placements.gotCompany)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/skills/search", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without skill, got %d", res.Code)
	}
}

func TestSpecializationEndpointsUsePathAndBatch(t *testing.T) {
	placements := &placementFake{}
	handler := NewRouter(config.Config{BatchYear: "2024-2025"}, &queryServiceFake{}, placements, nil).Handler()

	for _, path := range []string{
		"/v1/specializations/Finance/companies?year=2023",
		"/v1/specializations/Finance/insights?year=2023",
		"/v1/specializations/Finance/median-salary?year=2023",
	} {
		placements.gotFilter = domain.StatsFilter{}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, res.Code)
		}
		if placements.gotFilter != (domain.StatsFilter{Specialization: "Finance", BatchYear: "2023-2024"}) {
			t.Fatalf("%s: unexpected filter %+v", path, placements.gotFilter)
		}
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/specializations/Finance/insights?year=soon", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed year, got %d", res.Code)
	}
}

func TestCompareCompanyMapsNotFound(t *testing.T) {
	placements := &placementFake{}
	handler := NewRouter(config.Config{BatchYear: "2024-2025"}, &queryServiceFake{}, placements, nil).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/companies/Acme%20Corp/compare", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if placements.gotCompany != "Acme Corp" || placements.gotFilter.BatchYear != "2024-2025" {
		t.Fatalf("unexpected compare args %q/%+v", placements.gotCompany, placements.gotFilter)
	}

	placements.err = domain.WrapError(domain.ErrNotFound, "compare company", errors.New(`company "Umbrella"`))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/companies/Umbrella/compare", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown company, got %d", res.Code)
	}
}
