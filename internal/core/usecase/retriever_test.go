package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/vector/qdrant"
)

func match(id, company, role string, score float64, text string) domain.VectorMatch {
	return domain.VectorMatch{
		ID:       id,
		Score:    score,
		Text:     text,
		Metadata: domain.ChunkMetadata{Company: company, Role: role, Year: 2024},
	}
}

func TestRetrieveCapsAtTopKAndSortsByScore(t *testing.T) {
	index := &indexFake{}
	for i := 0; i < 10; i++ {
		index.matches = append(index.matches, match(fmt.Sprintf("c-%02d", i), "Acme", "Analyst", float64(i)/10, "text"))
	}
	retriever := NewRetriever(&embedderFake{}, index, nil)

	got, err := retriever.Retrieve(context.Background(), "what skills are needed", 3, domain.QueryFilters{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got.Passages) != 3 {
		t.Fatalf("expected 3 passages, got %d", len(got.Passages))
	}
	for i := 1; i < len(got.Passages); i++ {
		if got.Passages[i-1].Score < got.Passages[i].Score {
			t.Fatalf("passages not sorted: %+v", got.Passages)
		}
	}
	if got.Passages[0].ID != "c-09" {
		t.Fatalf("expected best passage first, got %s", got.Passages[0].ID)
	}
	if index.limit != 20 {
		t.Fatalf("expected over-fetch of 20, got %d", index.limit)
	}
	if got.FullDocument {
		t.Fatalf("did not expect full document mode")
	}
}

func TestRetrieveBreaksTiesByID(t *testing.T) {
	index := &indexFake{matches: []domain.VectorMatch{
		match("b", "Acme", "Analyst", 0.5, "t"),
		match("c", "Acme", "Analyst", 0.9, "t"),
		match("a", "Acme", "Analyst", 0.5, "t"),
	}}
	got, err := NewRetriever(&embedderFake{}, index, nil).Retrieve(context.Background(), "skills needed", 5, domain.QueryFilters{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	var ids []string
	for _, p := range got.Passages {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "c,a,b" {
		t.Fatalf("expected c,a,b got %v", ids)
	}
}

func TestRetrieveFullDocumentForCompany(t *testing.T) {
	long := strings.Repeat("x", 600)
	index := &indexFake{matches: []domain.VectorMatch{
		match("acme-1", "Acme Corp", "Analyst", 0.9, long),
		match("other-1", "Other Inc", "Analyst", 0.8, long),
		match("acme-2", "Acme Corp", "Analyst", 0.7, long),
	}}
	embedder := &embedderFake{}

	got, err := NewRetriever(embedder, index, nil).Retrieve(context.Background(), "full jd of Acme Corp", 5, domain.QueryFilters{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !got.FullDocument || got.Company != "Acme Corp" {
		t.Fatalf("expected full document for Acme Corp, got %+v", got)
	}
	if len(got.Passages) != 2 {
		t.Fatalf("expected 2 Acme passages, got %d", len(got.Passages))
	}
	for _, p := range got.Passages {
		if p.Metadata.Company != "Acme Corp" {
			t.Fatalf("unexpected company %q", p.Metadata.Company)
		}
		if len(p.Text) != 600 {
			t.Fatalf("expected untruncated 600 chars, got %d", len(p.Text))
		}
	}
	if index.limit != 50 {
		t.Fatalf("expected full document over-fetch of 50, got %d", index.limit)
	}
	if len(embedder.queries) != 1 || embedder.queries[0] != "[company=Acme Corp] full jd of Acme Corp" {
		t.Fatalf("expected company-tagged query, got %v", embedder.queries)
	}
}

func TestRetrieveFullDocumentIgnoresTopK(t *testing.T) {
	index := &indexFake{}
	for i := 0; i < 60; i++ {
		index.matches = append(index.matches, match(fmt.Sprintf("c-%02d", i), "Acme", "Analyst", 0.5, "t"))
	}
	got, err := NewRetriever(&embedderFake{}, index, nil).Retrieve(context.Background(), "give me the complete job description", 2, domain.QueryFilters{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got.Passages) != fullDocumentResultCap {
		t.Fatalf("expected %d passages, got %d", fullDocumentResultCap, len(got.Passages))
	}
}

func TestRetrieveTruncatesSnippetsByRune(t *testing.T) {
	index := &indexFake{matches: []domain.VectorMatch{match("a", "Acme", "Analyst", 0.5, strings.Repeat("₹", 500))}}
	got, err := NewRetriever(&embedderFake{}, index, nil).Retrieve(context.Background(), "skills needed", 1, domain.QueryFilters{})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if n := utf8.RuneCountInString(got.Passages[0].Text); n != snippetCharLimit {
		t.Fatalf("expected %d runes, got %d", snippetCharLimit, n)
	}
}

func TestRetrieveAppliesCompanyAndRoleFilters(t *testing.T) {
	index := &indexFake{matches: []domain.VectorMatch{
		match("a", "TAP Academy", "Business Development Associate", 0.9, "t"),
		match("b", "", "Business Development Associate", 0.8, "t"),
		match("c", "Tap academy", "Data Analyst", 0.7, "t"),
		match("d", "Globex", "Business Development Manager", 0.6, "t"),
	}}

	got, err := NewRetriever(&embedderFake{}, index, nil).Retrieve(context.Background(), "responsibilities", 5, domain.QueryFilters{
		Company:      "tap academy",
		RoleContains: "business development",
		Year:         2024,
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got.Passages) != 1 || got.Passages[0].ID != "a" {
		t.Fatalf("expected only passage a, got %+v", got.Passages)
	}
	if index.filter.Year != 2024 {
		t.Fatalf("expected year pushed to index, got %d", index.filter.Year)
	}
}

func TestRetrieveFilterMismatchIsEmptyNotError(t *testing.T) {
	index := &indexFake{matches: []domain.VectorMatch{match("a", "Globex", "Analyst", 0.9, "t")}}
	got, err := NewRetriever(&embedderFake{}, index, nil).Retrieve(context.Background(), "responsibilities", 5, domain.QueryFilters{Company: "Initech"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !got.Empty() {
		t.Fatalf("expected empty result, got %+v", got.Passages)
	}
}

func TestRetrieveErrors(t *testing.T) {
	backendErr := errors.New("connection refused")

	_, err := NewRetriever(&embedderFake{}, nil, nil).Retrieve(context.Background(), "q", 3, domain.QueryFilters{})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	_, err = NewRetriever(&embedderFake{}, &indexFake{err: backendErr}, nil).Retrieve(context.Background(), "q", 3, domain.QueryFilters{})
	if !domain.IsKind(err, domain.ErrBackendUnavailable) || !errors.Is(err, backendErr) {
		t.Fatalf("expected ErrBackendUnavailable wrapping cause, got %v", err)
	}

	_, err = NewRetriever(&embedderFake{err: backendErr}, &indexFake{}, nil).Retrieve(context.Background(), "q", 3, domain.QueryFilters{})
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}

	_, err = NewRetriever(&embedderFake{}, &indexFake{}, nil).Retrieve(context.Background(), "q", 0, domain.QueryFilters{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRetrieveMissingCollectionIsConfigurationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection` + "`typo_collection`" + ` doesn't exist!"}}`))
	}))
	defer server.Close()

	got, err := NewRetriever(&embedderFake{}, qdrant.New(server.URL, "typo_collection"), nil).
		Retrieve(context.Background(), "full jd of Acme Corp", 3, domain.QueryFilters{})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got passages=%d err=%v", len(got.Passages), err)
	}
	if domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("missing collection must not look like an outage: %v", err)
	}

	_, err = NewRetriever(&embedderFake{}, &indexFake{err: domain.WrapError(domain.ErrConfiguration, "search", errors.New("collection missing"))}, nil).
		Retrieve(context.Background(), "q", 3, domain.QueryFilters{})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration from index, got %v", err)
	}
}

func TestDetectCompany(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{question: "full jd of Tap academy", want: "Tap academy"},
		{question: "jd for Mill Story?", want: "Mill Story"},
		{question: "Show the role of Acme Corp Private Limited today", want: "Acme Corp Private"},
		{question: "full jd of Acme, please", want: "Acme"},
		{question: "skills for analysts of Globex", want: "Globex"},
		{question: "what does an analyst do", want: ""},
		{question: "jd of", want: ""},
	}
	for _, tc := range tests {
		if got := DetectCompany(tc.question); got != tc.want {
			t.Fatalf("DetectCompany(%q) = %q, want %q", tc.question, got, tc.want)
		}
	}
}
