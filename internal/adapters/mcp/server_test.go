package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

type queryServiceFake struct {
	err       error
	got       domain.QueryRequest
	gotUseLLM bool
}

func (f *queryServiceFake) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	answer := "Acme pays 12 LPA."
	return &domain.QueryResult{QueryType: domain.QueryUnstructured, Answer: &answer}, nil
}

func (f *queryServiceFake) Analyze(_ context.Context, question string, useLLM bool) domain.QueryAnalysis {
	f.gotUseLLM = useLLM
	return domain.QueryAnalysis{QueryType: domain.QueryMultiHop, Params: domain.ClassificationParams{Query: question}}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool content, got %+v", res)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestAskToolForwardsArguments(t *testing.T) {
	queries := &queryServiceFake{}
	s := NewServer(queries, "test", nil)

	res, err := s.handleAsk(context.Background(), callRequest(toolAsk, map[string]any{
		"question":           "salary at acme",
		"top_k":              float64(3),
		"company":            "Acme Corp",
		"year":               float64(2024),
		"use_llm_classifier": true,
	}))
	if err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if queries.got.TopK != 3 || queries.got.Filters.Company != "Acme Corp" || queries.got.Filters.Year != 2024 || !queries.got.UseLLMClassifier {
		t.Fatalf("unexpected forwarded request %+v", queries.got)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("decode tool output: %v", err)
	}
	if body["answer"] != "Acme pays 12 LPA." {
		t.Fatalf("unexpected answer %#v", body["answer"])
	}
}

func TestAskToolReportsFailuresAsToolErrors(t *testing.T) {
	s := NewServer(&queryServiceFake{err: domain.WrapError(domain.ErrBackendUnavailable, "retrieve", errors.New("qdrant down"))}, "test", nil)

	res, err := s.handleAsk(context.Background(), callRequest(toolAsk, map[string]any{"question": "q"}))
	if err != nil {
		t.Fatalf("expected failure inside the result, got %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected IsError result")
	}

	res, _ = s.handleAsk(context.Background(), callRequest(toolAsk, map[string]any{}))
	if !res.IsError {
		t.Fatalf("expected missing question to be a tool error")
	}
}

func TestClassifyToolReturnsAnalysis(t *testing.T) {
	queries := &queryServiceFake{}
	s := NewServer(queries, "test", nil)

	res, err := s.handleClassify(context.Background(), callRequest(toolClassify, map[string]any{
		"question": "companies above 10 lpa and their skills",
		"use_llm":  true,
	}))
	if err != nil {
		t.Fatalf("handleClassify: %v", err)
	}
	if !queries.gotUseLLM {
		t.Fatalf("expected use_llm to be forwarded")
	}
	var analysis domain.QueryAnalysis
	if err := json.Unmarshal([]byte(resultText(t, res)), &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if analysis.QueryType != domain.QueryMultiHop {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
}
