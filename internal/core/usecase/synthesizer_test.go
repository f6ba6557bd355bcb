package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

type observerFake struct {
	outcomes []string
}

func (f *observerFake) RecordGeneration(backend, outcome string) {
	f.outcomes = append(f.outcomes, backend+":"+outcome)
}

func sampleResults() domain.RankedResultSet {
	return domain.RankedResultSet{Passages: []domain.Passage{
		{ID: "a", Text: "Business Development Associate at BTM Layout", Score: 0.9, Metadata: domain.ChunkMetadata{Company: "TAP Academy", Role: "BDA", Year: 2024}},
		{ID: "b", Text: "Requires Excel", Score: 0.5, Metadata: domain.ChunkMetadata{Company: "Globex"}},
	}}
}

func TestSynthesizeEmptyPassagesSkipsBackends(t *testing.T) {
	backend := &backendFake{name: "openrouter", text: "answer"}
	synth := NewAnswerSynthesizer([]ports.GenerationBackend{backend}, nil, nil)

	answer, err := synth.Synthesize(context.Background(), "q", domain.RankedResultSet{}, domain.QueryFilters{})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if answer != nil {
		t.Fatalf("expected absent answer, got %+v", answer)
	}
	if backend.callCount() != 0 {
		t.Fatalf("expected no backend calls, got %d", backend.callCount())
	}
}

func TestSynthesizeWithoutBackendsIsAbsent(t *testing.T) {
	answer, err := NewAnswerSynthesizer(nil, nil, nil).Synthesize(context.Background(), "q", sampleResults(), domain.QueryFilters{})
	if err != nil || answer != nil {
		t.Fatalf("expected absent answer without error, got %+v, %v", answer, err)
	}
}

func TestSynthesizeFallsThroughBackendsInOrder(t *testing.T) {
	failing := &backendFake{name: "openrouter", err: errors.New("status 502")}
	empty := &backendFake{name: "gemini", text: "   "}
	working := &backendFake{name: "ollama", text: " grounded answer "}
	observer := &observerFake{}

	synth := NewAnswerSynthesizer([]ports.GenerationBackend{failing, empty, working}, observer, nil)
	answer, err := synth.Synthesize(context.Background(), "q", sampleResults(), domain.QueryFilters{})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if answer == nil || answer.Text != "grounded answer" || answer.Backend != "ollama" {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if failing.callCount() != 1 || empty.callCount() != 1 || working.callCount() != 1 {
		t.Fatalf("expected one call per backend, got %d/%d/%d", failing.callCount(), empty.callCount(), working.callCount())
	}
	want := "openrouter:error,gemini:empty,ollama:success"
	if strings.Join(observer.outcomes, ",") != want {
		t.Fatalf("expected outcomes %s, got %v", want, observer.outcomes)
	}
	if working.options.MaxTokens != 2048 || working.options.Temperature != 0 {
		t.Fatalf("unexpected options %+v", working.options)
	}
}

func TestSynthesizeStopsAtFirstSuccess(t *testing.T) {
	first := &backendFake{name: "openrouter", text: "first"}
	second := &backendFake{name: "gemini", text: "second"}
	answer, _ := NewAnswerSynthesizer([]ports.GenerationBackend{first, second}, nil, nil).
		Synthesize(context.Background(), "q", sampleResults(), domain.QueryFilters{})
	if answer == nil || answer.Text != "first" || second.callCount() != 0 {
		t.Fatalf("expected first backend to win, got %+v (second calls %d)", answer, second.callCount())
	}
}

func TestSynthesizeExhaustedChainIsAbsent(t *testing.T) {
	backends := []ports.GenerationBackend{
		&backendFake{name: "openrouter", err: errors.New("timeout")},
		&backendFake{name: "gemini", err: errors.New("quota")},
	}
	answer, err := NewAnswerSynthesizer(backends, nil, nil).Synthesize(context.Background(), "q", sampleResults(), domain.QueryFilters{})
	if err != nil || answer != nil {
		t.Fatalf("expected absent answer without error, got %+v, %v", answer, err)
	}
}

func TestSynthesizePropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	second := &backendFake{name: "gemini", text: "late"}
	_, err := NewAnswerSynthesizer([]ports.GenerationBackend{&backendFake{name: "openrouter", text: "x"}, second}, nil, nil).
		Synthesize(ctx, "q", sampleResults(), domain.QueryFilters{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if second.callCount() != 0 {
		t.Fatalf("expected no further backend calls after cancellation")
	}
}

func TestBuildSynthesisPromptModes(t *testing.T) {
	results := sampleResults()

	system, user := BuildSynthesisPrompt("full jd of TAP Academy", results.Passages, domain.QueryFilters{Company: "TAP Academy"}, true)
	if !strings.Contains(system, "FULL JOB DESCRIPTION REQUEST") {
		t.Fatalf("expected full document instruction in system prompt")
	}
	if !strings.Contains(user, "COMPANY-SPECIFIC MODE: focus exclusively on TAP Academy") {
		t.Fatalf("expected company mode, got %s", user)
	}
	first := strings.Index(user, "[TAP Academy | BDA | 2024] Business Development Associate")
	second := strings.Index(user, "[Globex | ? | ?] Requires Excel")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected ordered citation lines, got %s", user)
	}
	if !strings.HasSuffix(user, "QUESTION: full jd of TAP Academy") {
		t.Fatalf("expected question at the end, got %s", user)
	}

	system, user = BuildSynthesisPrompt("q", results.Passages, domain.QueryFilters{}, false)
	if strings.Contains(system, "FULL JOB DESCRIPTION REQUEST") {
		t.Fatalf("did not expect full document instruction")
	}
	if !strings.Contains(user, "STRATEGIC CONSULTANT MODE") {
		t.Fatalf("expected cross-company mode, got %s", user)
	}
	if !strings.Contains(system, "I could not find this information in the available documents.") {
		t.Fatalf("expected refusal policy in system prompt")
	}
}
