// Package ollama talks to a local Ollama server for both embeddings and
// generation.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
	"github.com/kirillkom/jd-copilot/internal/infrastructure/llm"
)

const providerName = "ollama"

const (
	embedTimeout    = 30 * time.Second
	generateTimeout = 120 * time.Second
)

type Client struct {
	baseURL      string
	genModel     string
	embedModel   string
	embedHTTP    *http.Client
	generateHTTP *http.Client
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		genModel:     genModel,
		embedModel:   embedModel,
		embedHTTP:    &http.Client{Timeout: embedTimeout},
		generateHTTP: &http.Client{Timeout: generateTimeout},
	}
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, path, operation string, payload, out any) error {
	return llm.PostJSON(ctx, httpClient, llm.Request{
		Provider:  providerName,
		Operation: operation,
		URL:       c.baseURL + path,
		Payload:   payload,
	}, out)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.post(ctx, e.client.embedHTTP, "/api/embed", "embed", request, &response); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "embed query", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

// Generator is the Ollama generation backend.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Name() string { return providerName }

func (g *Generator) Generate(ctx context.Context, system, user string, opts ports.GenerateOptions) (string, error) {
	options := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	request := map[string]any{
		"model":   g.client.genModel,
		"system":  system,
		"prompt":  user,
		"stream":  false,
		"options": options,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.post(ctx, g.client.generateHTTP, "/api/generate", "generate", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
