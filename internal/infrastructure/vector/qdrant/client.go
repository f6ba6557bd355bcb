// Package qdrant stores and searches job-description chunk vectors through the
// Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
)

// pointNamespace derives stable point ids from chunk ids, so re-indexing a
// chunk overwrites its previous point.
var pointNamespace = uuid.MustParse("6f1d8a52-3c4b-4e39-9a57-0c2f4b1e7d10")

var errCollectionMissing = errors.New("collection does not exist")

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func (c *Client) Upsert(ctx context.Context, chunks []domain.ChunkRecord, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	if err := c.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:      PointID(chunk.ID),
			Vector:  vectors[i],
			Payload: chunkPayload(chunk),
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.do(ctx, http.MethodPut, path, "upsert", map[string]any{"points": points}, nil)
}

func chunkPayload(chunk domain.ChunkRecord) map[string]any {
	meta := chunk.Metadata
	payload := map[string]any{
		"chunk_id":   chunk.ID,
		"chunk_text": chunk.Text,
		"company":    meta.Company,
		"role":       meta.Role,
	}
	if meta.Year > 0 {
		payload["year"] = meta.Year
	}
	if meta.Location != "" {
		payload["location"] = meta.Location
	}
	if meta.Specialization != "" {
		payload["specialization"] = meta.Specialization
	}
	if meta.SalaryMinLPA > 0 {
		payload["salary_min_lpa"] = meta.SalaryMinLPA
	}
	if meta.SalaryMaxLPA > 0 {
		payload["salary_max_lpa"] = meta.SalaryMaxLPA
	}
	if meta.SourceFile != "" {
		payload["source_file"] = meta.SourceFile
	}
	if len(meta.ExtractedSkills) > 0 {
		payload["extracted_skills"] = meta.ExtractedSkills
	}
	return payload
}

// Query runs a similarity search. A missing collection is a configuration
// error, never an empty result.
func (c *Client) Query(ctx context.Context, vector []float32, limit int, filter domain.SearchFilter) ([]domain.VectorMatch, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter.Year > 0 {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key":   "year",
					"match": map[string]any{"value": filter.Year},
				},
			},
		}
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.do(ctx, http.MethodPost, path, "search", reqBody, &searchResp); err != nil {
		if errors.Is(err, errCollectionMissing) {
			return nil, domain.WrapError(domain.ErrConfiguration, "search", fmt.Errorf("collection %q: %w", c.collection, err))
		}
		return nil, err
	}

	out := make([]domain.VectorMatch, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		id := getStringPayload(r.Payload, "chunk_id")
		if id == "" {
			id = fmt.Sprintf("%v", r.ID)
		}
		text := getStringPayload(r.Payload, "chunk_text")
		if text == "" {
			text = getStringPayload(r.Payload, "preview")
		}
		out = append(out, domain.VectorMatch{
			ID:       id,
			Score:    r.Score,
			Text:     text,
			Metadata: payloadMetadata(r.Payload),
		})
	}
	return out, nil
}

func payloadMetadata(payload map[string]any) domain.ChunkMetadata {
	return domain.ChunkMetadata{
		Company:         getStringPayload(payload, "company"),
		Role:            getStringPayload(payload, "role"),
		Year:            int(getFloatPayload(payload, "year")),
		Location:        getStringPayload(payload, "location"),
		Specialization:  getStringPayload(payload, "specialization"),
		SalaryMinLPA:    getFloatPayload(payload, "salary_min_lpa"),
		SalaryMaxLPA:    getFloatPayload(payload, "salary_max_lpa"),
		SourceFile:      getStringPayload(payload, "source_file"),
		ExtractedSkills: getStringsPayload(payload, "extracted_skills"),
	}
}

// EnsureCollection creates the collection with cosine distance when it does
// not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, "ensure collection", reqBody, nil)
	var statusErr *statusError
	// 409 means the collection already exists.
	if err != nil && !(errors.As(err, &statusErr) && statusErr.code == http.StatusConflict) {
		return err
	}

	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	return nil
}

type statusError struct {
	operation string
	code      int
	status    string
	body      string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, e.body)
}

func (c *Client) do(ctx context.Context, method, path, operation string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && operation == "search" {
		return errCollectionMissing
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			operation: operation,
			code:      resp.StatusCode,
			status:    resp.Status,
			body:      strings.TrimSpace(string(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getFloatPayload(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

func getStringsPayload(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
