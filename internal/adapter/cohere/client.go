package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"talentsync/apps/worker/internal/embedding"
)

const (
	DefaultURL = "https://api.cohere.ai/v1/embed"

	// maxTexts is the per-request cap of the embed endpoint.
	maxTexts = 96
)

type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetBaseURL(url string) {
	if url != "" {
		c.baseURL = url
	}
}

type embedRequest struct {
	Texts          []string `json:"texts"`
	Model          string   `json:"model"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type embedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

// EmbedBatch splits texts into request-sized chunks and concatenates the results in order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxTexts {
		end := min(start+maxTexts, len(texts))
		vecs, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	slog.DebugContext(ctx, "embedding batch", "provider", "cohere", "model", c.model, "count", len(texts))

	jsonBody, err := json.Marshal(embedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      "search_document",
		EmbeddingTypes: []string{"float"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &embedding.StatusError{Provider: "cohere", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode cohere response: %w", err)
	}
	return result.Embeddings.Float, nil
}
