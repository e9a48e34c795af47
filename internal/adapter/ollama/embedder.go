package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"talentsync/apps/worker/internal/embedding"
)

const DefaultModel = "nomic-embed-text"

type Embedder struct {
	client *api.Client
	model  string
}

func NewEmbedder(host, model string, timeout time.Duration) (*Embedder, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{
		client: api.NewClient(base, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	slog.DebugContext(ctx, "embedding batch", "provider", "ollama", "model", e.model, "count", len(texts))
	res, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		var se api.StatusError
		if errors.As(err, &se) {
			return nil, &embedding.StatusError{Provider: "ollama", StatusCode: se.StatusCode, Body: se.ErrorMessage}
		}
		return nil, err
	}
	return res.Embeddings, nil
}
