package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultModel = "gemini-embedding-001"

	// maxBatch is the per-request cap of batchEmbedContents.
	maxBatch = 100
)

type Embedder struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewEmbedder builds a Gemini client. timeout bounds each batch request,
// including the transport's own retries; zero leaves it to ctx.
func NewEmbedder(ctx context.Context, apiKey, model string, timeout time.Duration, opts ...option.ClientOption) (*Embedder, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{client: client, model: model, timeout: timeout}, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		slog.DebugContext(ctx, "embedding batch", "provider", "gemini", "model", e.model, "count", end-start)

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		res, err := e.embed(ctx, em, batch)
		if err != nil {
			slog.ErrorContext(ctx, "embedding failed", "error", err)
			return nil, err
		}
		for i, emb := range res.Embeddings {
			if emb == nil {
				return nil, fmt.Errorf("gemini returned no embedding for item %d", start+i)
			}
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

func (e *Embedder) embed(ctx context.Context, em *genai.EmbeddingModel, batch *genai.EmbeddingBatch) (*genai.BatchEmbedContentsResponse, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return em.BatchEmbedContents(ctx, batch)
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
