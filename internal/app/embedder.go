package app

import (
	"context"
	"fmt"

	"talentsync/apps/worker/internal/adapter/cohere"
	"talentsync/apps/worker/internal/adapter/gemini"
	"talentsync/apps/worker/internal/adapter/ollama"
	"talentsync/apps/worker/internal/config"
	"talentsync/apps/worker/internal/embedding"
	"talentsync/apps/worker/internal/worker"
)

// NewEmbedder builds the configured provider client wrapped in the breaker,
// retry and rate limit decorators. The returned closer may be nil.
func NewEmbedder(ctx context.Context, cfg *config.Config) (worker.Embedder, func() error, error) {
	var (
		base   worker.Embedder
		closer func() error
	)

	switch cfg.EmbeddingProvider {
	case config.ProviderCohere:
		c := cohere.NewClient(cfg.CohereAPIKey, cfg.EmbeddingModel, cfg.EmbeddingTimeout())
		c.SetBaseURL(cfg.CohereURL)
		base = c
	case config.ProviderGemini:
		g, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.ModelOr(gemini.DefaultModel), cfg.EmbeddingTimeout())
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client error: %w", err)
		}
		base, closer = g, g.Close
	case config.ProviderOllama:
		o, err := ollama.NewEmbedder(cfg.OllamaHost, cfg.ModelOr(ollama.DefaultModel), cfg.EmbeddingTimeout())
		if err != nil {
			return nil, nil, err
		}
		base = o
	default:
		return nil, nil, fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", config.ErrInvalidValue, cfg.EmbeddingProvider)
	}

	wrapped := embedding.Wrap(base, embedding.Options{
		Name: cfg.EmbeddingProvider,
		Retry: embedding.RetryPolicy{
			MaxRetries: cfg.EmbeddingMaxRetries,
			MinWait:    secondsOf(cfg.EmbeddingRetryMinWait),
			MaxWait:    secondsOf(cfg.EmbeddingRetryMaxWait),
		},
		RatePerSec: cfg.EmbeddingRatePerSecond,
	})
	return wrapped, closer, nil
}
