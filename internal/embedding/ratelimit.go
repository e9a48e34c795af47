package embedding

import (
	"context"

	"golang.org/x/time/rate"

	"talentsync/apps/worker/internal/worker"
)

// RateLimited spaces out calls to a provider with a token bucket.
type RateLimited struct {
	next    worker.Embedder
	limiter *rate.Limiter
}

func NewRateLimited(next worker.Embedder, perSecond float64) *RateLimited {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.EmbedBatch(ctx, texts)
}
