package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"talentsync/apps/worker/internal/worker"
)

type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// Retrying retries transient failures of the wrapped Embedder with exponential backoff.
type Retrying struct {
	next   worker.Embedder
	policy RetryPolicy
}

func NewRetrying(next worker.Embedder, policy RetryPolicy) *Retrying {
	if policy.MinWait <= 0 {
		policy.MinWait = time.Second
	}
	if policy.MaxWait < policy.MinWait {
		policy.MaxWait = policy.MinWait
	}
	return &Retrying{next: next, policy: policy}
}

func (r *Retrying) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.MinWait
	b.MaxInterval = r.policy.MaxWait
	b.MaxElapsedTime = 0

	var bo backoff.BackOff = b
	if r.policy.MaxRetries >= 0 {
		bo = backoff.WithMaxRetries(bo, uint64(r.policy.MaxRetries))
	}
	return backoff.WithContext(bo, ctx)
}

func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	operation := func() error {
		v, err := r.next.EmbedBatch(ctx, texts)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vectors = v
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "embedding call failed, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(operation, r.newBackOff(ctx), notify); err != nil {
		return nil, err
	}
	return vectors, nil
}
