package embedding

import (
	"time"

	"talentsync/apps/worker/internal/worker"
)

type Options struct {
	Name         string
	Retry        RetryPolicy
	RatePerSec   float64
	BreakerReset time.Duration
}

// Wrap layers the resilience decorators around a provider client.
// Order, outermost first: breaker, retry, rate limit.
func Wrap(base worker.Embedder, opts Options) worker.Embedder {
	e := base
	if opts.RatePerSec > 0 {
		e = NewRateLimited(e, opts.RatePerSec)
	}
	e = NewRetrying(e, opts.Retry)

	reset := opts.BreakerReset
	if reset <= 0 {
		reset = 30 * time.Second
	}
	return NewBreaker(opts.Name, e, reset)
}
