package embedding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"talentsync/apps/worker/internal/worker"
)

// Breaker stops calling a provider that keeps failing, so queued jobs fail
// fast instead of each waiting out the full retry budget.
type Breaker struct {
	next worker.Embedder
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(name string, next worker.Embedder, openFor time.Duration) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected request says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("embedding circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return res.([][]float32), nil
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// IsOpen reports whether err was produced by an open or saturated breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
