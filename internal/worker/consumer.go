package worker

import (
	"context"
	"log/slog"
	"time"
)

const DefaultPopBackoff = time.Second

// Consumer pulls payloads from a JobSource and runs them one at a time.
type Consumer struct {
	source     JobSource
	dispatcher *Dispatcher
	backoff    time.Duration
}

func NewConsumer(source JobSource, dispatcher *Dispatcher, backoff time.Duration) *Consumer {
	if backoff <= 0 {
		backoff = DefaultPopBackoff
	}
	return &Consumer{source: source, dispatcher: dispatcher, backoff: backoff}
}

// Run loops until ctx is cancelled. A failed job never stops the loop.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("consumer started")
	for {
		if ctx.Err() != nil {
			slog.Info("consumer stopped")
			return nil
		}

		payload, err := c.source.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Error("queue pop failed", "error", err, "backoff", c.backoff)
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
			continue
		}
		if payload == nil {
			continue
		}

		if err := c.dispatcher.Process(ctx, payload); err != nil {
			slog.Error("job failed", "error", err, "terminal", IsTerminal(err))
		}
	}
}
