package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"talentsync/apps/worker/internal/app"
	"talentsync/apps/worker/internal/config"
	"talentsync/apps/worker/internal/logger"
	"talentsync/apps/worker/internal/queue"
	"talentsync/apps/worker/internal/scheduler"
	"talentsync/apps/worker/internal/worker"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}

// run wires everything from cfg and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	embedder, closeEmbedder, err := app.NewEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	if closeEmbedder != nil {
		defer closeEmbedder()
	}

	a, err := app.New(cfg, deps, embedder)
	if err != nil {
		return err
	}

	log.Info("worker starting",
		"queue", cfg.QueueBackend,
		"vector", cfg.VectorBackend,
		"provider", cfg.EmbeddingProvider,
		"collection", cfg.CollectionName,
		"dimension", cfg.EmbeddingDimension,
	)

	// Either loop failing stops the other.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2)
	)

	switch cfg.QueueBackend {
	case config.QueueNSQ:
		consumer, err := queue.NewNSQConsumer(cfg.NSQTopic, cfg.NSQChannel, cfg.NSQLookupd, a.Dispatcher.NSQHandler(ctx))
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			consumer.Stop()
			<-consumer.StopChan
		}()
	default:
		c := worker.NewConsumer(deps.Source, a.Dispatcher, 0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- err
				cancel()
			}
		}()
	}

	if cfg.SyncCron != "" || cfg.SyncIntervalSeconds > 0 {
		s := scheduler.New(a.Jobs)
		if cfg.SyncCron != "" {
			err = s.ScheduleCron(cfg.SyncCron)
		} else {
			err = s.ScheduleEvery(time.Duration(cfg.SyncIntervalSeconds) * time.Second)
		}
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Run(ctx)
		}()
	}

	if cfg.EnableAPI {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Run(ctx); err != nil {
				errs <- err
				cancel()
			}
		}()
	}

	wg.Wait()
	close(errs)
	return <-errs
}
