package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"talentsync/apps/worker/features/job"
	"talentsync/apps/worker/features/stats"
	"talentsync/apps/worker/internal/candidate"
	"talentsync/apps/worker/internal/config"
	"talentsync/apps/worker/internal/middleware"
	"talentsync/apps/worker/internal/vector"
	"talentsync/apps/worker/internal/worker"
)

type App struct {
	Handler    http.Handler
	Engine     *worker.Engine
	Dispatcher *worker.Dispatcher
	Jobs       *job.Service
	port       int
}

func New(cfg *config.Config, deps *Dependencies, embedder worker.Embedder) (*App, error) {
	if deps == nil || deps.DB == nil || deps.Index == nil || deps.Redis == nil || deps.Queue == nil {
		return nil, errors.New("incomplete dependencies")
	}

	candidates := candidate.NewPostgresRepo(deps.DB, cfg.DBTimeout())
	history := job.NewRedisHistory(deps.Redis, cfg.HistoryLimit)

	engine := worker.NewEngine(candidates, embedder, deps.Index, cfg.EmbeddingDimension, vector.ParseDistance(cfg.EmbeddingDistance))
	dispatcher := worker.NewDispatcher(engine, history)

	// Feature: Job
	jobService := job.NewService(deps.Queue, history)
	jobHandler := job.NewHandler(jobService)

	// Feature: Stats
	var depth stats.QueueDepth
	if deps.Depth != nil {
		depth = deps.Depth
	}
	statsHandler := stats.NewHandler(candidates, deps.Index, depth, cfg.CollectionName)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID, X-Requested-By")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /jobs", middleware.CorrelationID(enableCORS(jobHandler.Enqueue)))
	mux.Handle("GET /jobs/history", middleware.CorrelationID(enableCORS(jobHandler.History)))
	mux.Handle("GET /jobs/last", middleware.CorrelationID(enableCORS(jobHandler.Last)))
	mux.Handle("POST /index/sync", middleware.CorrelationID(enableCORS(jobHandler.Sync)))
	mux.Handle("POST /index/reindex", middleware.CorrelationID(enableCORS(jobHandler.Reindex)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	// Preflight for every route.
	mux.Handle("OPTIONS /", enableCORS(func(w http.ResponseWriter, r *http.Request) {}))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:    mux,
		Engine:     engine,
		Dispatcher: dispatcher,
		Jobs:       jobService,
		port:       cfg.ServerPort,
	}, nil
}

// Run serves the admin API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}
