package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"talentsync/apps/worker/internal/adapter/qdrant"
	wstore "talentsync/apps/worker/internal/adapter/weaviate"
	"talentsync/apps/worker/internal/config"
	"talentsync/apps/worker/internal/queue"
	"talentsync/apps/worker/internal/vector"
	"talentsync/apps/worker/internal/worker"
)

// Pinger is the part of *sql.DB the startup retry needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// JobQueue is the producer side of whichever queue backend is configured.
type JobQueue interface {
	Push(ctx context.Context, payload []byte) error
}

type Dependencies struct {
	DB    *sql.DB
	Index worker.VectorIndex
	Redis *redis.Client
	Queue JobQueue

	// Source and Depth are only set for the Redis backend; NSQ delivers
	// through its own consumer.
	Source worker.JobSource
	Depth  *queue.RedisQueue

	closers []func() error
}

// Close releases connections in reverse order of acquisition.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("failed to close dependency", "error", err)
		}
	}
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	// Database
	slog.Info("connecting to postgres", "dsn", cfg.MaskedDSN())
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	deps.DB = db
	deps.closers = append(deps.closers, db.Close)

	if err := PingWithRetry(ctx, db, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if cfg.RunMigrations {
		if err := Migrate(db, cfg.MigrationPath); err != nil {
			deps.Close()
			return nil, err
		}
	}

	// Vector index
	index, closeIndex, err := NewVectorIndex(cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Index = index
	if closeIndex != nil {
		deps.closers = append(deps.closers, closeIndex)
	}

	distance := vector.ParseDistance(cfg.EmbeddingDistance)
	if err := EnsureCollectionWithRetry(ctx, index, cfg.EmbeddingDimension, distance, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		deps.Close()
		return nil, fmt.Errorf("vector schema error: %w", err)
	}

	// Redis carries the execution history for both queue backends.
	rdb, err := queue.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Redis = rdb
	deps.closers = append(deps.closers, rdb.Close)

	switch cfg.QueueBackend {
	case config.QueueNSQ:
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		producer.SetLoggerLevel(nsq.LogLevelWarning)
		deps.closers = append(deps.closers, func() error { producer.Stop(); return nil })
		deps.Queue = queue.NewNSQPublisher(producer, cfg.NSQTopic)

		if err := queue.CreateTopic(ctx, cfg.NSQDHTTP, cfg.NSQTopic); err != nil {
			slog.Warn("failed to pre-create nsq topic", "topic", cfg.NSQTopic, "error", err)
		}
	default:
		q := queue.NewRedisQueue(rdb, cfg.RedisQueue, queue.DefaultPollTimeout)
		deps.Queue = q
		deps.Source = q
		deps.Depth = q
	}

	return deps, nil
}

// PingWithRetry pings until the database answers or attempts run out.
func PingWithRetry(ctx context.Context, db Pinger, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", attempts)
		if i < attempts-1 {
			if werr := sleep(ctx, delay); werr != nil {
				return werr
			}
		}
	}
	return err
}

func Migrate(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	slog.Info("migrations applied successfully")
	return nil
}

// NewVectorIndex builds the configured index adapter. The returned closer
// may be nil.
func NewVectorIndex(cfg *config.Config) (worker.VectorIndex, func() error, error) {
	switch cfg.VectorBackend {
	case config.VectorQdrant:
		conn, err := qdrant.Dial(cfg.QdrantHost, cfg.QdrantPort)
		if err != nil {
			return nil, nil, err
		}
		return qdrant.NewStore(conn, cfg.CollectionName, cfg.VectorTimeout()), conn.Close, nil
	case config.VectorWeaviate:
		client, err := weaviate.NewClient(weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme})
		if err != nil {
			return nil, nil, fmt.Errorf("weaviate client error: %w", err)
		}
		return wstore.NewStore(client, cfg.CollectionName, cfg.VectorTimeout()), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: VECTOR_BACKEND=%q", config.ErrInvalidValue, cfg.VectorBackend)
	}
}

// EnsureCollectionWithRetry keeps trying while the index service starts up.
func EnsureCollectionWithRetry(ctx context.Context, index worker.VectorIndex, dimension int, distance vector.Distance, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = index.EnsureCollection(ctx, dimension, distance); err == nil {
			slog.Info("vector collection ensured", "dimension", dimension, "distance", distance.String())
			return nil
		}
		slog.Warn("failed to ensure vector collection, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			if werr := sleep(ctx, delay); werr != nil {
				return werr
			}
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
