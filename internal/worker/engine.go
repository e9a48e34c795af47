package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"talentsync/apps/worker/internal/candidate"
	"talentsync/apps/worker/internal/vector"
)

// Engine keeps the vector index in step with the candidate table.
//
// Every write path embeds and upserts before it marks rows indexed. A crash
// in between leaves the rows stale, and the next run overwrites the same
// point ids.
type Engine struct {
	store     StalenessStore
	embedder  Embedder
	index     VectorIndex
	dimension int
	distance  vector.Distance
}

func NewEngine(store StalenessStore, embedder Embedder, index VectorIndex, dimension int, distance vector.Distance) *Engine {
	return &Engine{
		store:     store,
		embedder:  embedder,
		index:     index,
		dimension: dimension,
		distance:  distance,
	}
}

// SyncAll indexes every stale candidate and returns how many were written.
func (e *Engine) SyncAll(ctx context.Context) (int, error) {
	if err := e.index.EnsureCollection(ctx, e.dimension, e.distance); err != nil {
		return 0, fmt.Errorf("ensure collection: %w", err)
	}

	stale, err := e.store.ListStale(ctx)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		slog.InfoContext(ctx, "index is up to date")
		return 0, nil
	}

	slog.InfoContext(ctx, "syncing stale candidates", "count", len(stale))
	return e.indexBatch(ctx, stale)
}

// SingleIndex re-indexes one candidate. A candidate that no longer exists is not an error.
func (e *Engine) SingleIndex(ctx context.Context, id int64) (int, error) {
	if err := e.index.EnsureCollection(ctx, e.dimension, e.distance); err != nil {
		return 0, fmt.Errorf("ensure collection: %w", err)
	}

	c, err := e.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if c == nil {
		slog.WarnContext(ctx, "candidate not found, skipping", "candidate_id", id)
		return 0, nil
	}

	return e.indexBatch(ctx, []candidate.Candidate{*c})
}

func (e *Engine) DeletePoint(ctx context.Context, id int64) error {
	if err := e.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete point %d: %w", id, err)
	}
	slog.InfoContext(ctx, "point deleted", "candidate_id", id)
	return nil
}

// FullReindex clears the index, resets every indexed flag and runs SyncAll.
// The three steps are not atomic: a failure after Clear leaves the index
// short until the next successful sync.
func (e *Engine) FullReindex(ctx context.Context) (int, error) {
	if err := e.index.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}

	reset, err := e.store.ResetAllIndexed(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset indexed flags: %w", err)
	}
	slog.InfoContext(ctx, "indexed flags reset", "count", reset)

	return e.SyncAll(ctx)
}

func (e *Engine) indexBatch(ctx context.Context, batch []candidate.Candidate) (int, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.ContextText()
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("%w: sent %d, got %d", ErrEmbeddingCountMismatch, len(texts), len(vectors))
	}

	points := make([]Point, len(batch))
	ids := make([]int64, len(batch))
	for i, c := range batch {
		if len(vectors[i]) != e.dimension {
			slog.WarnContext(ctx, "embedding dimension mismatch",
				"candidate_id", c.ID, "expected", e.dimension, "got", len(vectors[i]))
		}
		points[i] = Point{
			ID:     c.ID,
			Vector: vectors[i],
			Payload: map[string]string{
				PayloadName:        c.Name,
				PayloadTextContent: texts[i],
				PayloadUpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
			},
		}
		ids[i] = c.ID
	}

	if err := e.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upsert %d points: %w", len(points), err)
	}

	if err := e.store.MarkIndexed(ctx, ids); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "candidates indexed", "count", len(ids))
	return len(ids), nil
}
