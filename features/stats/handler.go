package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"talentsync/apps/worker/internal/middleware"
)

type StaleCounter interface {
	CountStale(ctx context.Context) (int, error)
}

type IndexCounter interface {
	Count(ctx context.Context) (int64, error)
}

// QueueDepth is optional; the NSQ backend has no cheap way to report it.
type QueueDepth interface {
	Len(ctx context.Context) (int64, error)
}

type Handler struct {
	candidates StaleCounter
	index      IndexCounter
	queue      QueueDepth
	collection string
}

func NewHandler(c StaleCounter, i IndexCounter, q QueueDepth, collection string) *Handler {
	return &Handler{candidates: c, index: i, queue: q, collection: collection}
}

type StatsResponse struct {
	StaleCandidates int    `json:"stale_candidates"`
	IndexedPoints   int64  `json:"indexed_points"`
	Collection      string `json:"collection"`
	PendingJobs     *int64 `json:"pending_jobs,omitempty"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stale, err := h.candidates.CountStale(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count stale candidates", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count stale candidates", http.StatusInternalServerError)
		return
	}

	points, err := h.index.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count indexed points", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count indexed points", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		StaleCandidates: stale,
		IndexedPoints:   points,
		Collection:      h.collection,
	}

	if h.queue != nil {
		if n, err := h.queue.Len(ctx); err != nil {
			slog.WarnContext(ctx, "failed to read queue depth", "error", err)
		} else {
			resp.PendingJobs = &n
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
