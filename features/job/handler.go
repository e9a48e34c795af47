package job

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"talentsync/apps/worker/internal/middleware"
	"talentsync/apps/worker/internal/worker"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func requester(r *http.Request) string {
	if by := r.Header.Get("X-Requested-By"); by != "" {
		return by
	}
	return "api"
}

func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Invalid JSON body", http.StatusBadRequest)
		return
	}
	h.enqueue(ctx, w, req, requester(r))
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	h.enqueue(r.Context(), w, Request{JobType: worker.JobTypeSync}, requester(r))
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	h.enqueue(r.Context(), w, Request{JobType: worker.JobTypeFullReindex}, requester(r))
}

func (h *Handler) enqueue(ctx context.Context, w http.ResponseWriter, req Request, requestedBy string) {
	msg, err := h.service.Enqueue(ctx, req, requestedBy)
	if err != nil {
		if errors.Is(err, ErrMissingJobType) || errors.Is(err, ErrUnknownJobType) || errors.Is(err, worker.ErrMissingCandidateID) {
			h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "failed to enqueue job", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to enqueue job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": msg}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(ctx, w, "VALIDATION_ERROR", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	execs, err := h.service.History(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list job history", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if execs == nil {
		execs = []worker.Execution{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": execs,
		"meta": map[string]int{"count": len(execs)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) Last(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	exec, err := h.service.Last(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read last job", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if exec == nil {
		h.writeError(ctx, w, "NOT_FOUND", "No job has run yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": exec}); err != nil {
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
