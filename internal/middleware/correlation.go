package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type key int

const (
	CorrelationKey key = iota
	JobTypeKey
)

const correlationHeader = "X-Correlation-ID"

// CorrelationID tags each admin request with an id, reusing the caller's header when present.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := WithCorrelationID(r.Context(), id)
		w.Header().Set(correlationHeader, id)

		start := time.Now()
		slog.InfoContext(ctx, "request received", "method", r.Method, "path", r.URL.Path)

		next.ServeHTTP(w, r.WithContext(ctx))

		slog.InfoContext(ctx, "request completed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationKey).(string); ok {
		return id
	}
	return "unknown"
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}

// NewJobContext starts a fresh correlation scope for one dequeued job.
func NewJobContext(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return WithCorrelationID(ctx, id), id
}

func WithJobType(ctx context.Context, jobType string) context.Context {
	return context.WithValue(ctx, JobTypeKey, jobType)
}

func GetJobType(ctx context.Context) string {
	if jt, ok := ctx.Value(JobTypeKey).(string); ok {
		return jt
	}
	return ""
}
