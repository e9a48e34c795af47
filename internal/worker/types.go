package worker

import (
	"context"
	"time"

	"talentsync/apps/worker/internal/candidate"
	"talentsync/apps/worker/internal/vector"
)

// Point is one entry in the vector index. ID is always the candidate id.
type Point struct {
	ID      int64
	Vector  []float32
	Payload map[string]string
}

const (
	PayloadName        = "name"
	PayloadTextContent = "text_content"
	PayloadUpdatedAt   = "updated_at"
)

type StalenessStore interface {
	ListStale(ctx context.Context) ([]candidate.Candidate, error)
	// Get returns nil, nil when the candidate does not exist.
	Get(ctx context.Context, id int64) (*candidate.Candidate, error)
	MarkIndexed(ctx context.Context, ids []int64) error
	ResetAllIndexed(ctx context.Context) (int64, error)
}

// Embedder turns texts into vectors. The result is positionally aligned with
// texts; an empty input yields an empty result.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorIndex interface {
	EnsureCollection(ctx context.Context, dimension int, distance vector.Distance) error
	Upsert(ctx context.Context, points []Point) error
	// Delete succeeds when the point is already gone.
	Delete(ctx context.Context, id int64) error
	// Clear removes every point and is a no-op when the collection is absent.
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// JobSource yields raw job payloads. A nil payload with a nil error means
// nothing arrived before the source's poll window closed.
type JobSource interface {
	Pop(ctx context.Context) ([]byte, error)
}

type HistoryRecorder interface {
	Record(ctx context.Context, exec Execution) error
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusIgnored   = "ignored"
	StatusDropped   = "dropped"
)

// Execution is the audit record kept for each processed job.
type Execution struct {
	JobType       string    `json:"job_type"`
	CandidateID   *int64    `json:"candidate_id,omitempty"`
	Status        string    `json:"status"`
	Processed     int       `json:"processed"`
	Error         string    `json:"error,omitempty"`
	RequestedBy   string    `json:"requested_by,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}
