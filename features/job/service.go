package job

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"talentsync/apps/worker/internal/worker"
)

type Pusher interface {
	Push(ctx context.Context, payload []byte) error
}

type HistoryReader interface {
	List(ctx context.Context, limit int) ([]worker.Execution, error)
	Last(ctx context.Context) (*worker.Execution, error)
}

type Service struct {
	queue   Pusher
	history HistoryReader
	now     func() time.Time
}

func NewService(queue Pusher, history HistoryReader) *Service {
	return &Service{queue: queue, history: history, now: time.Now}
}

// Enqueue validates req and pushes it as a JobMessage.
func (s *Service) Enqueue(ctx context.Context, req Request, requestedBy string) (*worker.JobMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg := &worker.JobMessage{
		JobType:     req.JobType,
		CandidateID: req.CandidateID,
		RequestedBy: requestedBy,
		Timestamp:   s.now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Push(ctx, body); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "job enqueued", "job_type", msg.JobType, "requested_by", requestedBy)
	return msg, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]worker.Execution, error) {
	return s.history.List(ctx, limit)
}

func (s *Service) Last(ctx context.Context) (*worker.Execution, error) {
	return s.history.Last(ctx)
}
