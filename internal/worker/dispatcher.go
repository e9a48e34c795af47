package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"talentsync/apps/worker/internal/middleware"
)

// Dispatcher decodes job payloads and routes them to the Engine.
type Dispatcher struct {
	engine  *Engine
	history HistoryRecorder
}

// NewDispatcher builds a Dispatcher; history may be nil.
func NewDispatcher(engine *Engine, history HistoryRecorder) *Dispatcher {
	return &Dispatcher{engine: engine, history: history}
}

// Process handles one payload under a fresh correlation id.
// Errors are returned for logging only; the job is never requeued.
func (d *Dispatcher) Process(ctx context.Context, payload []byte) error {
	ctx, correlationID := middleware.NewJobContext(ctx)
	exec := Execution{CorrelationID: correlationID, StartedAt: time.Now().UTC()}

	job, err := DecodeJob(payload)
	exec.JobType = job.Type
	if err != nil {
		slog.ErrorContext(ctx, "dropping malformed job", "error", err)
		exec.Status = StatusDropped
		exec.Error = err.Error()
		d.record(ctx, exec)
		return err
	}

	ctx = middleware.WithJobType(ctx, job.Type)
	exec.RequestedBy = job.RequestedBy
	if job.Kind == KindSingleIndex || job.Kind == KindDeletePoint {
		id := job.CandidateID
		exec.CandidateID = &id
	}

	slog.InfoContext(ctx, "job received", "kind", job.Kind.String(), "requested_by", job.RequestedBy)

	var processed int
	switch job.Kind {
	case KindSyncAll, KindEmbeddingBatch:
		processed, err = d.engine.SyncAll(ctx)
	case KindSingleIndex:
		processed, err = d.engine.SingleIndex(ctx, job.CandidateID)
	case KindDeletePoint:
		err = d.engine.DeletePoint(ctx, job.CandidateID)
	case KindFullReindex:
		processed, err = d.engine.FullReindex(ctx)
	case KindUnknown:
		slog.WarnContext(ctx, "unknown job type, ignoring")
		exec.Status = StatusIgnored
		d.record(ctx, exec)
		return nil
	}

	exec.Processed = processed
	if err != nil {
		exec.Status = StatusFailed
		exec.Error = err.Error()
		d.record(ctx, exec)
		return err
	}

	exec.Status = StatusSucceeded
	d.record(ctx, exec)
	slog.InfoContext(ctx, "job completed", "processed", processed, "duration", time.Since(exec.StartedAt))
	return nil
}

func (d *Dispatcher) record(ctx context.Context, exec Execution) {
	if d.history == nil {
		return
	}
	exec.FinishedAt = time.Now().UTC()
	if err := d.history.Record(ctx, exec); err != nil {
		slog.WarnContext(ctx, "failed to record job execution", "error", err)
	}
}

// NSQHandler lets the Dispatcher consume from NSQ. Jobs run under ctx so a
// shutdown cancels the one in flight. It always acks: failures are logged,
// not redelivered.
func (d *Dispatcher) NSQHandler(ctx context.Context) nsq.Handler {
	return nsq.HandlerFunc(func(m *nsq.Message) error {
		if len(m.Body) == 0 {
			return nil
		}
		if err := d.Process(ctx, m.Body); err != nil {
			slog.ErrorContext(ctx, "job failed", "error", err, "terminal", IsTerminal(err))
		}
		return nil
	})
}
