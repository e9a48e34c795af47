package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"talentsync/apps/worker/features/job"
	"talentsync/apps/worker/internal/middleware"
	"talentsync/apps/worker/internal/worker"
)

const (
	syncTag     = "periodic-sync"
	RequestedBy = "scheduler"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, req job.Request, requestedBy string) (*worker.JobMessage, error)
}

// Scheduler enqueues etl_sync jobs on a timer. It only produces jobs; the
// consumer still runs them one at a time.
type Scheduler struct {
	scheduler *gocron.Scheduler
	enqueuer  Enqueuer
}

func New(enqueuer Enqueuer) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()
	return &Scheduler{scheduler: s, enqueuer: enqueuer}
}

// ScheduleCron enqueues a sync on a standard five-field cron expression.
func (s *Scheduler) ScheduleCron(expr string) error {
	_, err := s.scheduler.Cron(expr).Tag(syncTag).Do(s.enqueueSync)
	return err
}

func (s *Scheduler) ScheduleEvery(interval time.Duration) error {
	_, err := s.scheduler.Every(interval).WaitForSchedule().Tag(syncTag).Do(s.enqueueSync)
	return err
}

func (s *Scheduler) enqueueSync() {
	ctx, _ := middleware.NewJobContext(context.Background())
	if _, err := s.enqueuer.Enqueue(ctx, job.Request{JobType: worker.JobTypeSync}, RequestedBy); err != nil {
		slog.ErrorContext(ctx, "scheduled sync enqueue failed", "error", err)
	}
}

// Run starts the timer and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.scheduler.StartAsync()
	slog.Info("sync scheduler started", "jobs", len(s.scheduler.Jobs()))
	<-ctx.Done()
	s.scheduler.Stop()
	slog.Info("sync scheduler stopped")
}
