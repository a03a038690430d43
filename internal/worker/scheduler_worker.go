package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/repository"
)

// SchedulerWorker polls the database for jobs whose run_at has passed
// and enqueues them for immediate processing.
//
// Jobs published with a delay or a repeat schedule are stored with
// status=scheduled and bypass the queue until their time arrives.
// Recurring jobs come back here after each cycle: the processing worker
// moves them to their next run time on completion.
type SchedulerWorker struct {
	jobs     repository.JobRepository
	q        *queue.PriorityQueue
	interval time.Duration
	logger   *zap.Logger
}

// requeueAfter is how long a pending/queued row may sit untouched before
// the poller assumes it is no longer on the in-memory queue (publish hit
// a paused or full queue, the enqueue mark failed, or the process
// restarted) and puts it back.
const requeueAfter = 5 * time.Minute

func NewSchedulerWorker(
	jobs repository.JobRepository,
	q *queue.PriorityQueue,
	interval time.Duration,
	logger *zap.Logger,
) *SchedulerWorker {
	return &SchedulerWorker{jobs: jobs, q: q, interval: interval, logger: logger}
}

// Run ticks every interval and enqueues any jobs that are now due.
// Stops cleanly when ctx is cancelled.
func (sw *SchedulerWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("scheduler worker started", zap.Duration("interval", sw.interval))

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("scheduler worker stopping")
			return
		case <-ticker.C:
			sw.poll(ctx)
		}
	}
}

// Recover re-enqueues every pending/queued row regardless of age. Called
// once at startup, before any new publishes, to pick up the backlog a
// previous process left behind.
func (sw *SchedulerWorker) Recover(ctx context.Context) {
	sw.requeueStranded(ctx, time.Now())
}

func (sw *SchedulerWorker) poll(ctx context.Context) {
	jobs, err := sw.jobs.FindDueScheduled(ctx)
	if err != nil {
		sw.logger.Error("scheduler poll error", zap.Error(err))
		return
	}

	for _, job := range jobs {
		sw.enqueue(ctx, job)
	}

	if len(jobs) > 0 {
		sw.logger.Info("enqueued due scheduled jobs", zap.Int("count", len(jobs)))
	}

	sw.requeueStranded(ctx, time.Now().Add(-requeueAfter))
}

func (sw *SchedulerWorker) requeueStranded(ctx context.Context, olderThan time.Time) {
	jobs, err := sw.jobs.FindStranded(ctx, olderThan)
	if err != nil {
		sw.logger.Error("stranded job poll error", zap.Error(err))
		return
	}

	for _, job := range jobs {
		sw.enqueue(ctx, job)
	}

	if len(jobs) > 0 {
		sw.logger.Warn("re-enqueued stranded jobs", zap.Int("count", len(jobs)))
	}
}

func (sw *SchedulerWorker) enqueue(ctx context.Context, job *domain.Job) {
	if err := sw.q.Enqueue(queue.Item{JobID: job.ID, Priority: job.Priority}); err != nil {
		sw.logger.Warn("could not enqueue scheduled job",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	if err := sw.jobs.MarkQueued(ctx, job.ID); err != nil {
		sw.logger.Error("failed to mark job queued after scheduling",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}
