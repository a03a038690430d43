package repository

import (
	"context"
	"time"

	"github.com/lexops/notify/internal/domain"
)

// JobRepository persists dispatch jobs. Every event accepted for delivery
// gets a row here before it is placed on the in-memory queue, so a restart
// never loses work: the retry and scheduler pollers re-enqueue from these
// rows. The pgx implementation is in pg_job_repo.go.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// MarkQueued records that the job is sitting on the in-memory queue.
	MarkQueued(ctx context.Context, id string) error
	// MarkActive records pickup by a worker and increments the attempt count.
	MarkActive(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string) error
	// MarkFailed is terminal: attempts are exhausted and the row is kept
	// for inspection.
	MarkFailed(ctx context.Context, id string, errMsg string) error
	// ScheduleRetry parks a failed job until nextRetry, when the retry
	// poller picks it back up.
	ScheduleRetry(ctx context.Context, id string, nextRetry time.Time, errMsg string) error
	// RescheduleRecurring advances a repeating job to its next run time
	// after a completed cycle.
	RescheduleRecurring(ctx context.Context, id string, nextRun time.Time) error

	FindDueRetries(ctx context.Context) ([]*domain.Job, error)
	FindDueScheduled(ctx context.Context) ([]*domain.Job, error)
	// FindStranded returns pending/queued rows untouched since olderThan.
	// Such rows are no longer on the in-memory queue (publish hit a paused
	// or full queue, the enqueue mark failed, or the process restarted)
	// and must be re-enqueued to honor the durability guarantee.
	FindStranded(ctx context.Context, olderThan time.Time) ([]*domain.Job, error)

	Counts(ctx context.Context) (domain.JobCounts, error)
}
