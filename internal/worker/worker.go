package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/repository"
)

// Processor runs the delivery pipeline for one event. Satisfied by the
// notification service; mocked in tests.
type Processor interface {
	ProcessSync(ctx context.Context, event domain.Event) error
}

// Worker is a single goroutine that continuously pulls items from the
// priority queue, loads the durable job row, runs the delivery pipeline,
// and handles retry scheduling on failure.
type Worker struct {
	id         int
	q          *queue.PriorityQueue
	jobs       repository.JobRepository
	processor  Processor
	backoff    []time.Duration
	jobTimeout time.Duration
	cronSpec   cron.Parser
	logger     *zap.Logger

	// Hook for metrics — injected by the pool so the worker stays metrics-agnostic.
	onProcessed func(urgency domain.Urgency, latency time.Duration)
}

// NewWorker constructs a worker. onProcessed is optional (nil = no-op).
func NewWorker(
	id int,
	q *queue.PriorityQueue,
	jobs repository.JobRepository,
	processor Processor,
	backoff []time.Duration,
	jobTimeout time.Duration,
	logger *zap.Logger,
	onProcessed func(domain.Urgency, time.Duration),
) *Worker {
	if onProcessed == nil {
		onProcessed = func(domain.Urgency, time.Duration) {}
	}
	return &Worker{
		id: id, q: q, jobs: jobs, processor: processor,
		backoff: backoff, jobTimeout: jobTimeout, logger: logger,
		cronSpec: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		onProcessed: onProcessed,
	}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	start := time.Now()
	log := w.logger.With(zap.String("job_id", item.JobID))

	job, err := w.jobs.GetByID(ctx, item.JobID)
	if err != nil {
		log.Error("failed to fetch job", zap.Error(err))
		return
	}

	// A job completed by the synchronous fallback (or a crashed worker's
	// stale queue entry) is valid to see here; skip silently.
	if job.Status == domain.JobCompleted {
		log.Debug("job already completed before processing")
		return
	}

	if err := w.jobs.MarkActive(ctx, job.ID); err != nil {
		log.Error("failed to mark job active", zap.Error(err))
		return
	}
	job.Attempts++

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err = w.processor.ProcessSync(jobCtx, job.Event)
	cancel()
	elapsed := time.Since(start)

	if err != nil {
		log.Warn("job processing failed",
			zap.Error(err),
			zap.Int("attempts", job.Attempts),
		)
		w.handleFailure(ctx, job, err)
		return
	}

	if err := w.jobs.MarkCompleted(ctx, job.ID); err != nil {
		log.Error("failed to mark job completed", zap.Error(err))
		return
	}
	w.rescheduleIfRecurring(ctx, job, log)

	w.onProcessed(job.Event.Urgency, elapsed)
	log.Info("job processed",
		zap.String("event_type", job.Event.Type),
		zap.Duration("latency", elapsed))
}

// handleFailure either schedules a retry (if attempts remain) or marks
// the job as permanently failed. The row is kept either way.
//
// Retry schedule uses exponential backoff:
//
//	attempt 1 → backoff[0]  (default 5 s)
//	attempt 2 → backoff[1]  (default 30 s)
//	attempt 3 → backoff[2]  (default 120 s)
//	attempt N ≥ len(backoff) → last backoff entry (clamped)
func (w *Worker) handleFailure(ctx context.Context, job *domain.Job, procErr error) {
	if job.Attempts >= job.MaxAttempts {
		if err := w.jobs.MarkFailed(ctx, job.ID, procErr.Error()); err != nil {
			w.logger.Error("failed to mark job as failed",
				zap.String("job_id", job.ID), zap.Error(err))
		}
		return
	}

	idx := job.Attempts - 1
	if idx >= len(w.backoff) {
		idx = len(w.backoff) - 1
	}
	if idx < 0 {
		idx = 0
	}
	nextRetry := time.Now().UTC().Add(w.backoff[idx])

	if err := w.jobs.ScheduleRetry(ctx, job.ID, nextRetry, procErr.Error()); err != nil {
		w.logger.Error("failed to schedule retry",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}

// rescheduleIfRecurring advances a repeating job to its next cron slot
// after a successful cycle.
func (w *Worker) rescheduleIfRecurring(ctx context.Context, job *domain.Job, log *zap.Logger) {
	if job.Repeat == "" {
		return
	}
	schedule, err := w.cronSpec.Parse(job.Repeat)
	if err != nil {
		// Validated at publish time; a parse failure here means the row
		// was edited out-of-band.
		log.Error("invalid repeat spec on stored job",
			zap.String("repeat", job.Repeat), zap.Error(err))
		return
	}
	next := schedule.Next(time.Now().UTC())
	if err := w.jobs.RescheduleRecurring(ctx, job.ID, next); err != nil {
		log.Error("failed to reschedule recurring job", zap.Error(err))
		return
	}
	log.Info("recurring job rescheduled", zap.Time("next_run", next))
}
