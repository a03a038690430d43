package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/domain"
	"github.com/lexops/notify/internal/queue"
	"github.com/lexops/notify/internal/repository"
)

type fakeProcessor struct {
	calls atomic.Int32
	err   error
}

func (f *fakeProcessor) ProcessSync(_ context.Context, _ domain.Event) error {
	f.calls.Add(1)
	return f.err
}

var backoff = []time.Duration{5 * time.Second, 30 * time.Second, 120 * time.Second}

func seedJob(t *testing.T, jobs *repository.MockJobRepository, attempts int) *domain.Job {
	t.Helper()
	job := &domain.Job{
		ID:   "j1",
		Name: "cliente.created",
		Event: domain.Event{
			Type: "cliente.created", TenantID: "t1", UserID: "u1",
			Payload: domain.Payload{"nome": "Ana"}, Urgency: domain.UrgencyMedium,
		},
		Priority:    queue.PriorityMedium,
		Status:      domain.JobQueued,
		Attempts:    attempts,
		MaxAttempts: 3,
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	return job
}

func TestWorker_CompletesJob(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	proc := &fakeProcessor{}
	q := queue.New()
	w := NewWorker(0, q, jobs, proc, backoff, time.Minute, zap.NewNop(), nil)

	seedJob(t, jobs, 0)
	w.process(context.Background(), queue.Item{JobID: "j1", Priority: queue.PriorityMedium})

	got, _ := jobs.GetByID(context.Background(), "j1")
	if got.Status != domain.JobCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	if proc.calls.Load() != 1 {
		t.Errorf("processor calls = %d, want 1", proc.calls.Load())
	}
}

func TestWorker_FailureSchedulesRetryWithBackoff(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	proc := &fakeProcessor{err: errors.New("template store down")}
	w := NewWorker(0, queue.New(), jobs, proc, backoff, time.Minute, zap.NewNop(), nil)

	seedJob(t, jobs, 0)
	w.process(context.Background(), queue.Item{JobID: "j1", Priority: queue.PriorityMedium})

	got, _ := jobs.GetByID(context.Background(), "j1")
	if got.Status != domain.JobFailed {
		t.Fatalf("status = %s, want failed with retry scheduled", got.Status)
	}
	if got.NextRetryAt == nil {
		t.Fatal("next retry must be scheduled")
	}
	until := time.Until(*got.NextRetryAt)
	if until < 3*time.Second || until > 6*time.Second {
		t.Errorf("first retry in %v, want about 5s", until)
	}
	if got.LastError == nil || *got.LastError == "" {
		t.Error("failure reason must be recorded")
	}
}

func TestWorker_ExhaustedAttemptsMarkFailed(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	proc := &fakeProcessor{err: errors.New("still broken")}
	w := NewWorker(0, queue.New(), jobs, proc, backoff, time.Minute, zap.NewNop(), nil)

	// Two attempts already burned; this pickup is the third and last.
	seedJob(t, jobs, 2)
	w.process(context.Background(), queue.Item{JobID: "j1", Priority: queue.PriorityMedium})

	got, _ := jobs.GetByID(context.Background(), "j1")
	if got.Status != domain.JobFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.NextRetryAt != nil {
		t.Error("exhausted job must not schedule another retry")
	}
	if got.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", got.Attempts)
	}
}

func TestWorker_SkipsAlreadyCompletedJob(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	proc := &fakeProcessor{}
	w := NewWorker(0, queue.New(), jobs, proc, backoff, time.Minute, zap.NewNop(), nil)

	seedJob(t, jobs, 0)
	_ = jobs.MarkCompleted(context.Background(), "j1")

	w.process(context.Background(), queue.Item{JobID: "j1", Priority: queue.PriorityMedium})
	if proc.calls.Load() != 0 {
		t.Error("completed job must not be processed again")
	}
}

func TestWorker_RecurringJobRescheduled(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	proc := &fakeProcessor{}
	w := NewWorker(0, queue.New(), jobs, proc, backoff, time.Minute, zap.NewNop(), nil)

	job := seedJob(t, jobs, 0)
	job.Repeat = "0 8 * * *"
	_ = jobs.Create(context.Background(), job)

	w.process(context.Background(), queue.Item{JobID: "j1", Priority: queue.PriorityMedium})

	got, _ := jobs.GetByID(context.Background(), "j1")
	if got.Status != domain.JobScheduled {
		t.Fatalf("status = %s, want scheduled for the next cycle", got.Status)
	}
	if got.RunAt == nil || !got.RunAt.After(time.Now()) {
		t.Errorf("runAt = %v, want a future cron slot", got.RunAt)
	}
	if got.Attempts != 0 {
		t.Errorf("attempts = %d, want reset to 0", got.Attempts)
	}
}

func TestPool_StopsOnContextCancel(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	q := queue.New()
	pool := NewPool(4, q, jobs, &fakeProcessor{}, backoff, time.Minute, zap.NewNop(), MetricHooks{})

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after context cancellation")
	}
}

func TestRetryWorker_ReenqueuesDueJobs(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	q := queue.New()
	rw := NewRetryWorker(jobs, q, time.Hour, zap.NewNop())

	seedJob(t, jobs, 1)
	past := time.Now().Add(-time.Minute)
	_ = jobs.ScheduleRetry(context.Background(), "j1", past, "boom")

	rw.poll(context.Background())

	item, ok := q.Dequeue(context.Background())
	if !ok || item.JobID != "j1" {
		t.Fatalf("queue item = %v %v, want re-enqueued j1", item, ok)
	}
	got, _ := jobs.GetByID(context.Background(), "j1")
	if got.Status != domain.JobQueued {
		t.Errorf("status = %s, want queued", got.Status)
	}
}

func TestSchedulerWorker_EnqueuesDueJobs(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	q := queue.New()
	sw := NewSchedulerWorker(jobs, q, time.Hour, zap.NewNop())

	job := seedJob(t, jobs, 0)
	past := time.Now().Add(-time.Second)
	job.Status = domain.JobScheduled
	job.RunAt = &past
	_ = jobs.Create(context.Background(), job)

	sw.poll(context.Background())

	item, ok := q.Dequeue(context.Background())
	if !ok || item.JobID != "j1" {
		t.Fatalf("queue item = %v %v, want enqueued j1", item, ok)
	}
}

func retainedJob(t *testing.T, jobs *repository.MockJobRepository, id string, status domain.JobStatus, updatedAt time.Time) {
	t.Helper()
	job := &domain.Job{
		ID:   id,
		Name: "cliente.created",
		Event: domain.Event{
			Type: "cliente.created", TenantID: "t1", UserID: "u1",
			Payload: domain.Payload{"nome": "Ana"}, Urgency: domain.UrgencyMedium,
		},
		Priority:    queue.PriorityMedium,
		Status:      status,
		MaxAttempts: 3,
		UpdatedAt:   updatedAt,
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
}

func TestSchedulerWorker_RequeuesStrandedJobs(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	q := queue.New()
	sw := NewSchedulerWorker(jobs, q, time.Hour, zap.NewNop())

	// A publish during a pause leaves an accepted job as a pending row
	// with no in-memory item; a crash does the same to queued rows.
	retainedJob(t, jobs, "stale", domain.JobPending, time.Now().Add(-10*time.Minute))
	retainedJob(t, jobs, "fresh", domain.JobPending, time.Now())

	sw.poll(context.Background())

	item, ok := q.Dequeue(context.Background())
	if !ok || item.JobID != "stale" {
		t.Fatalf("queue item = %v %v, want re-enqueued stale job", item, ok)
	}
	if _, ok := q.Dequeue(contextWithTimeout(t)); ok {
		t.Fatal("fresh pending job must not be re-enqueued yet")
	}

	got, _ := jobs.GetByID(context.Background(), "stale")
	if got.Status != domain.JobQueued {
		t.Errorf("stale status = %s, want queued", got.Status)
	}
	got, _ = jobs.GetByID(context.Background(), "fresh")
	if got.Status != domain.JobPending {
		t.Errorf("fresh status = %s, want still pending", got.Status)
	}
}

func TestSchedulerWorker_RecoverRequeuesRestartBacklog(t *testing.T) {
	jobs := repository.NewMockJobRepository()
	q := queue.New()
	sw := NewSchedulerWorker(jobs, q, time.Hour, zap.NewNop())

	// After a restart even fresh queued rows are not on the new queue.
	retainedJob(t, jobs, "j1", domain.JobQueued, time.Now())

	sw.Recover(context.Background())

	item, ok := q.Dequeue(context.Background())
	if !ok || item.JobID != "j1" {
		t.Fatalf("queue item = %v %v, want recovered j1", item, ok)
	}
}

func contextWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestPurgeWorker_RemovesOnlyExpiredNotifications(t *testing.T) {
	notifs := repository.NewMockNotificationRepository()
	ctx := context.Background()

	expired := &domain.Notification{
		ID: "n1", TenantID: "t1", UserID: "u1", Type: "cliente.created",
		Title: "Antigo", Message: "Expirado",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	live := &domain.Notification{
		ID: "n2", TenantID: "t1", UserID: "u1", Type: "cliente.created",
		Title: "Atual", Message: "Vigente",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := notifs.Create(ctx, expired); err != nil {
		t.Fatal(err)
	}
	if err := notifs.Create(ctx, live); err != nil {
		t.Fatal(err)
	}

	pw := NewPurgeWorker(notifs, time.Hour, zap.NewNop())
	pw.poll(ctx)

	remaining := notifs.All()
	if len(remaining) != 1 || remaining[0].ID != "n2" {
		t.Fatalf("remaining = %d rows, want only the unexpired one", len(remaining))
	}
}
