package repository

import (
	"context"
	"sync"
	"time"

	"github.com/lexops/notify/internal/domain"
)

// MockJobRepository is a hand-written, in-memory implementation of
// JobRepository used in unit tests.
type MockJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr  error
	GetByIDErr error
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{jobs: make(map[string]*domain.Job)}
}

func (m *MockJobRepository) Create(_ context.Context, job *domain.Job) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *MockJobRepository) GetByID(_ context.Context, id string) (*domain.Job, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *MockJobRepository) MarkQueued(_ context.Context, id string) error {
	return m.update(id, func(job *domain.Job) {
		job.Status = domain.JobQueued
	})
}

func (m *MockJobRepository) MarkActive(_ context.Context, id string) error {
	return m.update(id, func(job *domain.Job) {
		job.Status = domain.JobActive
		job.Attempts++
	})
}

func (m *MockJobRepository) MarkCompleted(_ context.Context, id string) error {
	return m.update(id, func(job *domain.Job) {
		job.Status = domain.JobCompleted
		job.LastError = nil
		job.NextRetryAt = nil
	})
}

func (m *MockJobRepository) MarkFailed(_ context.Context, id, errMsg string) error {
	return m.update(id, func(job *domain.Job) {
		job.Status = domain.JobFailed
		job.LastError = &errMsg
		job.NextRetryAt = nil
	})
}

func (m *MockJobRepository) ScheduleRetry(_ context.Context, id string, nextRetry time.Time, errMsg string) error {
	return m.update(id, func(job *domain.Job) {
		job.Status = domain.JobFailed
		job.NextRetryAt = &nextRetry
		job.LastError = &errMsg
	})
}

func (m *MockJobRepository) RescheduleRecurring(_ context.Context, id string, nextRun time.Time) error {
	return m.update(id, func(job *domain.Job) {
		job.Status = domain.JobScheduled
		job.RunAt = &nextRun
		job.Attempts = 0
		job.LastError = nil
		job.NextRetryAt = nil
	})
}

func (m *MockJobRepository) FindDueRetries(_ context.Context) ([]*domain.Job, error) {
	now := time.Now()
	return m.filter(func(job *domain.Job) bool {
		return job.Status == domain.JobFailed &&
			job.Attempts < job.MaxAttempts &&
			job.NextRetryAt != nil && !job.NextRetryAt.After(now)
	}), nil
}

func (m *MockJobRepository) FindDueScheduled(_ context.Context) ([]*domain.Job, error) {
	now := time.Now()
	return m.filter(func(job *domain.Job) bool {
		return job.Status == domain.JobScheduled &&
			job.RunAt != nil && !job.RunAt.After(now)
	}), nil
}

func (m *MockJobRepository) FindStranded(_ context.Context, olderThan time.Time) ([]*domain.Job, error) {
	return m.filter(func(job *domain.Job) bool {
		return (job.Status == domain.JobPending || job.Status == domain.JobQueued) &&
			!job.UpdatedAt.After(olderThan)
	}), nil
}

func (m *MockJobRepository) Counts(_ context.Context) (domain.JobCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var counts domain.JobCounts
	for _, job := range m.jobs {
		switch job.Status {
		case domain.JobPending:
			counts.Pending++
		case domain.JobQueued:
			counts.Queued++
		case domain.JobActive:
			counts.Active++
		case domain.JobScheduled:
			counts.Scheduled++
		case domain.JobCompleted:
			counts.Completed++
		case domain.JobFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

func (m *MockJobRepository) update(id string, mutate func(*domain.Job)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	mutate(job)
	job.UpdatedAt = time.Now()
	return nil
}

func (m *MockJobRepository) filter(keep func(*domain.Job) bool) []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Job
	for _, job := range m.jobs {
		if keep(job) {
			clone := *job
			out = append(out, &clone)
		}
	}
	return out
}
