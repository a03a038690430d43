package domain

import "time"

// JobStatus tracks the lifecycle of a queue job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobQueued    JobStatus = "queued"
	JobActive    JobStatus = "active"
	JobScheduled JobStatus = "scheduled"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is the durable queue record. The event fields are serialized into
// the row so delivery survives restarts; the in-memory dispatch queue
// only carries the job ID and its priority tier.
//
// Priority is a deterministic function of urgency: 1 = CRITICAL served
// first, 4 = INFO served last.
type Job struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Event       Event      `json:"event"`
	Priority    int        `json:"priority"`
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
	RunAt       *time.Time `json:"runAt,omitempty"`
	Repeat      string     `json:"repeat,omitempty"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	LastError   *string    `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// JobCounts is the observability snapshot of the durable queue.
type JobCounts struct {
	Pending   int `json:"pending"`
	Queued    int `json:"queued"`
	Active    int `json:"active"`
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
