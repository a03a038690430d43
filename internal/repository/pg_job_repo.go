package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexops/notify/internal/domain"
)

type pgJobRepository struct {
	pool *pgxpool.Pool
}

// NewPgJobRepository returns a JobRepository backed by PostgreSQL.
func NewPgJobRepository(pool *pgxpool.Pool) JobRepository {
	return &pgJobRepository{pool: pool}
}

const jobColumns = `
	id, name, event_type, tenant_id, user_id, payload, urgency, event_channels,
	priority, status, attempts, max_attempts, run_at, repeat_spec,
	next_retry_at, last_error, created_at, updated_at`

func (r *pgJobRepository) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs
			(id, name, event_type, tenant_id, user_id, payload, urgency, event_channels,
			 priority, status, attempts, max_attempts, run_at, repeat_spec,
			 next_retry_at, last_error, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		job.ID, job.Name, job.Event.Type, job.Event.TenantID, job.Event.UserID,
		job.Event.Payload, job.Event.Urgency, nullableChannels(job.Event.Channels),
		job.Priority, job.Status, job.Attempts, job.MaxAttempts, job.RunAt, job.Repeat,
		job.NextRetryAt, job.LastError, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *pgJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func (r *pgJobRepository) MarkQueued(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.JobQueued)
}

func (r *pgJobRepository) MarkActive(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'active', attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

func (r *pgJobRepository) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'completed', last_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

func (r *pgJobRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'failed', last_error = $1, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2`, errMsg, id)
	return err
}

func (r *pgJobRepository) ScheduleRetry(ctx context.Context, id string, nextRetry time.Time, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'failed', next_retry_at = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3`, nextRetry, errMsg, id)
	return err
}

func (r *pgJobRepository) RescheduleRecurring(ctx context.Context, id string, nextRun time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'scheduled', run_at = $1, attempts = 0,
		    last_error = NULL, next_retry_at = NULL, updated_at = NOW()
		WHERE id = $2`, nextRun, id)
	return err
}

func (r *pgJobRepository) FindDueRetries(ctx context.Context) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'failed'
		  AND attempts < max_attempts
		  AND next_retry_at IS NOT NULL
		  AND next_retry_at <= NOW()
		LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("find due retries: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *pgJobRepository) FindDueScheduled(ctx context.Context) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'scheduled'
		  AND run_at IS NOT NULL
		  AND run_at <= NOW()
		LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("find due scheduled: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *pgJobRepository) FindStranded(ctx context.Context, olderThan time.Time) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status IN ('pending', 'queued')
		  AND updated_at <= $1
		LIMIT 500`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("find stranded jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *pgJobRepository) Counts(ctx context.Context) (domain.JobCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return domain.JobCounts{}, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	var counts domain.JobCounts
	for rows.Next() {
		var (
			status domain.JobStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return domain.JobCounts{}, err
		}
		switch status {
		case domain.JobPending:
			counts.Pending = n
		case domain.JobQueued:
			counts.Queued = n
		case domain.JobActive:
			counts.Active = n
		case domain.JobScheduled:
			counts.Scheduled = n
		case domain.JobCompleted:
			counts.Completed = n
		case domain.JobFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

func (r *pgJobRepository) setStatus(ctx context.Context, id string, status domain.JobStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// nullableChannels keeps the nil/empty distinction across the row: a nil
// list stores as NULL (preferences decide), an explicit empty list as '{}'.
func nullableChannels(channels []domain.Channel) []string {
	if channels == nil {
		return nil
	}
	return channelsToStrings(channels)
}

// scanJob reads a single job row from any pgx row type.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job      domain.Job
		channels []string
	)
	err := row.Scan(
		&job.ID, &job.Name, &job.Event.Type, &job.Event.TenantID, &job.Event.UserID,
		&job.Event.Payload, &job.Event.Urgency, &channels,
		&job.Priority, &job.Status, &job.Attempts, &job.MaxAttempts,
		&job.RunAt, &job.Repeat, &job.NextRetryAt, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if channels != nil {
		job.Event.Channels = channelsFromStrings(channels)
	}
	return &job, nil
}

func scanJobs(rows pgx.Rows) ([]*domain.Job, error) {
	var result []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}
