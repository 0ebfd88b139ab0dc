package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
)

const jobColumns = `id, job_type, payload, status, attempts, max_attempts, created_at, updated_at,
	scheduled_for, locked_at, completed_at, last_error`

func (d *Db) InsertJob(ctx context.Context, job queue.Job) error {
	var missing []string
	if job.JobType == "" {
		missing = append(missing, "JobType")
	}
	if len(job.Payload) == 0 {
		missing = append(missing, "Payload")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", db.ErrMissingFields, strings.Join(missing, ", "))
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = queue.DefaultMaxAttempts
	}
	scheduled := job.ScheduledFor
	if scheduled.IsZero() {
		scheduled = d.now()
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO job_queue (job_type, payload, attempts, max_attempts, scheduled_for)
		VALUES ($1, $2, $3, $4, $5)`,
		job.JobType, string(job.Payload), job.Attempts, job.MaxAttempts, scheduled.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("queue insert failed: %w", err)
	}
	return nil
}

// Claim uses SKIP LOCKED so concurrent schedulers never claim the same job.
func (d *Db) Claim(ctx context.Context, limit int) ([]*queue.Job, error) {
	now := d.now().UTC()
	rows, err := d.db.QueryContext(ctx,
		`UPDATE job_queue
		SET status = 'processing', locked_at = $1, updated_at = $1, attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM job_queue
			WHERE status IN ('pending', 'failed')
				AND attempts < max_attempts
				AND scheduled_for <= $1
			ORDER BY id ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*queue.Job{}
	for rows.Next() {
		var (
			j                     queue.Job
			payload               string
			lockedAt, completedAt sql.NullTime
		)
		if err := rows.Scan(&j.ID, &j.JobType, &payload, &j.Status, &j.Attempts, &j.MaxAttempts,
			&j.CreatedAt, &j.UpdatedAt, &j.ScheduledFor, &lockedAt, &completedAt, &j.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.Payload = []byte(payload)
		j.LockedAt = fromNullTime(lockedAt)
		j.CompletedAt = fromNullTime(completedAt)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	return jobs, nil
}

func (d *Db) MarkCompleted(ctx context.Context, jobID int64) error {
	now := d.now().UTC()
	if _, err := d.exec(ctx,
		`UPDATE job_queue
		SET status = 'completed', completed_at = $1, updated_at = $1, locked_at = NULL, last_error = ''
		WHERE id = $2`, now, jobID); err != nil {
		return fmt.Errorf("failed to mark job as completed: %w", err)
	}
	return nil
}

func (d *Db) MarkFailed(ctx context.Context, jobID int64, errMsg string) error {
	if _, err := d.exec(ctx,
		`UPDATE job_queue
		SET status = 'failed', updated_at = $1, locked_at = NULL, last_error = $2
		WHERE id = $3`, d.now().UTC(), errMsg, jobID); err != nil {
		return fmt.Errorf("failed to mark job as failed: %w", err)
	}
	return nil
}
