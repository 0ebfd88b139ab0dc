package zombiezen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const jobColumns = `id, job_type, payload, status, attempts, max_attempts, created_at, updated_at,
	scheduled_for, locked_at, completed_at, last_error`

// validateQueueJob checks for required fields in a job before insertion.
func validateQueueJob(job queue.Job) error {
	var missingFields []string
	if job.JobType == "" {
		missingFields = append(missingFields, "JobType")
	}
	if len(job.Payload) == 0 {
		missingFields = append(missingFields, "Payload")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("%w: %s", db.ErrMissingFields, strings.Join(missingFields, ", "))
	}
	return nil
}

// newJobFromStmt creates a Job struct from a SQLite statement row.
func newJobFromStmt(stmt *sqlite.Stmt) (*queue.Job, error) {
	job := &queue.Job{
		ID:          stmt.GetInt64("id"),
		JobType:     stmt.GetText("job_type"),
		Payload:     json.RawMessage(stmt.GetText("payload")),
		Status:      stmt.GetText("status"),
		Attempts:    int(stmt.GetInt64("attempts")),
		MaxAttempts: int(stmt.GetInt64("max_attempts")),
		LastError:   stmt.GetText("last_error"),
	}

	times := []struct {
		col string
		dst *time.Time
	}{
		{"created_at", &job.CreatedAt},
		{"updated_at", &job.UpdatedAt},
		{"scheduled_for", &job.ScheduledFor},
		{"locked_at", &job.LockedAt},
		{"completed_at", &job.CompletedAt},
	}
	for _, tc := range times {
		t, err := db.TimeParse(stmt.GetText(tc.col))
		if err != nil {
			return nil, fmt.Errorf("error parsing %s time: %w", tc.col, err)
		}
		*tc.dst = t
	}
	return job, nil
}

// InsertJob adds a new job to the queue.
func (d *Db) InsertJob(ctx context.Context, job queue.Job) error {
	if err := validateQueueJob(job); err != nil {
		return err
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = queue.DefaultMaxAttempts
	}
	scheduled := job.ScheduledFor
	if scheduled.IsZero() {
		scheduled = d.now()
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("queue insert failed to get connection: %w", err)
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO job_queue
		(job_type, payload, attempts, max_attempts, scheduled_for)
		VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				job.JobType,
				string(job.Payload),
				job.Attempts,
				job.MaxAttempts,
				db.TimeFormat(scheduled),
			},
		})

	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("queue insert failed: %w", err)
	}
	return nil
}

// Claim locks and returns up to limit due jobs for processing.
// The jobs are marked as 'processing' and their attempt counter is
// incremented. Failed jobs are retried until max_attempts.
func (d *Db) Claim(ctx context.Context, limit int) ([]*queue.Job, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection for claim: %w", err)
	}
	defer d.pool.Put(conn)

	now := db.TimeFormat(d.now())
	var jobs []*queue.Job
	err = sqlitex.Execute(conn,
		`UPDATE job_queue
		SET status = 'processing',
			locked_at = ?,
			updated_at = ?,
			attempts = attempts + 1
		WHERE id IN (
			SELECT id
			FROM job_queue
			WHERE status IN ('pending', 'failed')
				AND attempts < max_attempts
				AND scheduled_for <= ?
			ORDER BY id ASC
			LIMIT ?
		)
		RETURNING `+jobColumns,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				job, err := newJobFromStmt(stmt)
				if err != nil {
					return err
				}
				jobs = append(jobs, job)
				return nil
			},
			Args: []any{now, now, now, limit},
		})

	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	if jobs == nil {
		jobs = []*queue.Job{}
	}
	return jobs, nil
}

// MarkCompleted marks a job as completed successfully.
func (d *Db) MarkCompleted(ctx context.Context, jobID int64) error {
	now := db.TimeFormat(d.now())
	if _, err := d.exec(ctx,
		`UPDATE job_queue
		SET status = 'completed',
			completed_at = ?,
			updated_at = ?,
			locked_at = '',
			last_error = ''
		WHERE id = ?`,
		now, now, jobID); err != nil {
		return fmt.Errorf("failed to mark job as completed: %w", err)
	}
	return nil
}

// MarkFailed marks a job as failed.
func (d *Db) MarkFailed(ctx context.Context, jobID int64, errMsg string) error {
	if _, err := d.exec(ctx,
		`UPDATE job_queue
		SET status = 'failed',
			updated_at = ?,
			locked_at = '',
			last_error = ?
		WHERE id = ?`,
		db.TimeFormat(d.now()), errMsg, jobID); err != nil {
		return fmt.Errorf("failed to mark job as failed: %w", err)
	}
	return nil
}
