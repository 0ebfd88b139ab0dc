package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestInsertJob(t *testing.T) {
	payload := json.RawMessage(`{"user_id":"u1","cooldown_bucket":3}`)

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^INSERT\s+INTO\s+job_queue`).
			WithArgs(queue.JobTypePasswordReset, string(payload), 0, queue.DefaultMaxAttempts, testNow).
			WillReturnResult(sqlmock.NewResult(1, 1))

		if err := repo.InsertJob(context.Background(), queue.Job{JobType: queue.JobTypePasswordReset, Payload: payload}); err != nil {
			t.Fatalf("InsertJob error: %v", err)
		}
	})

	t.Run("same bucket", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^INSERT\s+INTO\s+job_queue`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.InsertJob(context.Background(), queue.Job{JobType: queue.JobTypePasswordReset, Payload: payload})
		if !errors.Is(err, db.ErrConstraintUnique) {
			t.Fatalf("want ErrConstraintUnique, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		repo, _ := newRepoWithMock(t)
		if err := repo.InsertJob(context.Background(), queue.Job{}); !errors.Is(err, db.ErrMissingFields) {
			t.Fatalf("want ErrMissingFields, got %v", err)
		}
	})
}

func TestClaim(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "job_type", "payload", "status", "attempts", "max_attempts",
		"created_at", "updated_at", "scheduled_for", "locked_at", "completed_at", "last_error"}).
		AddRow(int64(7), queue.JobTypeEmailVerification, `{"user_id":"u1"}`, "processing", 1, 3,
			testNow, testNow, testNow, testNow, nil, "")

	mock.ExpectQuery(`(?s)^UPDATE\s+job_queue.*FOR\s+UPDATE\s+SKIP\s+LOCKED.*RETURNING`).
		WithArgs(testNow, 5).
		WillReturnRows(rows)

	jobs, err := repo.Claim(context.Background(), 5)
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	j := jobs[0]
	if j.ID != 7 || j.Status != queue.StatusProcessing || string(j.Payload) != `{"user_id":"u1"}` {
		t.Errorf("unexpected job: %+v", j)
	}
	if !j.CompletedAt.IsZero() || !j.LockedAt.Equal(testNow) {
		t.Errorf("unexpected times: locked=%v completed=%v", j.LockedAt, j.CompletedAt)
	}
}

func TestMarkCompletedAndFailed(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^UPDATE\s+job_queue\s+SET\s+status\s*=\s*'completed'`).
		WithArgs(testNow, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^UPDATE\s+job_queue\s+SET\s+status\s*=\s*'failed'`).
		WithArgs(testNow, "smtp down", int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkCompleted(context.Background(), 7); err != nil {
		t.Fatalf("MarkCompleted error: %v", err)
	}
	if err := repo.MarkFailed(context.Background(), 8, "smtp down"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
