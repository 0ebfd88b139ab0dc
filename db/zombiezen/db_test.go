package zombiezen

import (
	"context"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/caasmo/farmgate/queue"
)

// newTestDB creates a new in-memory SQLite database with the full schema
// applied. The clock of the returned Db is pinned to the returned pointer.
func newTestDB(t *testing.T) (*Db, *time.Time) {
	t.Helper()

	pool, err := sqlitex.NewPool("file::memory:", sqlitex.PoolOptions{
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("failed to create db pool: %v", err)
	}

	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("failed to close db pool: %v", err)
		}
	})

	testDB, err := New(pool)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}

	clock := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	testDB.now = func() time.Time { return clock }

	if err := testDB.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return testDB, &clock
}

func TestNewNilPool(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	testDB, _ := newTestDB(t)
	if err := testDB.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

// listJobs returns every job, newest first.
func listJobs(t *testing.T, d *Db) []*queue.Job {
	t.Helper()
	conn, err := d.pool.Take(context.Background())
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	defer d.pool.Put(conn)

	var jobs []*queue.Job
	err = sqlitex.Execute(conn, `SELECT `+jobColumns+` FROM job_queue ORDER BY id DESC`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			j, err := newJobFromStmt(stmt)
			if err != nil {
				return err
			}
			jobs = append(jobs, j)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	return jobs
}
