package zombiezen

import (
	"context"
	"fmt"
	"time"

	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/migrations"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type Db struct {
	pool *sqlitex.Pool
	// now is replaced in tests
	now func() time.Time
}

// Verify interface implementations
var _ db.DbAuth = (*Db)(nil)
var _ db.DbQueue = (*Db)(nil)

const busyTimeout = 5 * time.Second

// New creates a new Db instance using an existing pool.
// The lifecycle of the provided pool is managed by the caller.
func New(pool *sqlitex.Pool) (*Db, error) {
	if pool == nil {
		return nil, fmt.Errorf("provided pool cannot be nil")
	}
	return &Db{pool: pool, now: time.Now}, nil
}

// NewPool creates a WAL pool for the database file at path.
func NewPool(path string, size int) (*sqlitex.Pool, error) {
	// zombiezen/sqlitex.NewPool with default options uses flags:
	// sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL | sqlite.OpenURI
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:%s", path), sqlitex.PoolOptions{
		PoolSize: size,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeout.Milliseconds()), nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create zombiezen pool at %s: %w", path, err)
	}
	return pool, nil
}

// Migrate applies the embedded sqlite schema.
func (d *Db) Migrate(ctx context.Context) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to get db connection: %w", err)
	}
	defer d.pool.Put(conn)

	return ApplyMigrations(conn, migrations.Sqlite())
}

func isUniqueViolation(err error) bool {
	return sqlite.ErrCode(err) == sqlite.ResultConstraintUnique
}
