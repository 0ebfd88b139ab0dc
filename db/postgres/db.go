package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// uniqueViolation is the SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

type Db struct {
	db  *sql.DB
	now func() time.Time
}

var _ db.DbAuth = (*Db)(nil)
var _ db.DbQueue = (*Db)(nil)

// Open connects through the pgx database/sql driver.
func Open(dsn string, maxOpenConns int) (*Db, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if maxOpenConns > 0 {
		conn.SetMaxOpenConns(maxOpenConns)
	}
	return New(conn)
}

// New wraps an existing handle. Close closes it.
func New(conn *sql.DB) (*Db, error) {
	if conn == nil {
		return nil, fmt.Errorf("provided sql.DB cannot be nil")
	}
	return &Db{db: conn, now: time.Now}, nil
}

func (d *Db) Close() error {
	return d.db.Close()
}

func (d *Db) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate runs the embedded goose migrations up.
func (d *Db) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Postgres())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func fromNullTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time.UTC()
}
