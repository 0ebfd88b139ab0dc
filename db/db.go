package db

import (
	"context"
	"errors"
	"time"

	"github.com/caasmo/farmgate/queue"
)

var (
	ErrConstraintUnique = errors.New("unique constraint violation")
	ErrUserNotFound     = errors.New("user not found")
	// ErrTokenNotFound covers unknown, consumed and expired
	// verification or reset tokens.
	ErrTokenNotFound = errors.New("token not found or expired")
	ErrMissingFields = errors.New("missing required fields")
)

// DbApp is the interface combining the DB roles of the application.
// The concrete implementations (*zombiezen.Db, *postgres.Db) satisfy it.
type DbApp interface {
	DbAuth
	DbQueue
}

type DbAuth interface {
	// CreateUser returns ErrConstraintUnique when the email is taken.
	CreateUser(ctx context.Context, user User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserById(ctx context.Context, id string) (*User, error)

	// UpdateLoginState writes next only if the stored attempt counter
	// still equals expectedAttempts. It reports whether the row was
	// written.
	UpdateLoginState(ctx context.Context, userId string, expectedAttempts int, next LoginState) (bool, error)
	RecordLogin(ctx context.Context, userId string, at time.Time, devices []string) error

	SetVerificationToken(ctx context.Context, userId, tokenHash string, expires time.Time) error
	// VerifyEmail marks the owner of a live token as verified and
	// consumes the token.
	VerifyEmail(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	SetResetToken(ctx context.Context, userId, tokenHash string, expires time.Time) error
	// ResetPassword replaces the hash of the owner of a live token,
	// consumes the token and clears the lockout counters.
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*User, error)
}

type DbQueue interface {
	// InsertJob returns ErrConstraintUnique when the same job type and
	// payload already exist.
	InsertJob(ctx context.Context, job queue.Job) error
	Claim(ctx context.Context, limit int) ([]*queue.Job, error)
	MarkCompleted(ctx context.Context, jobID int64) error
	MarkFailed(ctx context.Context, jobID int64, errMsg string) error
}

// TimeFormat formats a time in RFC3339 UTC, the storage format of all
// timestamps.
func TimeFormat(tt time.Time) string {
	return tt.UTC().Format(time.RFC3339)
}

// TimeParse parses a stored timestamp. The empty string is the zero time.
func TimeParse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// NullableTime formats t, or returns the empty string for the zero time.
func NullableTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return TimeFormat(t)
}
