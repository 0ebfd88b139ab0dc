package mock

import (
	"context"
	"time"

	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
)

// Compile-time check to ensure Db implements the DbApp interface
var _ db.DbApp = (*Db)(nil)

// Db implements db.DbApp for testing purposes.
// Use function fields to allow overriding behavior in specific tests.
type Db struct {
	// --- Mock DbAuth Methods ---
	CreateUserFunc           func(ctx context.Context, user db.User) (*db.User, error)
	GetUserByEmailFunc       func(ctx context.Context, email string) (*db.User, error)
	GetUserByIdFunc          func(ctx context.Context, id string) (*db.User, error)
	UpdateLoginStateFunc     func(ctx context.Context, userId string, expectedAttempts int, next db.LoginState) (bool, error)
	RecordLoginFunc          func(ctx context.Context, userId string, at time.Time, devices []string) error
	SetVerificationTokenFunc func(ctx context.Context, userId, tokenHash string, expires time.Time) error
	VerifyEmailFunc          func(ctx context.Context, tokenHash string, now time.Time) (*db.User, error)
	SetResetTokenFunc        func(ctx context.Context, userId, tokenHash string, expires time.Time) error
	ResetPasswordFunc        func(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*db.User, error)

	// --- Mock DbQueue Methods ---
	InsertJobFunc     func(ctx context.Context, job queue.Job) error
	ClaimFunc         func(ctx context.Context, limit int) ([]*queue.Job, error)
	MarkCompletedFunc func(ctx context.Context, jobID int64) error
	MarkFailedFunc    func(ctx context.Context, jobID int64, errMsg string) error
}

// --- Implement DbAuth ---
func (m *Db) CreateUser(ctx context.Context, user db.User) (*db.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, user)
	}
	// Default: Return the user passed in, assuming success
	if user.ID == "" {
		user.ID = "mock-user-id"
	}
	if user.Status == "" {
		user.Status = db.StatusActive
	}
	return &user, nil
}

func (m *Db) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	if m.GetUserByEmailFunc != nil {
		return m.GetUserByEmailFunc(ctx, email)
	}
	return nil, db.ErrUserNotFound // Default: Not found
}

func (m *Db) GetUserById(ctx context.Context, id string) (*db.User, error) {
	if m.GetUserByIdFunc != nil {
		return m.GetUserByIdFunc(ctx, id)
	}
	return nil, db.ErrUserNotFound
}

func (m *Db) UpdateLoginState(ctx context.Context, userId string, expectedAttempts int, next db.LoginState) (bool, error) {
	if m.UpdateLoginStateFunc != nil {
		return m.UpdateLoginStateFunc(ctx, userId, expectedAttempts, next)
	}
	return true, nil
}

func (m *Db) RecordLogin(ctx context.Context, userId string, at time.Time, devices []string) error {
	if m.RecordLoginFunc != nil {
		return m.RecordLoginFunc(ctx, userId, at, devices)
	}
	return nil
}

func (m *Db) SetVerificationToken(ctx context.Context, userId, tokenHash string, expires time.Time) error {
	if m.SetVerificationTokenFunc != nil {
		return m.SetVerificationTokenFunc(ctx, userId, tokenHash, expires)
	}
	return nil
}

func (m *Db) VerifyEmail(ctx context.Context, tokenHash string, now time.Time) (*db.User, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, tokenHash, now)
	}
	return nil, db.ErrTokenNotFound
}

func (m *Db) SetResetToken(ctx context.Context, userId, tokenHash string, expires time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, userId, tokenHash, expires)
	}
	return nil
}

func (m *Db) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*db.User, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, tokenHash, passwordHash, now)
	}
	return nil, db.ErrTokenNotFound
}

// --- Implement DbQueue ---
func (m *Db) InsertJob(ctx context.Context, job queue.Job) error {
	if m.InsertJobFunc != nil {
		return m.InsertJobFunc(ctx, job)
	}
	return nil
}

func (m *Db) Claim(ctx context.Context, limit int) ([]*queue.Job, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, limit)
	}
	return []*queue.Job{}, nil
}

func (m *Db) MarkCompleted(ctx context.Context, jobID int64) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, jobID)
	}
	return nil
}

func (m *Db) MarkFailed(ctx context.Context, jobID int64, errMsg string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, jobID, errMsg)
	}
	return nil
}
