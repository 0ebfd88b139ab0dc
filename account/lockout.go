package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
)

const (
	MaxLoginAttempts = 5
	LockDuration     = 30 * time.Minute

	// maxApplyRetries bounds the compare-and-swap loop of Apply.
	maxApplyRetries = 3
)

// LoginPolicy is the lockout state machine. An account is Unlocked(n)
// or Locked(until). The counter survives the lock expiry, so one more
// failure after the window locks the account again.
type LoginPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

func DefaultLoginPolicy() LoginPolicy {
	return LoginPolicy{MaxAttempts: MaxLoginAttempts, LockDuration: LockDuration}
}

// Check returns a *LockedError while the account is locked.
func (p LoginPolicy) Check(u *db.User, now time.Time) error {
	if u.IsLocked(now) {
		return &LockedError{Until: u.LockUntil}
	}
	return nil
}

// Failure is the transition on a wrong password.
func (p LoginPolicy) Failure(s db.LoginState, now time.Time) db.LoginState {
	next := db.LoginState{
		Attempts:   s.Attempts + 1,
		LastFailed: now,
		LockUntil:  s.LockUntil,
	}
	if next.Attempts >= p.MaxAttempts {
		next.LockUntil = now.Add(p.LockDuration)
	}
	return next
}

// Success is the transition on a correct password.
func (p LoginPolicy) Success(db.LoginState) db.LoginState {
	return db.LoginState{}
}

// LoginStateStore is the part of the credential store the policy writes to.
type LoginStateStore interface {
	GetUserById(ctx context.Context, id string) (*db.User, error)
	UpdateLoginState(ctx context.Context, userId string, expectedAttempts int, next db.LoginState) (bool, error)
}

// Apply computes next from the stored state and writes it with a
// compare-and-swap on the attempt counter. On a lost race it re-reads
// the account and tries again. The user is updated with the written state.
func (p LoginPolicy) Apply(ctx context.Context, store LoginStateStore, u *db.User, next func(db.LoginState) db.LoginState) (db.LoginState, error) {
	current := u.LoginState()
	for range maxApplyRetries {
		n := next(current)
		ok, err := store.UpdateLoginState(ctx, u.ID, current.Attempts, n)
		if err != nil {
			return current, fmt.Errorf("update login state: %w", err)
		}
		if ok {
			u.LoginAttempts = n.Attempts
			u.LastFailedLogin = n.LastFailed
			u.LockUntil = n.LockUntil
			return n, nil
		}

		fresh, err := store.GetUserById(ctx, u.ID)
		if err != nil {
			return current, fmt.Errorf("reload login state: %w", err)
		}
		current = fresh.LoginState()
	}
	return current, ErrLoginStateConflict
}

// AuthStore is the part of the credential store used by password login.
type AuthStore interface {
	LoginStateStore
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	RecordLogin(ctx context.Context, userId string, at time.Time, devices []string) error
}

// Authenticator runs password logins through the login policy.
type Authenticator struct {
	// OnLock, when set, runs after a failure locks the account.
	OnLock func(ctx context.Context, u *db.User, until time.Time)

	store  AuthStore
	policy LoginPolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthenticator(store AuthStore, policy LoginPolicy, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnCompare spends one bcrypt comparison so unknown emails take as
// long as wrong passwords.
func burnCompare(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = crypto.GenerateHash(crypto.RandomString(32, crypto.AlphanumericAlphabet))
	})
	crypto.CheckPassword(password, dummyHash)
}

// Authenticate checks the credentials and moves the lockout state.
// The lock is checked before the password, so a locked account is
// rejected even with the right password. The status is only revealed to
// callers that know the password. device, when not empty, is appended
// to the account devices.
//
// Errors: ErrInvalidCredentials, *LockedError, ErrAccountInactive, or a
// wrapped store error.
func (a *Authenticator) Authenticate(ctx context.Context, email, password, device string) (*db.User, error) {
	u, err := a.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			burnCompare(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	now := a.now()
	if err := a.policy.Check(u, now); err != nil {
		return nil, err
	}

	if !crypto.CheckPassword(password, u.Password) {
		state, err := a.policy.Apply(ctx, a.store, u, func(s db.LoginState) db.LoginState {
			return a.policy.Failure(s, now)
		})
		if err != nil {
			// the failed login is still reported as such
			a.logger.Error("failed to record login failure", "user_id", u.ID, "err", err)
		} else if state.LockUntil.Equal(now.Add(a.policy.LockDuration)) {
			a.logger.Warn("account locked", "user_id", u.ID, "until", state.LockUntil)
			if a.OnLock != nil {
				a.OnLock(ctx, u, state.LockUntil)
			}
		}
		return nil, ErrInvalidCredentials
	}

	if u.Status != db.StatusActive {
		return nil, ErrAccountInactive
	}

	if u.LoginAttempts != 0 || !u.LockUntil.IsZero() || !u.LastFailedLogin.IsZero() {
		if _, err := a.policy.Apply(ctx, a.store, u, a.policy.Success); err != nil {
			a.logger.Error("failed to reset login state", "user_id", u.ID, "err", err)
		}
	}

	devices := AppendDevice(u.Devices, device)
	if err := a.store.RecordLogin(ctx, u.ID, now, devices); err != nil {
		a.logger.Error("failed to record login", "user_id", u.ID, "err", err)
	} else {
		u.LastLogin = now
		u.Devices = devices
	}

	return u, nil
}
