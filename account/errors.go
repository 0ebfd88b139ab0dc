package account

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned for an unknown email and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrAccountLocked      = errors.New("account is locked")
	// ErrLoginStateConflict is returned when the lockout counter kept
	// changing under every compare-and-swap retry.
	ErrLoginStateConflict = errors.New("login state changed concurrently")
)

// LockedError carries the instant the lock expires.
// errors.Is(err, ErrAccountLocked) holds for it.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// BridgeError is the failure of resolving a federated identity to a
// local account.
type BridgeError struct {
	Provider string
	Op       string
	Err      error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s identity %s: %v", e.Provider, e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}
