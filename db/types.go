package db

import (
	"time"
)

type Role string

const (
	RoleConsumer Role = "consumer"
	RoleFarmer   Role = "farmer"
	RoleAdmin    Role = "admin"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// MaxDevices bounds the list of user agents remembered per account.
const MaxDevices = 10

// FarmDetails is persisted as JSON text in the users table.
type FarmDetails struct {
	FarmName       string   `json:"farmName"`
	FarmSize       string   `json:"farmSize,omitempty"`
	Products       []string `json:"products,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
}

// User represents an account from the database.
// Timestamps use RFC3339 format in UTC timezone.
// Example: "2024-03-07T15:04:05Z"
type User struct {
	ID      string
	Email   string
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
	// Password is always a bcrypt hash. Accounts created through oauth2
	// carry the hash of a random password nobody knows.
	Password    string
	Role        Role
	FarmDetails *FarmDetails
	Status      Status

	Verified            bool
	VerificationToken   string
	VerificationExpires time.Time
	ResetToken          string
	ResetExpires        time.Time

	LoginAttempts   int
	LastFailedLogin time.Time
	LockUntil       time.Time
	LastLogin       time.Time
	Devices         []string

	Oauth2   bool
	Provider string

	Created time.Time
	Updated time.Time
}

// IsLocked is never stored. It only compares LockUntil with now.
func (u *User) IsLocked(now time.Time) bool {
	return !u.LockUntil.IsZero() && u.LockUntil.After(now)
}

// LoginState returns the lockout columns of the account.
func (u *User) LoginState() LoginState {
	return LoginState{
		Attempts:   u.LoginAttempts,
		LastFailed: u.LastFailedLogin,
		LockUntil:  u.LockUntil,
	}
}

// LoginState is the subset of an account updated by the login policy.
type LoginState struct {
	Attempts   int
	LastFailed time.Time
	LockUntil  time.Time
}
