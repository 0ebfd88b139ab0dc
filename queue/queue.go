package queue

import (
	"encoding/json"
	"time"
)

// Job is a row of the job queue.
type Job struct {
	ID           int64           `json:"id"`
	JobType      string          `json:"job_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	LockedAt     time.Time       `json:"locked_at,omitempty"`
	CompletedAt  time.Time       `json:"completed_at,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
}

// PayloadEmailVerification identifies the account to send a verification
// mail to. The token itself is generated by the job so it never lands in
// the jobs table.
//
// The unique constraint on (job_type, payload) allows one job per account
// and CooldownBucket, see CoolDownBucket.
type PayloadEmailVerification struct {
	UserID         string `json:"user_id"`
	CooldownBucket int    `json:"cooldown_bucket"`
}

// PayloadPasswordReset works like PayloadEmailVerification. A request
// at 13:58 with a 2h cooldown and another at 14:02 fall in different
// buckets, so the cooldown is at most, not at least, the duration.
type PayloadPasswordReset struct {
	UserID         string `json:"user_id"`
	CooldownBucket int    `json:"cooldown_bucket"`
}

// Job types
const (
	JobTypeEmailVerification = "job_type_email_verification"
	JobTypePasswordReset     = "job_type_password_reset"
)

// Job statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DefaultMaxAttempts is used when a job is inserted without MaxAttempts.
const DefaultMaxAttempts = 3

// CoolDownBucket returns the number of whole durations between the Unix
// epoch and t. Requests of the same period share the bucket.
//
// Panics if duration is not positive.
func CoolDownBucket(duration time.Duration, t time.Time) int {
	if duration <= 0 {
		panic("duration must be positive")
	}

	return int(t.Unix() / int64(duration.Seconds()))
}

// NewJob builds a pending job with a JSON encoded payload.
func NewJob(jobType string, payload any) (Job, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	return Job{
		JobType:     jobType,
		Payload:     b,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
	}, nil
}
