package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
)

// issueSessionToken signs a session token for u valid for duration.
func (a *App) issueSessionToken(u *db.User, duration time.Duration) (string, time.Time, error) {
	claims := crypto.SessionClaims{
		UserID: u.ID,
		Role:   string(u.Role),
		Email:  u.Email,
		Name:   u.Name,
	}
	return crypto.NewSessionToken(claims, []byte(a.Config().Jwt.Secret), duration)
}

// enqueueMail inserts the mail job of jobType for the account. A job of
// the same cooldown bucket already queued is not an error: the mail is
// on its way.
func (a *App) enqueueMail(ctx context.Context, jobType, userID string) error {
	cfg := a.Config()
	var payload any
	switch jobType {
	case queue.JobTypeEmailVerification:
		payload = queue.PayloadEmailVerification{
			UserID:         userID,
			CooldownBucket: queue.CoolDownBucket(cfg.RateLimits.EmailVerificationCooldown.Duration, a.now()),
		}
	case queue.JobTypePasswordReset:
		payload = queue.PayloadPasswordReset{
			UserID:         userID,
			CooldownBucket: queue.CoolDownBucket(cfg.RateLimits.PasswordResetCooldown.Duration, a.now()),
		}
	default:
		return errors.New("unknown mail job type: " + jobType)
	}

	job, err := queue.NewJob(jobType, payload)
	if err != nil {
		return err
	}

	err = a.DbQueue().InsertJob(ctx, job)
	if errors.Is(err, db.ErrConstraintUnique) {
		a.Logger().Debug("mail already queued in this cooldown bucket", "job_type", jobType, "user_id", userID)
		return nil
	}
	return err
}

// LogoutHandler acknowledges a logout. Tokens are stateless, the client
// discards its copy.
// Endpoint: POST /api/auth/logout
// Authenticated: No
func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonOk(w, okLogout)
}

// MeHandler returns the account of the session token.
// Endpoint: GET /api/auth/me
// Authenticated: Yes
func (a *App) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorJwtInvalidToken)
		return
	}

	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  http.StatusOK,
			Code:    CodeOkCurrentUser,
			Message: "Current user",
		},
		Data: map[string]any{"user": NewUserSummary(user)},
	})
}
