package core

import (
	"errors"
	"net/http"

	"github.com/caasmo/farmgate/account"
	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
)

// ConfirmVerificationHandler marks the owner of a mailed verification
// token as verified.
// Endpoint: GET /api/auth/verify-email/:token
// Authenticated: No
func (a *App) ConfirmVerificationHandler(w http.ResponseWriter, r *http.Request) {
	token := a.Param(r, "token")
	if token == "" {
		writeJsonError(w, errorInvalidVerificationToken)
		return
	}

	user, err := a.DbAuth().VerifyEmail(r.Context(), crypto.HashToken(token), a.now())
	if err != nil {
		if errors.Is(err, db.ErrTokenNotFound) {
			writeJsonError(w, errorInvalidVerificationToken)
			return
		}
		a.Logger().Error("failed to verify email", "error", err)
		a.writeInternalError(w, errorEmailVerificationFailed, err)
		return
	}

	a.Logger().Info("email verified", "user_id", user.ID)
	writeJsonOk(w, okEmailVerified)
}

// RequestVerificationHandler queues a new verification mail.
// Endpoint: POST /api/auth/resend-verification
// Authenticated: No
// Allowed Mimetype: application/json
//
// Like the password reset request, the answer does not depend on the
// account existing or being verified already.
func (a *App) RequestVerificationHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if resp, ok := a.decodeJson(w, r, &req); !ok {
		writeJsonError(w, resp)
		return
	}

	email := account.NormalizeEmail(req.Email)
	if !account.ValidateEmail(email) {
		writeJsonError(w, errorInvalidRequest)
		return
	}

	user, err := a.DbAuth().GetUserByEmail(r.Context(), email)
	switch {
	case errors.Is(err, db.ErrUserNotFound):
	case err != nil:
		a.Logger().Error("failed to look up account for verification", "error", err)
	case user.Verified:
	default:
		if err := a.enqueueMail(r.Context(), queue.JobTypeEmailVerification, user.ID); err != nil {
			a.Logger().Error("failed to queue verification email", "user_id", user.ID, "error", err)
		}
	}

	writeJsonOk(w, okVerificationRequested)
}
