package core

import (
	"errors"
	"net/http"

	"github.com/caasmo/farmgate/account"
	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
)

// RequestPasswordResetHandler queues a password reset mail.
// Endpoint: POST /api/auth/forgot-password
// Authenticated: No
// Allowed Mimetype: application/json
//
// Every well formed request gets the same 200, whether the email exists
// or not. Only active accounts are mailed, at most once per cooldown.
func (a *App) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
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
		a.Logger().Debug("password reset for unknown email")
	case err != nil:
		a.Logger().Error("failed to look up account for password reset", "error", err)
	case user.Status != db.StatusActive:
		a.Logger().Info("password reset for inactive account ignored", "user_id", user.ID)
	default:
		if err := a.enqueueMail(r.Context(), queue.JobTypePasswordReset, user.ID); err != nil {
			a.Logger().Error("failed to queue password reset email", "user_id", user.ID, "error", err)
		}
	}

	writeJsonOk(w, okPasswordResetRequested)
}

// ConfirmPasswordResetHandler sets a new password with the token mailed
// by RequestPasswordResetHandler. The token is single use and the lockout
// counter is cleared.
// Endpoint: POST /api/auth/reset-password/:token
// Authenticated: No
// Allowed Mimetype: application/json
func (a *App) ConfirmPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	token := a.Param(r, "token")
	if token == "" {
		writeJsonError(w, errorInvalidResetToken)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if resp, ok := a.decodeJson(w, r, &req); !ok {
		writeJsonError(w, resp)
		return
	}

	if reason := account.ValidatePassword(req.Password); reason != "" {
		writeValidationError(w, account.FieldErrors{"password": reason})
		return
	}

	hash, err := crypto.GenerateHash(req.Password)
	if err != nil {
		a.Logger().Error("failed to hash password", "error", err)
		a.writeInternalError(w, errorPasswordResetFailed, err)
		return
	}

	user, err := a.DbAuth().ResetPassword(r.Context(), crypto.HashToken(token), hash, a.now())
	if err != nil {
		if errors.Is(err, db.ErrTokenNotFound) {
			writeJsonError(w, errorInvalidResetToken)
			return
		}
		a.Logger().Error("failed to reset password", "error", err)
		a.writeInternalError(w, errorPasswordResetFailed, err)
		return
	}

	a.Logger().Info("password reset", "user_id", user.ID)
	writeJsonOk(w, okPasswordReset)
}
