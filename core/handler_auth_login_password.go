package core

import (
	"errors"
	"net/http"

	"github.com/caasmo/farmgate/account"
)

// LoginWithPasswordHandler handles password-based authentication.
// Endpoint: POST /api/auth/login
// Authenticated: No
// Allowed Mimetype: application/json
//
// Unknown email and wrong password get the same 401. A locked account
// gets 423 with the unlock time even when the password is right.
func (a *App) LoginWithPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if resp, ok := a.decodeJson(w, r, &req); !ok {
		writeJsonError(w, resp)
		return
	}

	email := account.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" || !account.ValidateEmail(email) {
		writeJsonError(w, errorInvalidRequest)
		return
	}

	user, err := a.Auth().Authenticate(r.Context(), email, req.Password, device(r))
	if err != nil {
		var locked *account.LockedError
		switch {
		case errors.Is(err, account.ErrInvalidCredentials):
			writeJsonError(w, errorInvalidCredentials)
		case errors.As(err, &locked):
			writeLockedError(w, locked.Until)
		case errors.Is(err, account.ErrAccountInactive):
			writeJsonError(w, errorAccountInactive)
		default:
			a.Logger().Error("login failed", "error", err)
			a.writeInternalError(w, errorAuthDatabaseError, err)
		}
		return
	}

	token, expiresAt, err := a.issueSessionToken(user, a.Config().Jwt.AuthTokenDuration.Duration)
	if err != nil {
		a.Logger().Error("failed to issue session token", "user_id", user.ID, "error", err)
		a.writeInternalError(w, errorTokenGeneration, err)
		return
	}

	writeAuthResponse(w, http.StatusOK, CodeOkAuthentication, "Authentication successful", token, expiresAt, user)
}
