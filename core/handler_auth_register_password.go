package core

import (
	"errors"
	"net/http"

	"github.com/caasmo/farmgate/account"
	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/queue"
)

// RegisterWithPasswordHandler creates a consumer or farmer account and
// logs it in.
// Endpoint: POST /api/auth/register
// Authenticated: No
// Allowed Mimetype: application/json
//
// Nothing is written unless every field validates. The verification mail
// is queued after the account exists; failing to queue it does not fail
// the registration.
func (a *App) RegisterWithPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req account.Registration
	if resp, ok := a.decodeJson(w, r, &req); !ok {
		writeJsonError(w, resp)
		return
	}

	req.Normalize()
	if fe := account.ValidateRegistration(req); len(fe) > 0 {
		writeValidationError(w, fe)
		return
	}

	hash, err := crypto.GenerateHash(req.Password)
	if err != nil {
		a.Logger().Error("failed to hash password", "error", err)
		a.writeInternalError(w, errorRegistrationFailed, err)
		return
	}

	user, err := a.DbAuth().CreateUser(r.Context(), req.ToUser(hash))
	if err != nil {
		if errors.Is(err, db.ErrConstraintUnique) {
			writeJsonError(w, errorEmailConflict)
			return
		}
		a.Logger().Error("failed to create account", "error", err)
		a.writeInternalError(w, errorAuthDatabaseError, err)
		return
	}

	a.Logger().Info("account registered", "user_id", user.ID, "role", user.Role)

	if err := a.enqueueMail(r.Context(), queue.JobTypeEmailVerification, user.ID); err != nil {
		a.Logger().Error("failed to queue verification email", "user_id", user.ID, "error", err)
	}

	token, expiresAt, err := a.issueSessionToken(user, a.Config().Jwt.AuthTokenDuration.Duration)
	if err != nil {
		a.Logger().Error("failed to issue session token", "user_id", user.ID, "error", err)
		a.writeInternalError(w, errorTokenGeneration, err)
		return
	}

	writeAuthResponse(w, http.StatusCreated, CodeOkRegistration, "Registration successful", token, expiresAt, user)
}
