package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
)

type contextKey string

const userContextKey contextKey = "user"

// userFromContext returns the account stored by RequireAuth.
func userFromContext(ctx context.Context) (*db.User, bool) {
	u, ok := ctx.Value(userContextKey).(*db.User)
	return u, ok && u != nil
}

// authenticateBearer resolves the bearer token of r to an active account.
// On failure the precomputed response to write is returned.
func (a *App) authenticateBearer(r *http.Request) (*db.User, jsonResponse, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errorNoAuthHeader, errors.New("no authorization header")
	}

	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || strings.TrimSpace(tokenString) == "" {
		return nil, errorInvalidTokenFormat, errors.New("authorization is not a bearer token")
	}

	claims, err := crypto.ParseSessionToken(strings.TrimSpace(tokenString), []byte(a.Config().Jwt.Secret))
	if err != nil {
		switch {
		case errors.Is(err, crypto.ErrJwtTokenExpired):
			return nil, errorJwtTokenExpired, err
		case errors.Is(err, crypto.ErrJwtInvalidSigningMethod):
			return nil, errorJwtInvalidSignMethod, err
		}
		return nil, errorJwtInvalidToken, err
	}

	user, err := a.DbAuth().GetUserById(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, errorJwtInvalidToken, err
		}
		return nil, errorAuthDatabaseError, err
	}

	if user.Status != db.StatusActive {
		return nil, errorAccountInactive, errors.New("account is not active")
	}

	return user, jsonResponse{}, nil
}

// RequireAuth rejects requests without a valid session token of an
// active account and stores the account in the request context.
func (a *App) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, resp, err := a.authenticateBearer(r)
		if err != nil {
			if resp.status == http.StatusInternalServerError {
				a.Logger().Error("failed to load session account", "error", err)
				a.writeInternalError(w, resp, err)
				return
			}
			writeJsonError(w, resp)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
