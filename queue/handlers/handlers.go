// Package handlers holds the job handlers of the mail queue. A handler
// issues the single use token, stores its digest on the account and
// mails the raw token, so raw tokens never reach the jobs table.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/caasmo/farmgate/db"
)

// Store is the part of the credential store used by the mail jobs.
type Store interface {
	GetUserById(ctx context.Context, id string) (*db.User, error)
	SetVerificationToken(ctx context.Context, userId, tokenHash string, expires time.Time) error
	SetResetToken(ctx context.Context, userId, tokenHash string, expires time.Time) error
}

// frontendLink joins the frontend base URL, a route and the token.
func frontendLink(base, route, token string) string {
	return strings.TrimRight(base, "/") + route + token
}
