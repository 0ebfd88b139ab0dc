package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/mail"
	"github.com/caasmo/farmgate/queue"
)

// VerifyEmailRoute is the frontend route that receives the verification
// token and calls GET /api/auth/verify-email/:token.
const VerifyEmailRoute = "/verify-email/"

// EmailVerificationHandler handles email verification jobs
type EmailVerificationHandler struct {
	db             Store
	configProvider *config.Provider
	mailer         mail.MailerInterface
	now            func() time.Time
}

// NewEmailVerificationHandler creates a new EmailVerificationHandler
func NewEmailVerificationHandler(store Store, provider *config.Provider, mailer mail.MailerInterface) *EmailVerificationHandler {
	return &EmailVerificationHandler{
		db:             store,
		configProvider: provider,
		mailer:         mailer,
		now:            time.Now,
	}
}

// Handle implements the JobHandler interface for email verification.
// Accounts already verified are skipped without error.
func (h *EmailVerificationHandler) Handle(ctx context.Context, job queue.Job) error {
	var payload queue.PayloadEmailVerification
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse email verification payload: %w", err)
	}

	user, err := h.db.GetUserById(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Verified {
		return nil
	}

	cfg := h.configProvider.Get()
	token, hash, err := crypto.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	expires := h.now().Add(cfg.Account.VerificationTokenDuration.Duration)
	if err := h.db.SetVerificationToken(ctx, user.ID, hash, expires); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	callbackURL := frontendLink(cfg.FrontendURL, VerifyEmailRoute, token)
	if err := h.mailer.SendVerificationEmail(ctx, user.Email, callbackURL); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
