package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/mail"
	"github.com/caasmo/farmgate/queue"
)

// ResetPasswordRoute is the frontend route that asks for the new
// password and calls POST /api/auth/reset-password/:token.
const ResetPasswordRoute = "/reset-password/"

// PasswordResetHandler handles password reset jobs
type PasswordResetHandler struct {
	db             Store
	configProvider *config.Provider
	mailer         mail.MailerInterface
	now            func() time.Time
}

// NewPasswordResetHandler creates a new PasswordResetHandler
func NewPasswordResetHandler(store Store, provider *config.Provider, mailer mail.MailerInterface) *PasswordResetHandler {
	return &PasswordResetHandler{
		db:             store,
		configProvider: provider,
		mailer:         mailer,
		now:            time.Now,
	}
}

// Handle implements the JobHandler interface for password reset.
// Accounts that are not active get no mail.
func (h *PasswordResetHandler) Handle(ctx context.Context, job queue.Job) error {
	var payload queue.PayloadPasswordReset
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse password reset payload: %w", err)
	}

	user, err := h.db.GetUserById(ctx, payload.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Status != db.StatusActive {
		return nil
	}

	cfg := h.configProvider.Get()
	token, hash, err := crypto.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	expires := h.now().Add(cfg.Account.ResetTokenDuration.Duration)
	if err := h.db.SetResetToken(ctx, user.ID, hash, expires); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	callbackURL := frontendLink(cfg.FrontendURL, ResetPasswordRoute, token)
	if err := h.mailer.SendPasswordResetEmail(ctx, user.Email, callbackURL); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
