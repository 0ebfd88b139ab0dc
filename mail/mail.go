package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/caasmo/farmgate/config"
	"github.com/domodwyer/mailyak/v3"
)

// Mailer sends the account emails over SMTP. The smtp section is read
// from the provider on every send, so a config reload applies to the
// next email.
type Mailer struct {
	configProvider *config.Provider
}

// New creates a Mailer. It fails when the current smtp section cannot
// send mail.
func New(provider *config.Provider) (*Mailer, error) {
	if err := checkSmtp(provider.Get().Smtp); err != nil {
		return nil, err
	}
	return &Mailer{configProvider: provider}, nil
}

func checkSmtp(cfg config.Smtp) error {
	var missing []string
	if cfg.Host == "" {
		missing = append(missing, "host")
	}
	if cfg.Port <= 0 {
		missing = append(missing, "port")
	}
	if cfg.FromAddress == "" {
		missing = append(missing, "from_address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("smtp config missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func auth(cfg config.Smtp) smtp.Auth {
	if cfg.Username == "" {
		return nil
	}
	switch strings.ToLower(cfg.AuthMethod) {
	case "cram-md5":
		return smtp.CRAMMD5Auth(cfg.Username, cfg.Password)
	case "none":
		return nil
	default:
		return smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
}

func (m *Mailer) newMail(to, subject string) (*mailyak.MailYak, error) {
	cfg := m.configProvider.Get().Smtp
	if err := checkSmtp(cfg); err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var mail *mailyak.MailYak
	if cfg.UseTLS {
		var err error
		mail, err = mailyak.NewWithTLS(addr, auth(cfg), &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return nil, fmt.Errorf("smtp tls client: %w", err)
		}
	} else {
		mail = mailyak.New(addr, auth(cfg))
	}
	if cfg.LocalName != "" {
		mail.LocalName(cfg.LocalName)
	}

	mail.To(to)
	mail.From(cfg.FromAddress)
	mail.FromName(cfg.FromName)
	mail.Subject(subject)
	return mail, nil
}

// send runs the blocking SMTP exchange and gives up when ctx is done.
// The exchange goroutine is left to finish on its own.
func send(ctx context.Context, mail *mailyak.MailYak) error {
	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// SendVerificationEmail sends the link that confirms the address.
func (m *Mailer) SendVerificationEmail(ctx context.Context, email, callbackURL string) error {
	appName := m.configProvider.Get().Smtp.FromName
	mail, err := m.newMail(email, fmt.Sprintf("Verify your %s email", appName))
	if err != nil {
		return err
	}

	link := html.EscapeString(callbackURL)
	mail.HTML().Set(fmt.Sprintf(`<h1>Welcome to %s</h1>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="%s">Verify email</a></p>
<p>The link expires in 24 hours. If you did not create an account, ignore this email.</p>`,
		html.EscapeString(appName), link))

	if err := send(ctx, mail); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// SendPasswordResetEmail sends the link that authorizes a new password.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, email, callbackURL string) error {
	appName := m.configProvider.Get().Smtp.FromName
	mail, err := m.newMail(email, fmt.Sprintf("Reset your %s password", appName))
	if err != nil {
		return err
	}

	mail.HTML().Set(fmt.Sprintf(`<h1>Password reset</h1>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="%s">Reset password</a></p>
<p>The link expires in 1 hour. If you did not ask for a reset, your password is unchanged.</p>`,
		html.EscapeString(callbackURL)))

	if err := send(ctx, mail); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// MailerInterface is the mailer seen by the queue handlers.
type MailerInterface interface {
	SendVerificationEmail(ctx context.Context, email, callbackURL string) error
	SendPasswordResetEmail(ctx context.Context, email, callbackURL string) error
}

var _ MailerInterface = (*Mailer)(nil)
