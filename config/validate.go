package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// MinJwtSecretLength matches the HMAC-SHA256 key size.
const MinJwtSecretLength = 32

var blockIpLevels = map[string]bool{"low": true, "medium": true, "high": true}

func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := validateDb(&cfg.Db); err != nil {
		return fmt.Errorf("db config validation failed: %w", err)
	}
	if err := validateJwt(&cfg.Jwt); err != nil {
		return fmt.Errorf("jwt config validation failed: %w", err)
	}
	if err := validateAbsoluteURL(cfg.FrontendURL); err != nil {
		return fmt.Errorf("frontend_url: %w", err)
	}
	if cfg.Account.VerificationTokenDuration.Duration <= 0 || cfg.Account.ResetTokenDuration.Duration <= 0 {
		return fmt.Errorf("account token durations must be positive")
	}
	if cfg.OAuth2.StateTTL.Duration <= 0 || cfg.OAuth2.ExchangeTimeout.Duration <= 0 {
		return fmt.Errorf("oauth2 state_ttl and exchange_timeout must be positive")
	}
	if err := validateProviders(cfg.Providers); err != nil {
		return fmt.Errorf("oauth2 providers validation failed: %w", err)
	}
	if err := validateSmtp(&cfg.Smtp); err != nil {
		return fmt.Errorf("smtp config validation failed: %w", err)
	}
	if cfg.Scheduler.Interval.Duration <= 0 || cfg.Scheduler.MaxJobsPerTick <= 0 || cfg.Scheduler.ConcurrencyMultiplier <= 0 {
		return fmt.Errorf("scheduler interval, max_jobs_per_tick and concurrency_multiplier must be positive")
	}
	if cfg.RateLimits.PasswordResetCooldown.Duration < time.Second || cfg.RateLimits.EmailVerificationCooldown.Duration < time.Second {
		return fmt.Errorf("rate limit cooldowns must be at least one second")
	}
	if cfg.BlockIp.Enabled && !blockIpLevels[cfg.BlockIp.Level] {
		return fmt.Errorf("block_ip level '%s' must be one of low, medium, high", cfg.BlockIp.Level)
	}
	if cfg.BlockIp.Enabled && (cfg.BlockIp.MaxSharePercent <= 0 || cfg.BlockIp.MaxSharePercent > 100) {
		return fmt.Errorf("block_ip max_share_percent must be between 1 and 100")
	}
	if err := validateDiscord(&cfg.Notify.Discord); err != nil {
		return fmt.Errorf("notify discord: %w", err)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log format '%s' must be json or text", cfg.Log.Format)
	}
	return nil
}

// validateServer checks the Server configuration section.
// It ensures the Addr field is not empty and contains a valid host:port or :port format.
// If only a port is provided (e.g., ":8080"), the host stays empty and the
// server listens on all interfaces.
func validateServer(server *Server) error {
	if server.Addr == "" {
		return fmt.Errorf("server address (Addr) cannot be empty")
	}

	_, port, err := net.SplitHostPort(server.Addr)
	if err != nil {
		return fmt.Errorf("invalid server address format '%s': %w", server.Addr, err)
	}
	if port == "" {
		return fmt.Errorf("server address '%s' must include a port", server.Addr)
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("invalid port '%s' in server address '%s': %w", port, server.Addr, err)
	}

	if err := validateAbsoluteURL(server.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if server.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}

func validateDb(d *Db) error {
	switch d.Driver {
	case DbDriverSqlite:
		if d.Path == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	case DbDriverPostgres:
		if d.Dsn == "" {
			return fmt.Errorf("postgres dsn cannot be empty")
		}
	default:
		return fmt.Errorf("unknown driver '%s'", d.Driver)
	}
	if d.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive")
	}
	return nil
}

func validateJwt(j *Jwt) error {
	if len(j.Secret) < MinJwtSecretLength {
		return fmt.Errorf("secret must be at least %d bytes", MinJwtSecretLength)
	}
	if j.AuthTokenDuration.Duration <= 0 || j.OAuth2TokenDuration.Duration <= 0 {
		return fmt.Errorf("token durations must be positive")
	}
	return nil
}

func validateProviders(providers map[string]OAuth2Provider) error {
	for name, p := range providers {
		if (p.ClientID == "") != (p.ClientSecret == "") {
			return fmt.Errorf("provider '%s': client_id and client_secret must be set together", name)
		}
		if !p.Configured() {
			continue
		}
		if !strings.HasPrefix(p.RedirectPath, "/") {
			return fmt.Errorf("provider '%s': redirect_path must start with '/'", name)
		}
		for _, u := range []string{p.AuthURL, p.TokenURL, p.UserInfoURL} {
			if err := validateAbsoluteURL(u); err != nil {
				return fmt.Errorf("provider '%s': %w", name, err)
			}
		}
	}
	return nil
}

func validateSmtp(s *Smtp) error {
	if !s.Enabled {
		return nil
	}
	if s.Host == "" || s.Port <= 0 {
		return fmt.Errorf("host and port are required")
	}
	if s.FromAddress == "" {
		return fmt.Errorf("from_address is required")
	}
	if s.AuthMethod != "plain" && s.AuthMethod != "none" {
		return fmt.Errorf("auth_method '%s' must be plain or none", s.AuthMethod)
	}
	return nil
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("url '%s' must be absolute http(s)", raw)
	}
	return nil
}

func validateDiscord(d *Discord) error {
	if d.WebhookURL == "" {
		return nil
	}
	if err := validateAbsoluteURL(d.WebhookURL); err != nil {
		return fmt.Errorf("webhook_url: %w", err)
	}
	if d.RateLimit.Duration <= 0 || d.Burst <= 0 || d.SendTimeout.Duration <= 0 {
		return fmt.Errorf("rate_limit, burst and send_timeout must be positive")
	}
	return nil
}
