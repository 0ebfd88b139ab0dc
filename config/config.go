package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

const (
	OAuth2ProviderGoogle   = "google"
	OAuth2ProviderFacebook = "facebook"

	DbDriverSqlite   = "sqlite"
	DbDriverPostgres = "postgres"

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config is the complete application configuration.
// It is read from a TOML file and overlaid with environment variables
// for the secrets. See Load.
type Config struct {
	// Env selects production behaviour. Outside production, internal
	// error details are added to 500 responses.
	Env string `toml:"env"`

	// FrontendURL is the base URL of the single page application. OAuth2
	// callbacks and email links redirect there.
	FrontendURL string `toml:"frontend_url"`

	Server     Server                    `toml:"server"`
	Db         Db                        `toml:"db"`
	Jwt        Jwt                       `toml:"jwt"`
	Account    Account                   `toml:"account"`
	OAuth2     OAuth2                    `toml:"oauth2"`
	Smtp       Smtp                      `toml:"smtp"`
	Scheduler  Scheduler                 `toml:"scheduler"`
	RateLimits RateLimits                `toml:"rate_limits"`
	BlockIp    BlockIp                   `toml:"block_ip"`
	Notify     Notify                    `toml:"notify"`
	Log        Log                       `toml:"log"`
	Providers  map[string]OAuth2Provider `toml:"oauth2_providers"`
}

// IsProduction reports whether the configuration runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

type Server struct {
	Addr string `toml:"addr"`

	// BaseURL is the public URL of this service, used to build the
	// OAuth2 redirect URLs registered with the providers.
	BaseURL string `toml:"base_url"`

	ShutdownGracefulTimeout Duration `toml:"shutdown_graceful_timeout"`
	ReadTimeout             Duration `toml:"read_timeout"`
	ReadHeaderTimeout       Duration `toml:"read_header_timeout"`
	WriteTimeout            Duration `toml:"write_timeout"`
	IdleTimeout             Duration `toml:"idle_timeout"`

	// RequestTimeout bounds every handler through the request context.
	RequestTimeout Duration `toml:"request_timeout"`

	// ClientIpProxyHeader is the header carrying the client ip when the
	// server runs behind a proxy, e.g. "X-Forwarded-For". Empty means
	// RemoteAddr is trusted.
	ClientIpProxyHeader string `toml:"client_ip_proxy_header"`
}

type Db struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver"`
	// Path of the sqlite file.
	Path string `toml:"path"`
	// Dsn of the postgres database.
	Dsn      string `toml:"dsn"`
	PoolSize int    `toml:"pool_size"`
}

type Jwt struct {
	// Secret signs every session token. At least 32 bytes.
	Secret string `toml:"secret"`

	// AuthTokenDuration applies to tokens issued by password login and
	// registration.
	AuthTokenDuration Duration `toml:"auth_token_duration"`

	// OAuth2TokenDuration applies to tokens issued by the OAuth2 callback.
	OAuth2TokenDuration Duration `toml:"oauth2_token_duration"`
}

type Account struct {
	VerificationTokenDuration Duration `toml:"verification_token_duration"`
	ResetTokenDuration        Duration `toml:"reset_token_duration"`
}

type OAuth2 struct {
	// StateTTL bounds the time between the provider redirect and the callback.
	StateTTL Duration `toml:"state_ttl"`
	// ExchangeTimeout bounds the code exchange and the user info request.
	ExchangeTimeout Duration `toml:"exchange_timeout"`
	// SuccessPath and FailurePath are joined to FrontendURL.
	SuccessPath string `toml:"success_path"`
	FailurePath string `toml:"failure_path"`
}

type OAuth2Provider struct {
	Name         string   `toml:"name"`
	DisplayName  string   `toml:"display_name"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectPath string   `toml:"redirect_path"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	UserInfoURL  string   `toml:"user_info_url"`
	Scopes       []string `toml:"scopes"`
	PKCE         bool     `toml:"pkce"`
}

// Configured reports whether credentials were provided for the provider.
func (p OAuth2Provider) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// RedirectURL is the absolute callback URL for the provider.
func (p OAuth2Provider) RedirectURL(server Server) string {
	return strings.TrimRight(server.BaseURL, "/") + p.RedirectPath
}

type Smtp struct {
	Enabled     bool   `toml:"enabled"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	FromName    string `toml:"from_name"`
	FromAddress string `toml:"from_address"`
	LocalName   string `toml:"local_name"`
	AuthMethod  string `toml:"auth_method"`
	UseTLS      bool   `toml:"use_tls"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
}

type Scheduler struct {
	Interval              Duration `toml:"interval"`
	MaxJobsPerTick        int      `toml:"max_jobs_per_tick"`
	ConcurrencyMultiplier int      `toml:"concurrency_multiplier"`
	JobTimeout            Duration `toml:"job_timeout"`
}

type RateLimits struct {
	PasswordResetCooldown     Duration `toml:"password_reset_cooldown"`
	EmailVerificationCooldown Duration `toml:"email_verification_cooldown"`
}

type BlockIp struct {
	Enabled bool `toml:"enabled"`
	// Level is one of "low", "medium", "high".
	Level string `toml:"level"`
	// Duration a heavy hitter stays blocked.
	Duration Duration `toml:"duration"`
	// ActivationRPS is the request rate below which nobody is blocked.
	ActivationRPS int `toml:"activation_rps"`
	// MaxSharePercent is the share of the sketch window a single ip may
	// take before it is blocked.
	MaxSharePercent int `toml:"max_share_percent"`
}

// Notify configures where security alerts go. Account locks and ip
// blocks are reported.
type Notify struct {
	Discord Discord `toml:"discord"`
}

// Discord posts alerts to a webhook. Disabled when WebhookURL is empty.
type Discord struct {
	WebhookURL string `toml:"webhook_url"`
	// RateLimit is the minimum interval between two posts once the
	// burst is spent. Alerts over the limit are dropped.
	RateLimit   Duration `toml:"rate_limit"`
	Burst       int      `toml:"burst"`
	SendTimeout Duration `toml:"send_timeout"`
}

type Log struct {
	Level LogLevel `toml:"level"`
	// Format is "json" (phuslu) or "text".
	Format string `toml:"format"`
}

// Duration wraps time.Duration to read values like "45m" from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LogLevel wraps slog.Level to read "debug", "info", ... from TOML.
type LogLevel struct {
	slog.Level
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	if err := l.Level.UnmarshalText(text); err != nil {
		return fmt.Errorf("invalid log level %q: %w", string(text), err)
	}
	return nil
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return l.Level.MarshalText()
}

// Provider gives concurrent safe access to the current configuration.
type Provider struct {
	value atomic.Pointer[Config]
}

// NewProvider panics on a nil config.
func NewProvider(initialConfig *Config) *Provider {
	if initialConfig == nil {
		panic("initial config cannot be nil")
	}
	p := &Provider{}
	p.value.Store(initialConfig)
	return p
}

func (p *Provider) Get() *Config {
	return p.value.Load()
}

// Update swaps the configuration atomically. Readers holding the old
// pointer keep a consistent view.
func (p *Provider) Update(newConfig *Config) {
	if newConfig == nil {
		return
	}
	p.value.Store(newConfig)
}
