package config

import (
	"log/slog"
	"time"

	"github.com/caasmo/farmgate/crypto"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

// NewDefaultConfig creates a new Config with sensible defaults.
// The jwt secret is random, so tokens do not survive a restart unless a
// secret is configured.
func NewDefaultConfig() *Config {
	return &Config{
		Env:         EnvDevelopment,
		FrontendURL: "http://localhost:3000",
		Server: Server{
			Addr:                    ":8080",
			BaseURL:                 "http://localhost:8080",
			ShutdownGracefulTimeout: Duration{Duration: 15 * time.Second},
			ReadTimeout:             Duration{Duration: 5 * time.Second},
			ReadHeaderTimeout:       Duration{Duration: 2 * time.Second},
			WriteTimeout:            Duration{Duration: 15 * time.Second},
			IdleTimeout:             Duration{Duration: 1 * time.Minute},
			RequestTimeout:          Duration{Duration: 10 * time.Second},
			ClientIpProxyHeader:     "",
		},
		Db: Db{
			Driver:   DbDriverSqlite,
			Path:     "farmgate.db",
			PoolSize: 8,
		},
		Jwt: Jwt{
			Secret:              crypto.RandomString(32, crypto.AlphanumericAlphabet),
			AuthTokenDuration:   Duration{Duration: 7 * 24 * time.Hour},
			OAuth2TokenDuration: Duration{Duration: 24 * time.Hour},
		},
		Account: Account{
			VerificationTokenDuration: Duration{Duration: 24 * time.Hour},
			ResetTokenDuration:        Duration{Duration: 1 * time.Hour},
		},
		OAuth2: OAuth2{
			StateTTL:        Duration{Duration: 10 * time.Minute},
			ExchangeTimeout: Duration{Duration: 10 * time.Second},
			SuccessPath:     "/oauth-success",
			FailurePath:     "/login",
		},
		Providers: map[string]OAuth2Provider{
			OAuth2ProviderGoogle: {
				Name:         OAuth2ProviderGoogle,
				DisplayName:  "Google",
				RedirectPath: "/api/auth/google/callback",
				AuthURL:      google.Endpoint.AuthURL,
				TokenURL:     google.Endpoint.TokenURL,
				UserInfoURL:  "https://www.googleapis.com/oauth2/v3/userinfo",
				Scopes:       []string{"openid", "email", "profile"},
				PKCE:         true,
			},
			OAuth2ProviderFacebook: {
				Name:         OAuth2ProviderFacebook,
				DisplayName:  "Facebook",
				RedirectPath: "/api/auth/facebook/callback",
				AuthURL:      facebook.Endpoint.AuthURL,
				TokenURL:     facebook.Endpoint.TokenURL,
				UserInfoURL:  "https://graph.facebook.com/me?fields=id,name,email",
				Scopes:       []string{"email", "public_profile"},
				PKCE:         false,
			},
		},
		Smtp: Smtp{
			Enabled:     false,
			Host:        "smtp.gmail.com",
			Port:        587,
			FromName:    "Farmgate",
			FromAddress: "",
			AuthMethod:  "plain",
			UseTLS:      false,
		},
		Scheduler: Scheduler{
			Interval:              Duration{Duration: 30 * time.Second},
			MaxJobsPerTick:        10,
			ConcurrencyMultiplier: 2,
			JobTimeout:            Duration{Duration: 1 * time.Minute},
		},
		RateLimits: RateLimits{
			PasswordResetCooldown:     Duration{Duration: 15 * time.Minute},
			EmailVerificationCooldown: Duration{Duration: 15 * time.Minute},
		},
		BlockIp: BlockIp{
			Enabled:         true,
			Level:           "medium",
			Duration:        Duration{Duration: 10 * time.Minute},
			ActivationRPS:   50,
			MaxSharePercent: 30,
		},
		Notify: Notify{
			Discord: Discord{
				RateLimit:   Duration{Duration: 2 * time.Second},
				Burst:       5,
				SendTimeout: Duration{Duration: 10 * time.Second},
			},
		},
		Log: Log{
			Level:  LogLevel{Level: slog.LevelInfo},
			Format: "json",
		},
	}
}
