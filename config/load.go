package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

// envOverrides are the values read from the environment. Secrets are
// expected here rather than in the config file.
type envOverrides struct {
	Env                  string `env:"FARMGATE_ENV"`
	JwtSecret            string `env:"FARMGATE_JWT_SECRET"`
	FrontendURL          string `env:"FARMGATE_FRONTEND_URL"`
	BaseURL              string `env:"FARMGATE_BASE_URL"`
	DbDriver             string `env:"FARMGATE_DB_DRIVER"`
	DbPath               string `env:"FARMGATE_DB_PATH"`
	DbDsn                string `env:"FARMGATE_DB_DSN"`
	GoogleClientID       string `env:"FARMGATE_GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"FARMGATE_GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"FARMGATE_FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FARMGATE_FACEBOOK_CLIENT_SECRET"`
	SmtpUsername         string `env:"FARMGATE_SMTP_USERNAME"`
	SmtpPassword         string `env:"FARMGATE_SMTP_PASSWORD"`
	DiscordWebhookURL    string `env:"FARMGATE_DISCORD_WEBHOOK_URL"`
}

// Load builds the configuration from defaults, the optional TOML file at
// path and the environment, in that order. When ageKeyPath is not empty
// the file is age encrypted and decrypted with the identities found there.
// The result is validated.
func Load(ctx context.Context, path, ageKeyPath string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read file '%s': %w", path, err)
		}

		if ageKeyPath != "" {
			data, err = decryptAge(data, ageKeyPath)
			if err != nil {
				return nil, err
			}
		}

		if err := Decode(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(ctx, cfg, envconfig.OsLookuper()); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Decode reads TOML data on top of cfg. Providers present in the data
// are completed with the defaults of the provider of the same name.
func Decode(data []byte, cfg *Config) error {
	defaults := cfg.Providers
	cfg.Providers = nil

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("config: failed to decode TOML: %w", err)
	}

	cfg.Providers = mergeProviders(defaults, cfg.Providers)
	return nil
}

func mergeProviders(defaults, decoded map[string]OAuth2Provider) map[string]OAuth2Provider {
	merged := make(map[string]OAuth2Provider, len(defaults)+len(decoded))
	for name, p := range defaults {
		merged[name] = p
	}

	for name, p := range decoded {
		d, ok := merged[name]
		if !ok {
			if p.Name == "" {
				p.Name = name
			}
			merged[name] = p
			continue
		}
		if p.Name != "" {
			d.Name = p.Name
		}
		if p.DisplayName != "" {
			d.DisplayName = p.DisplayName
		}
		if p.ClientID != "" {
			d.ClientID = p.ClientID
		}
		if p.ClientSecret != "" {
			d.ClientSecret = p.ClientSecret
		}
		if p.RedirectPath != "" {
			d.RedirectPath = p.RedirectPath
		}
		if p.AuthURL != "" {
			d.AuthURL = p.AuthURL
		}
		if p.TokenURL != "" {
			d.TokenURL = p.TokenURL
		}
		if p.UserInfoURL != "" {
			d.UserInfoURL = p.UserInfoURL
		}
		if len(p.Scopes) > 0 {
			d.Scopes = p.Scopes
		}
		d.PKCE = p.PKCE || d.PKCE
		merged[name] = d
	}
	return merged
}

// ApplyEnv overlays the non empty environment values on cfg.
func ApplyEnv(ctx context.Context, cfg *Config, l envconfig.Lookuper) error {
	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &env, l); err != nil {
		return fmt.Errorf("config: parsing env vars: %w", err)
	}

	setIf(&cfg.Env, env.Env)
	setIf(&cfg.Jwt.Secret, env.JwtSecret)
	setIf(&cfg.FrontendURL, env.FrontendURL)
	setIf(&cfg.Server.BaseURL, env.BaseURL)
	setIf(&cfg.Db.Driver, env.DbDriver)
	setIf(&cfg.Db.Path, env.DbPath)
	setIf(&cfg.Db.Dsn, env.DbDsn)
	setIf(&cfg.Smtp.Username, env.SmtpUsername)
	setIf(&cfg.Smtp.Password, env.SmtpPassword)
	setIf(&cfg.Notify.Discord.WebhookURL, env.DiscordWebhookURL)

	setProviderCredentials(cfg, OAuth2ProviderGoogle, env.GoogleClientID, env.GoogleClientSecret)
	setProviderCredentials(cfg, OAuth2ProviderFacebook, env.FacebookClientID, env.FacebookClientSecret)

	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setProviderCredentials(cfg *Config, name, id, secret string) {
	p, ok := cfg.Providers[name]
	if !ok {
		return
	}
	setIf(&p.ClientID, id)
	setIf(&p.ClientSecret, secret)
	cfg.Providers[name] = p
}

func decryptAge(data []byte, ageKeyPath string) ([]byte, error) {
	keyContent, err := os.ReadFile(ageKeyPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read age key file '%s': %w", ageKeyPath, err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(keyContent))
	// the raw key material is not needed anymore
	for i := range keyContent {
		keyContent[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("config: failed to parse age identities from '%s': %w", ageKeyPath, err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identities...)
	if err != nil {
		return nil, fmt.Errorf("config: failed to decrypt config: %w", err)
	}

	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read decrypted config: %w", err)
	}
	return plain, nil
}
