package core

import (
	"log/slog"

	"github.com/caasmo/farmgate/cache"
	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/notify"
	"github.com/caasmo/farmgate/oauth2"
	"github.com/caasmo/farmgate/router"
)

type Option func(*App)

// WithDb sets the auth and queue stores.
func WithDb(d db.DbApp) Option {
	return func(a *App) {
		a.dbAuth = d
		a.dbQueue = d
	}
}

// WithCache sets the cache holding OAuth2 states and blocked ips.
func WithCache(c cache.Cache[string, any]) Option {
	return func(a *App) {
		a.cache = c
	}
}

// WithParamGetter sets how handlers read path parameters. Usually the
// router itself.
func WithParamGetter(p router.ParamGetter) Option {
	return func(a *App) {
		a.params = p
	}
}

// WithConfigProvider sets the application's configuration provider.
func WithConfigProvider(p *config.Provider) Option {
	return func(a *App) {
		a.configProvider = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

func WithAuthenticator(auth PasswordAuthenticator) Option {
	return func(a *App) {
		a.authenticator = auth
	}
}

func WithBridge(b IdentityResolver) Option {
	return func(a *App) {
		a.bridge = b
	}
}

func WithProviders(r *oauth2.Registry) Option {
	return func(a *App) {
		a.providers = r
	}
}

func WithValidator(v Validator) Option {
	return func(a *App) {
		a.validator = v
	}
}

// WithNotifier sets where security alerts go. Defaults to dropping them.
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}
