package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/caasmo/farmgate/account"
	"github.com/caasmo/farmgate/cache"
	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/notify"
	"github.com/caasmo/farmgate/oauth2"
	"github.com/caasmo/farmgate/router"
	"github.com/caasmo/farmgate/topk"
)

// PasswordAuthenticator checks credentials and moves the lockout state.
// Implemented by *account.Authenticator.
type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, email, password, device string) (*db.User, error)
}

// IdentityResolver maps a provider profile to a local account.
// Implemented by *account.Bridge.
type IdentityResolver interface {
	Resolve(ctx context.Context, p oauth2.Profile) (*db.User, error)
}

// App is the application wide context.
// db connections and permanent structs go here.
//
// All handlers and middleware have App as receiver.
type App struct {
	dbAuth         db.DbAuth
	dbQueue        db.DbQueue
	params         router.ParamGetter
	cache          cache.Cache[string, any]
	configProvider *config.Provider
	logger         *slog.Logger
	authenticator  PasswordAuthenticator
	bridge         IdentityResolver
	providers      *oauth2.Registry
	validator      Validator
	sketch         *topk.TopKSketch
	notifier       notify.Notifier

	now func() time.Time
}

// NewApp builds the App from options. The authenticator and the bridge
// default to the account implementations over the database.
func NewApp(opts ...Option) (*App, error) {
	a := &App{
		validator: NewValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.dbAuth == nil || a.dbQueue == nil {
		return nil, fmt.Errorf("db is required but was not provided (use WithDb)")
	}
	if a.configProvider == nil {
		return nil, fmt.Errorf("config provider is required (use WithConfigProvider)")
	}
	if a.cache == nil {
		return nil, fmt.Errorf("cache is required (use WithCache)")
	}
	if a.params == nil {
		return nil, fmt.Errorf("router param getter is required (use WithParamGetter)")
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.notifier == nil {
		a.notifier = notify.NewNilNotifier()
	}
	if a.authenticator == nil {
		auth := account.NewAuthenticator(a.dbAuth, account.DefaultLoginPolicy(), a.logger)
		auth.OnLock = a.notifyAccountLocked
		a.authenticator = auth
	}
	if a.bridge == nil {
		a.bridge = account.NewBridge(a.dbAuth, a.logger)
	}
	if a.providers == nil {
		a.providers = oauth2.NewRegistry(a.Config())
	}

	cfg := a.Config().BlockIp
	if cfg.Enabled {
		a.sketch = newIpSketch(cfg)
	}

	return a, nil
}

func (a *App) DbAuth() db.DbAuth {
	return a.dbAuth
}

func (a *App) DbQueue() db.DbQueue {
	return a.dbQueue
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) Cache() cache.Cache[string, any] {
	return a.cache
}

func (a *App) Config() *config.Config {
	return a.configProvider.Get()
}

func (a *App) Auth() PasswordAuthenticator {
	return a.authenticator
}

func (a *App) Bridge() IdentityResolver {
	return a.bridge
}

func (a *App) Providers() *oauth2.Registry {
	return a.providers
}

func (a *App) Notifier() notify.Notifier {
	return a.notifier
}

func (a *App) Validator() Validator {
	return a.validator
}

// Param returns the named path parameter of the matched route.
func (a *App) Param(r *http.Request, name string) string {
	return a.params.Param(r, name)
}
