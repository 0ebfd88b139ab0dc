package farmgate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caasmo/farmgate/cache"
	"github.com/caasmo/farmgate/cache/ristretto"
	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/core"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/db/postgres"
	"github.com/caasmo/farmgate/db/zombiezen"
	"github.com/caasmo/farmgate/logger"
	"github.com/caasmo/farmgate/mail"
	"github.com/caasmo/farmgate/notify"
	"github.com/caasmo/farmgate/notify/discord"
	"github.com/caasmo/farmgate/queue"
	"github.com/caasmo/farmgate/queue/executor"
	"github.com/caasmo/farmgate/queue/handlers"
	scl "github.com/caasmo/farmgate/queue/scheduler"
	"github.com/caasmo/farmgate/router/httprouter"
	"github.com/caasmo/farmgate/server"
)

// defaultCacheLevel sizes the cache holding OAuth2 states and blocked ips.
const defaultCacheLevel = "medium"

type initializer struct {
	configPath string
	ageKeyPath string
	logWriter  io.Writer
	logger     *slog.Logger
	dbApp      db.DbApp
	cache      cache.Cache[string, any]
	mailer     mail.MailerInterface
	notifier   notify.Notifier
}

// New loads the configuration, opens the store and wires the auth API
// behind the router. The returned server runs it until a stop signal.
func New(ctx context.Context, configPath string, opts ...Option) (*core.App, *server.Server, error) {
	i := &initializer{
		configPath: configPath,
		logWriter:  os.Stderr,
	}
	for _, opt := range opts {
		opt(i)
	}

	cfg, err := config.Load(ctx, i.configPath, i.ageKeyPath)
	if err != nil {
		return nil, nil, err
	}
	provider := config.NewProvider(cfg)

	if i.logger == nil {
		i.logger = logger.New(provider, i.logWriter)
	}

	if i.dbApp == nil {
		i.dbApp, err = OpenDb(ctx, cfg.Db)
		if err != nil {
			return nil, nil, err
		}
		i.logger.Info("database ready", "driver", cfg.Db.Driver)
	}

	if i.cache == nil {
		i.cache, err = ristretto.New[any](defaultCacheLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create cache: %w", err)
		}
	}

	if i.notifier == nil {
		i.notifier, err = NewNotifier(cfg.Notify, i.logger)
		if err != nil {
			return nil, nil, err
		}
	}

	r := httprouter.New(core.NotFoundHandler(), core.MethodNotAllowedHandler())

	app, err := core.NewApp(
		core.WithDb(i.dbApp),
		core.WithCache(i.cache),
		core.WithParamGetter(r),
		core.WithConfigProvider(provider),
		core.WithLogger(i.logger),
		core.WithNotifier(i.notifier),
	)
	if err != nil {
		return nil, nil, err
	}
	r.Register(app.Routes())

	srv := server.NewServer(provider, r, i.logger, reloadFunc(provider, i))

	scheduler, err := SetupScheduler(provider, i.dbApp, i.mailer, i.logger)
	if err != nil {
		return nil, nil, err
	}
	if scheduler != nil {
		srv.AddDaemon(scheduler)
	} else {
		i.logger.Warn("smtp disabled, verification and reset emails stay queued")
	}

	return app, srv, nil
}

// reloadFunc reads the configuration again and swaps it in. OAuth2
// providers and the database are fixed at startup; timeouts, durations,
// log level and smtp settings follow the new configuration.
func reloadFunc(provider *config.Provider, i *initializer) func() error {
	return func() error {
		cfg, err := config.Load(context.Background(), i.configPath, i.ageKeyPath)
		if err != nil {
			return err
		}
		provider.Update(cfg)
		i.logger.Info("configuration reloaded")
		return nil
	}
}

// NewNotifier builds the security alert notifier of the notify section.
// With no backend configured alerts are only logged.
func NewNotifier(cfg config.Notify, logger *slog.Logger) (notify.Notifier, error) {
	if cfg.Discord.WebhookURL == "" {
		return notify.NewNilNotifier(), nil
	}
	d, err := discord.New(cfg.Discord, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord notifier: %w", err)
	}
	logger.Info("security alerts go to discord")
	return d, nil
}

// OpenDb opens and migrates the store selected by the db section.
func OpenDb(ctx context.Context, cfg config.Db) (db.DbApp, error) {
	switch cfg.Driver {
	case config.DbDriverSqlite:
		pool, err := zombiezen.NewPool(cfg.Path, cfg.PoolSize)
		if err != nil {
			return nil, err
		}
		d, err := zombiezen.New(pool)
		if err != nil {
			return nil, err
		}
		if err := d.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("sqlite migration failed: %w", err)
		}
		return d, nil

	case config.DbDriverPostgres:
		d, err := postgres.Open(cfg.Dsn, cfg.PoolSize)
		if err != nil {
			return nil, err
		}
		if err := d.Ping(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("postgres unreachable: %w", err)
		}
		if err := d.Migrate(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("postgres migration failed: %w", err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
}

// SetupScheduler builds the mail job scheduler. Without a mailer and with
// smtp disabled it returns nil: jobs stay pending until a scheduler with
// smtp runs.
func SetupScheduler(provider *config.Provider, store db.DbApp, mailer mail.MailerInterface, logger *slog.Logger) (*scl.Scheduler, error) {
	if mailer == nil {
		if !provider.Get().Smtp.Enabled {
			return nil, nil
		}
		m, err := mail.New(provider)
		if err != nil {
			return nil, fmt.Errorf("failed to create mailer: %w", err)
		}
		mailer = m
	}

	hdls := map[string]executor.JobHandler{
		queue.JobTypeEmailVerification: handlers.NewEmailVerificationHandler(store, provider, mailer),
		queue.JobTypePasswordReset:     handlers.NewPasswordResetHandler(store, provider, mailer),
	}

	return scl.NewScheduler(provider, store, executor.NewExecutor(hdls), logger), nil
}
