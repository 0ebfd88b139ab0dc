package farmgate

import (
	"io"
	"log/slog"

	"github.com/caasmo/farmgate/cache"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/mail"
	"github.com/caasmo/farmgate/notify"
)

type Option func(*initializer)

// WithAgeKeyPath sets the age identity file decrypting the config file.
func WithAgeKeyPath(path string) Option {
	return func(i *initializer) {
		i.ageKeyPath = path
	}
}

// WithLogWriter sets where the default logger writes. Defaults to stderr.
func WithLogWriter(w io.Writer) Option {
	return func(i *initializer) {
		i.logWriter = w
	}
}

// WithLogger replaces the logger built from the log section.
func WithLogger(l *slog.Logger) Option {
	return func(i *initializer) {
		i.logger = l
	}
}

// WithDbApp sets the store instead of opening the one of the db section.
// It expects a single concrete type (like *zombiezen.Db) that implements
// db.DbApp. Migrations are the caller's business.
func WithDbApp(dbApp db.DbApp) Option {
	return func(i *initializer) {
		if dbApp == nil {
			panic("DbApp cannot be nil")
		}
		i.dbApp = dbApp
	}
}

// WithCache sets the cache implementation
func WithCache(c cache.Cache[string, any]) Option {
	return func(i *initializer) {
		i.cache = c
	}
}

// WithMailer sets the mailer of the job handlers. The scheduler then runs
// even with smtp disabled.
func WithMailer(m mail.MailerInterface) Option {
	return func(i *initializer) {
		i.mailer = m
	}
}

// WithNotifier replaces the notifier built from the notify section.
func WithNotifier(n notify.Notifier) Option {
	return func(i *initializer) {
		i.notifier = n
	}
}
