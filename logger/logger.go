// Package logger builds the slog.Logger of the service.
package logger

import (
	"io"
	"log/slog"

	"github.com/caasmo/farmgate/config"
	phuslog "github.com/phuslu/log"
)

// providerLevel reads the level from the current configuration on every
// call, so a reload changes the level of a running logger.
type providerLevel struct {
	provider *config.Provider
}

func (l providerLevel) Level() slog.Level {
	return l.provider.Get().Log.Level.Level
}

// HandlerOptions returns the options shared by both formats. Secrets
// never reach the output: attributes named password or token are
// redacted.
func HandlerOptions(provider *config.Provider) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: providerLevel{provider: provider},
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case "password", "token", "client_secret":
				return slog.String(a.Key, "[redacted]")
			}
			return a
		},
	}
}

// New returns a logger writing to w in the configured format: "json"
// uses phuslu's slog handler, "text" the standard text handler.
func New(provider *config.Provider, w io.Writer) *slog.Logger {
	opts := HandlerOptions(provider)

	if provider.Get().Log.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(phuslog.SlogNewJSONHandler(w, opts))
}
