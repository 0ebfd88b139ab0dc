package core

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// All middleware should conform to fn(next http.Handler) http.Handler

const requestLogMessage = "http_request"

// Cached common log attributes
var logTypeRequest = slog.String("type", "request")

// tokenRoutes are the path prefixes whose last segment is a secret.
var tokenRoutes = []string{
	RouteVerifyEmailPrefix,
	RouteResetPasswordPrefix,
}

// loggablePath hides the tokens carried in the path. The query is never
// logged: OAuth2 callbacks carry the code there.
func loggablePath(path string) string {
	for _, prefix := range tokenRoutes {
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + ":token"
		}
	}
	return path
}

// cutStr limits string length by adding ellipsis if needed
func cutStr(str string, max int) string {
	if len(str) > max {
		return str[:max] + "..."
	}
	return str
}

// RequestLog logs one line per request with its status and duration.
func (a *App) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &ResponseRecorder{
			ResponseWriter: w,
			Status:         http.StatusOK,
			StartTime:      a.now(),
		}

		next.ServeHTTP(rec, r)

		a.Logger().Info(requestLogMessage,
			logTypeRequest,
			slog.String("method", r.Method),
			slog.String("path", cutStr(loggablePath(r.URL.Path), 256)),
			slog.Int("status", rec.Status),
			slog.Int64("bytes", rec.BytesWritten),
			slog.Duration("duration", a.now().Sub(rec.StartTime)),
			slog.String("remote_ip", a.GetClientIP(r)),
			slog.String("user_agent", cutStr(r.UserAgent(), 256)),
		)
	})
}

// RequestTimeout bounds the handler through the request context. A
// handler that did not answer when the deadline passed gets a 503
// written for it.
func (a *App) RequestTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeout := a.Config().Server.RequestTimeout.Duration
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		rec := &ResponseRecorder{ResponseWriter: w, StartTime: time.Now()}
		next.ServeHTTP(rec, r.WithContext(ctx))

		if !rec.WroteHeader && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			a.Logger().Warn("request timed out", "path", loggablePath(r.URL.Path), "timeout", timeout)
			writeJsonError(w, errorRequestTimeout)
		}
	})
}
