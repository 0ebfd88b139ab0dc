package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/notify"
)

const (
	notifySourceLogin   = "login"
	notifySourceBlockIp = "block_ip"
)

// notifyAccountLocked reports a lock set by a failed login.
func (a *App) notifyAccountLocked(ctx context.Context, u *db.User, until time.Time) {
	a.sendNotification(ctx, notify.Notification{
		Timestamp: a.now(),
		Type:      notify.Alarm,
		Level:     slog.LevelWarn,
		Source:    notifySourceLogin,
		Message:   "account locked after repeated failed logins",
		Fields: map[string]any{
			"user_id": u.ID,
			"until":   until.UTC().Format(time.RFC3339),
		},
	})
}

func (a *App) notifyIpBlocked(ip string, d time.Duration) {
	a.sendNotification(context.Background(), notify.Notification{
		Timestamp: a.now(),
		Type:      notify.Audit,
		Level:     slog.LevelWarn,
		Source:    notifySourceBlockIp,
		Message:   "ip blocked for flooding the auth endpoints",
		Fields: map[string]any{
			"ip":       ip,
			"duration": d.String(),
		},
	})
}

func (a *App) sendNotification(ctx context.Context, n notify.Notification) {
	if err := a.notifier.Send(ctx, n); err != nil {
		a.Logger().Error("failed to send notification", "source", n.Source, "error", err)
	}
}
