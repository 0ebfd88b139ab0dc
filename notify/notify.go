package notify

import (
	"context"
	"log/slog"
	"time"
)

type Type int

const (
	// Alarm asks for an operator to look.
	Alarm Type = iota
	// Audit records a security event that needs no action.
	Audit
)

func (nt Type) String() string {
	switch nt {
	case Alarm:
		return "Alarm"
	case Audit:
		return "Audit"
	default:
		return "Unknown"
	}
}

// Notification is one security event.
type Notification struct {
	Timestamp time.Time
	Type      Type
	Level     slog.Level
	Source    string
	Message   string
	Fields    map[string]any
}

// Notifier sends notifications to a backend.
// Implementations MUST be safe for concurrent use by multiple goroutines
// and must not block the caller on the network.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NilNotifier drops everything. Used when no backend is configured.
type NilNotifier struct{}

func NewNilNotifier() *NilNotifier {
	return &NilNotifier{}
}

func (*NilNotifier) Send(ctx context.Context, n Notification) error {
	return nil
}
