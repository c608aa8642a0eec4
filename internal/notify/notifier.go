// Package notify delivers due timeline notifications over pluggable
// transports. Delivery is at-least-once: the scheduler only marks a
// notification sent after Notify returns nil, so receivers must tolerate
// duplicates after a transient failure.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crewcall/crewcall/internal/timeline"
)

// Notifier delivers one notification. Implementations must be safe for
// sequential reuse from the scheduler loop.
type Notifier interface {
	Notify(ctx context.Context, n timeline.Notification) error
}

// LogNotifier writes notifications to the structured log. Default transport
// when nothing else is configured; also useful as a delivery audit tap in
// front of a real transport via Multi.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(_ context.Context, n timeline.Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Notification due",
		"id", n.ID,
		"item", n.TimelineItemID,
		"type", n.NotificationType,
		"message", n.Message,
		"at", n.NotificationTime)
	return nil
}

// Multi fans a notification out to several transports. All transports are
// attempted; any failure fails the whole delivery so the scheduler retries
// on the next tick (transports already delivered will see a duplicate).
func Multi(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(ctx context.Context, n timeline.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
