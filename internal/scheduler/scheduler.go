// Package scheduler runs the background loop that delivers due timeline
// notifications and marks them sent.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewcall/crewcall/internal/notify"
	"github.com/crewcall/crewcall/internal/timeline"
)

// Config holds scheduler settings.
type Config struct {
	TickInterval time.Duration `json:"tickInterval"`
	BatchSize    int           `json:"batchSize"`
}

// DefaultConfig returns sensible scheduler defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval: 30 * time.Second,
		BatchSize:    100,
	}
}

// Scheduler polls the store for due notifications and delivers them. One
// instance runs per process. Each notification moves pending -> due -> sent
// and never backwards: sent is only flipped after the notifier succeeds, so
// a failed delivery stays pending and is retried on the next tick
// (at-least-once).
type Scheduler struct {
	cfg      Config
	store    *timeline.Store
	notifier notify.Notifier
	clock    Clock
	wake     chan struct{}
}

// New creates a Scheduler. A nil clock means the system clock.
func New(cfg Config, store *timeline.Store, notifier notify.Notifier, clock Clock) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		clock:    clock,
		wake:     make(chan struct{}, 1),
	}
}

// Wake forces an immediate tick without waiting for the interval. Non-blocking;
// a wake during a tick coalesces into one extra tick.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled. An in-flight tick always finishes before
// Run returns; no new tick starts after cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("Notification scheduler started", "tick", s.cfg.TickInterval)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Notification scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		case <-s.wake:
			s.tick(ctx)
		}
	}
}

// tick delivers every due notification once. Notifier failures are logged
// and absorbed here: the scheduler has no synchronous caller to report to,
// and the notification stays unsent for the next tick.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now()
	due, err := s.store.DueNotifications(now, s.cfg.BatchSize)
	if err != nil {
		slog.Warn("Scheduler query failed", "error", err)
		return
	}
	for _, n := range due {
		if err := s.notifier.Notify(ctx, n); err != nil {
			slog.Warn("Notification delivery failed, will retry",
				"id", n.ID, "item", n.TimelineItemID, "error", err)
			continue
		}
		if err := s.store.MarkNotificationSent(n.ID); err != nil {
			// The notification was delivered but stays unsent in the store;
			// the next tick re-delivers (at-least-once).
			slog.Error("Failed to mark notification sent", "id", n.ID, "error", err)
		}
	}
}
