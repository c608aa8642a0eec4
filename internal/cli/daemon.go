package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crewcall/crewcall/internal/config"
	"github.com/crewcall/crewcall/internal/notify"
	"github.com/crewcall/crewcall/internal/scheduler"
	"github.com/crewcall/crewcall/internal/timeline"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the notification scheduler until interrupted",
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

// buildNotifier assembles the transport chain from config. The structured log
// is always on; Slack and Kafka join it when enabled.
func buildNotifier(cfg *config.Config) (notify.Notifier, func() error) {
	notifiers := []notify.Notifier{&notify.LogNotifier{}}
	closer := func() error { return nil }

	if cfg.Notify.Slack.Enabled {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel))
		slog.Info("Slack notifications enabled", "channel", cfg.Notify.Slack.Channel)
	}
	if cfg.Notify.Kafka.Enabled {
		k := notify.NewKafkaNotifier(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic)
		notifiers = append(notifiers, k)
		closer = k.Close
		slog.Info("Kafka notifications enabled", "topic", cfg.Notify.Kafka.Topic)
	}
	if len(notifiers) == 1 {
		return notifiers[0], closer
	}
	return notify.Multi(notifiers...), closer
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := timeline.Open(cfg.Paths.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	notifier, closeNotifier := buildNotifier(cfg)
	defer closeNotifier()

	sched := scheduler.New(scheduler.Config{
		TickInterval: cfg.Scheduler.TickInterval,
		BatchSize:    cfg.Scheduler.BatchSize,
	}, store, notifier, nil)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Deliver anything already due before the first interval elapses.
	sched.Wake()

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
