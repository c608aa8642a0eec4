package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/crewcall/crewcall/internal/timeline"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// recordingNotifier counts deliveries and fails the first failN calls.
type recordingNotifier struct {
	mu    sync.Mutex
	failN int
	calls []timeline.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, nt timeline.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, nt)
	if n.failN > 0 {
		n.failN--
		return errors.New("transport down")
	}
	return nil
}

func (n *recordingNotifier) delivered() []timeline.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]timeline.Notification, len(n.calls))
	copy(out, n.calls)
	return out
}

func setupStore(t *testing.T) (*timeline.Store, *timeline.Service) {
	t.Helper()
	store, err := timeline.Open(filepath.Join(t.TempDir(), "timeline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, timeline.NewService(store)
}

func dueNotification(t *testing.T, svc *timeline.Service, when time.Time) *timeline.Notification {
	t.Helper()
	item, _, err := svc.CreateItem(timeline.NewItem{
		EventID:   "ev1",
		Title:     "doors",
		StartTime: when.Add(time.Hour),
		EndTime:   when.Add(2 * time.Hour),
	}, timeline.WriteOptions{})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	n, err := svc.AddNotification(timeline.NewNotification{
		TimelineItemID:   item.ID,
		NotificationTime: when,
		Message:          "doors soon",
	})
	if err != nil {
		t.Fatalf("add notification: %v", err)
	}
	return n
}

func TestTickDeliversAndMarksSent(t *testing.T) {
	store, svc := setupStore(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	n := dueNotification(t, svc, now.Add(-time.Minute))

	notifier := &recordingNotifier{}
	s := New(Config{}, store, notifier, fixedClock{now})

	s.tick(context.Background())

	calls := notifier.delivered()
	if len(calls) != 1 || calls[0].ID != n.ID {
		t.Fatalf("delivered = %+v, want exactly %s", calls, n.ID)
	}
	if due, _ := store.DueNotifications(now, 0); len(due) != 0 {
		t.Errorf("notification still due after successful delivery: %+v", due)
	}

	// A second tick must not re-deliver.
	s.tick(context.Background())
	if calls := notifier.delivered(); len(calls) != 1 {
		t.Errorf("sent notification re-delivered: %d calls", len(calls))
	}
}

func TestTickRetriesFailedDelivery(t *testing.T) {
	store, svc := setupStore(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	n := dueNotification(t, svc, now.Add(-time.Minute))

	notifier := &recordingNotifier{failN: 1}
	s := New(Config{}, store, notifier, fixedClock{now})

	// First tick fails; the notification must stay unsent.
	s.tick(context.Background())
	if due, _ := store.DueNotifications(now, 0); len(due) != 1 {
		t.Fatalf("failed delivery must leave the notification due, got %+v", due)
	}

	// Next tick retries and succeeds.
	s.tick(context.Background())
	calls := notifier.delivered()
	if len(calls) != 2 || calls[1].ID != n.ID {
		t.Fatalf("expected retry of %s, got %+v", n.ID, calls)
	}
	if due, _ := store.DueNotifications(now, 0); len(due) != 0 {
		t.Errorf("notification still due after retry succeeded")
	}
}

func TestTickHonorsBatchSize(t *testing.T) {
	store, svc := setupStore(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		dueNotification(t, svc, now.Add(-time.Duration(i+1)*time.Minute))
	}

	notifier := &recordingNotifier{}
	s := New(Config{BatchSize: 2}, store, notifier, fixedClock{now})

	s.tick(context.Background())
	if calls := notifier.delivered(); len(calls) != 2 {
		t.Fatalf("first tick delivered %d, want batch of 2", len(calls))
	}
	s.tick(context.Background())
	if calls := notifier.delivered(); len(calls) != 3 {
		t.Errorf("second tick should drain the remainder, delivered %d total", len(calls))
	}
}

func TestFutureNotificationNotDelivered(t *testing.T) {
	store, svc := setupStore(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	dueNotification(t, svc, now.Add(time.Hour))

	notifier := &recordingNotifier{}
	s := New(Config{}, store, notifier, fixedClock{now})

	s.tick(context.Background())
	if calls := notifier.delivered(); len(calls) != 0 {
		t.Errorf("future notification delivered early: %+v", calls)
	}
}

func TestRunWakeAndShutdown(t *testing.T) {
	store, svc := setupStore(t)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	dueNotification(t, svc, now.Add(-time.Minute))

	notifier := &recordingNotifier{}
	// Long tick interval so only Wake can trigger delivery.
	s := New(Config{TickInterval: time.Hour}, store, notifier, fixedClock{now})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.Wake()
	deadline := time.After(5 * time.Second)
	for len(notifier.delivered()) == 0 {
		select {
		case <-deadline:
			t.Fatal("wake did not trigger a tick")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	store, _ := setupStore(t)
	s := New(Config{}, store, &recordingNotifier{}, nil)
	if s.cfg.TickInterval != 30*time.Second {
		t.Errorf("tick interval = %v, want 30s", s.cfg.TickInterval)
	}
	if s.cfg.BatchSize != 100 {
		t.Errorf("batch size = %d, want 100", s.cfg.BatchSize)
	}
	if _, ok := s.clock.(SystemClock); !ok {
		t.Errorf("nil clock should fall back to SystemClock, got %T", s.clock)
	}
}
