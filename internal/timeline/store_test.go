package timeline

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "timeline.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storeItem(t *testing.T, store *Store, it *Item) {
	t.Helper()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Status == "" {
		it.Status = StatusPending
	}
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = now
	}
	if err := insertItem(store.db, it); err != nil {
		t.Fatalf("insert item: %v", err)
	}
}

func TestItemRoundtrip(t *testing.T) {
	store := newTestStore(t)

	dep := &Item{EventID: "ev1", Title: "dep", StartTime: at(8, 0), EndTime: at(9, 0)}
	storeItem(t, store, dep)

	want := &Item{
		EventID:       "ev1",
		Title:         "load-in",
		Description:   "trucks at dock B",
		StartTime:     at(9, 0),
		EndTime:       at(11, 30),
		ResponsibleID: "ana",
		TaskType:      "logistics",
		Status:        StatusInProgress,
		Priority:      1,
		Color:         "#ff8800",
		Dependencies:  []string{dep.ID},
		Location:      "dock B",
	}
	storeItem(t, store, want)

	got, err := getItem(store.db, want.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Title != want.Title || got.Description != want.Description ||
		got.ResponsibleID != want.ResponsibleID || got.TaskType != want.TaskType ||
		got.Status != want.Status || got.Priority != want.Priority ||
		got.Color != want.Color || got.Location != want.Location {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if !got.StartTime.Equal(want.StartTime) || !got.EndTime.Equal(want.EndTime) {
		t.Errorf("time mismatch: got %v-%v", got.StartTime, got.EndTime)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0] != dep.ID {
		t.Errorf("dependencies = %v, want [%s]", got.Dependencies, dep.ID)
	}
}

func TestGetItemNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := getItem(store.db, "nope")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Kind != "item" || nf.ID != "nope" {
		t.Errorf("NotFoundError = %+v", nf)
	}
}

func TestDepsMarshalRoundtrip(t *testing.T) {
	tests := []struct {
		deps []string
		raw  string
	}{
		{nil, "[]"},
		{[]string{}, "[]"},
		{[]string{"a"}, `["a"]`},
		{[]string{"a", "b"}, `["a","b"]`},
	}
	for _, tt := range tests {
		if got := marshalDeps(tt.deps); got != tt.raw {
			t.Errorf("marshalDeps(%v) = %q, want %q", tt.deps, got, tt.raw)
		}
		back := unmarshalDeps(tt.raw)
		if len(back) != len(tt.deps) {
			// nil and [] both come back nil; that is the empty case above.
			if len(tt.deps) != 0 || back != nil {
				t.Errorf("unmarshalDeps(%q) = %v", tt.raw, back)
			}
		}
	}
}

func TestListItemsOrderedBySchedule(t *testing.T) {
	store := newTestStore(t)

	late := &Item{EventID: "ev1", Title: "late", StartTime: at(14, 0), EndTime: at(15, 0)}
	early := &Item{EventID: "ev1", Title: "early", StartTime: at(9, 0), EndTime: at(10, 0)}
	urgent := &Item{EventID: "ev1", Title: "urgent", StartTime: at(14, 0), EndTime: at(15, 0), Priority: 1}
	late.Priority = 3
	early.Priority = 2
	storeItem(t, store, late)
	storeItem(t, store, early)
	storeItem(t, store, urgent)

	items, err := listItems(store.db, "ev1", ItemFilter{})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	want := []string{"early", "urgent", "late"}
	for i, title := range want {
		if items[i].Title != title {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Title, title)
		}
	}
}

func storeNotification(t *testing.T, store *Store, itemID string, when time.Time, sent bool) *Notification {
	t.Helper()
	n := &Notification{
		ID:               uuid.NewString(),
		TimelineItemID:   itemID,
		NotificationTime: when,
		NotificationType: "reminder",
		Message:          "m",
		Sent:             sent,
		CreatedAt:        time.Now().UTC(),
	}
	if err := insertNotification(store.db, n); err != nil {
		t.Fatalf("insert notification: %v", err)
	}
	return n
}

func TestDueNotifications(t *testing.T) {
	store := newTestStore(t)

	item := &Item{EventID: "ev1", Title: "x", StartTime: at(9, 0), EndTime: at(10, 0)}
	storeItem(t, store, item)

	now := at(12, 0)
	past := storeNotification(t, store, item.ID, at(11, 0), false)
	boundary := storeNotification(t, store, item.ID, now, false)
	storeNotification(t, store, item.ID, at(13, 0), false) // future
	storeNotification(t, store, item.ID, at(10, 0), true)  // already sent

	due, err := store.DueNotifications(now, 0)
	if err != nil {
		t.Fatalf("due notifications: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("got %d due, want 2: %+v", len(due), due)
	}
	// Oldest first, boundary (time == now) included.
	if due[0].ID != past.ID || due[1].ID != boundary.ID {
		t.Errorf("due order = [%s %s], want [%s %s]", due[0].ID, due[1].ID, past.ID, boundary.ID)
	}

	due, err = store.DueNotifications(now, 1)
	if err != nil {
		t.Fatalf("due notifications with limit: %v", err)
	}
	if len(due) != 1 || due[0].ID != past.ID {
		t.Errorf("limited due = %+v, want only the oldest", due)
	}
}

func TestMarkNotificationSentIsOneWay(t *testing.T) {
	store := newTestStore(t)

	item := &Item{EventID: "ev1", Title: "x", StartTime: at(9, 0), EndTime: at(10, 0)}
	storeItem(t, store, item)
	n := storeNotification(t, store, item.ID, at(8, 0), false)

	if err := store.MarkNotificationSent(n.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	// Second call is a no-op, not an error and not a reversal.
	if err := store.MarkNotificationSent(n.ID); err != nil {
		t.Fatalf("repeat mark sent: %v", err)
	}

	list, err := listNotificationsForItem(store.db, item.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 1 || !list[0].Sent {
		t.Errorf("notification state = %+v, want sent", list)
	}

	if due, _ := store.DueNotifications(at(12, 0), 0); len(due) != 0 {
		t.Errorf("sent notification still reported due: %+v", due)
	}
}

func TestDeleteItemRowMissing(t *testing.T) {
	store := newTestStore(t)

	err := deleteItem(store.db, "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestHistoryRowidTiebreak(t *testing.T) {
	store := newTestStore(t)

	// Several records written in one transaction share a created_at; the
	// rowid tiebreak must keep them in insert order.
	now := time.Now().UTC().Truncate(time.Second)
	err := store.withTx(func(tx *sql.Tx) error {
		for _, field := range []string{"title", "location", "priority"} {
			h := newHistoryRecord("item1", "ana", changeUpdated, field, "a", "b", now)
			if err := insertHistory(tx, &h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("write history: %v", err)
	}

	records, err := listHistory(store.db, "item1", 0, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	want := []string{"title", "location", "priority"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, field := range want {
		if records[i].ChangedField != field {
			t.Errorf("records[%d].ChangedField = %q, want %q", i, records[i].ChangedField, field)
		}
	}
}
