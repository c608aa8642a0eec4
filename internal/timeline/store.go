package timeline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store owns the persisted timeline state. It is the single source of truth;
// every mutation to items goes through Service so validation and history stay
// inside one transaction. The notification scheduler is the one exception: it
// alone flips the sent flag, via MarkNotificationSent.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the timeline database at dbPath and applies
// the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open timeline db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for shared access.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction. A rollback on error leaves no partial
// item mutation or history row behind.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, so row helpers work
// inside and outside a transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// --- Items ---

func marshalDeps(deps []string) string {
	if len(deps) == 0 {
		return "[]"
	}
	b, err := json.Marshal(deps)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalDeps(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var deps []string
	if err := json.Unmarshal([]byte(raw), &deps); err != nil {
		return nil
	}
	return deps
}

const itemColumns = `id, event_id, title, COALESCE(description,''), start_time, end_time,
	COALESCE(responsible_id,''), COALESCE(task_type,''), status, priority,
	COALESCE(color,''), COALESCE(dependencies,'[]'), COALESCE(location,''),
	created_at, updated_at`

func insertItem(q querier, it *Item) error {
	_, err := q.Exec(`
	INSERT INTO timeline_items (id, event_id, title, description, start_time, end_time,
		responsible_id, task_type, status, priority, color, dependencies, location,
		created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.EventID, it.Title, it.Description, it.StartTime.UTC(), it.EndTime.UTC(),
		it.ResponsibleID, it.TaskType, string(it.Status), it.Priority, it.Color,
		marshalDeps(it.Dependencies), it.Location, it.CreatedAt.UTC(), it.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var it Item
	var deps string
	err := row.Scan(&it.ID, &it.EventID, &it.Title, &it.Description,
		&it.StartTime, &it.EndTime, &it.ResponsibleID, &it.TaskType,
		&it.Status, &it.Priority, &it.Color, &deps, &it.Location,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	it.Dependencies = unmarshalDeps(deps)
	return &it, nil
}

func getItem(q querier, id string) (*Item, error) {
	row := q.QueryRow(`SELECT `+itemColumns+` FROM timeline_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "item", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// ItemFilter narrows a by-event item listing.
type ItemFilter struct {
	Status        Status
	ResponsibleID string
	From          *time.Time // items ending at or after From
	To            *time.Time // items starting at or before To
	Limit         int
	Offset        int
}

func listItems(q querier, eventID string, f ItemFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM timeline_items WHERE event_id = ?`
	args := []any{eventID}

	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.ResponsibleID != "" {
		query += " AND responsible_id = ?"
		args = append(args, f.ResponsibleID)
	}
	if f.From != nil {
		query += " AND end_time >= ?"
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		query += " AND start_time <= ?"
		args = append(args, f.To.UTC())
	}
	query += " ORDER BY start_time ASC, priority ASC"
	limit := f.Limit
	if limit <= 0 {
		limit = -1 // no cap
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func updateItem(q querier, it *Item) error {
	res, err := q.Exec(`
	UPDATE timeline_items SET title = ?, description = ?, start_time = ?, end_time = ?,
		responsible_id = ?, task_type = ?, status = ?, priority = ?, color = ?,
		dependencies = ?, location = ?, updated_at = ?
	WHERE id = ?`,
		it.Title, it.Description, it.StartTime.UTC(), it.EndTime.UTC(),
		it.ResponsibleID, it.TaskType, string(it.Status), it.Priority, it.Color,
		marshalDeps(it.Dependencies), it.Location, it.UpdatedAt.UTC(), it.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "item", ID: it.ID}
	}
	return nil
}

func deleteItem(q querier, id string) error {
	res, err := q.Exec(`DELETE FROM timeline_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "item", ID: id}
	}
	return nil
}

// --- Milestones ---

func insertMilestone(q querier, m *Milestone) error {
	_, err := q.Exec(`
	INSERT INTO timeline_milestones (id, event_id, title, description, milestone_time, importance, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.EventID, m.Title, m.Description, m.MilestoneTime.UTC(), m.Importance, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

func listMilestones(q querier, eventID string) ([]Milestone, error) {
	rows, err := q.Query(`
	SELECT id, event_id, title, COALESCE(description,''), milestone_time, importance, created_at
	FROM timeline_milestones WHERE event_id = ? ORDER BY milestone_time ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var out []Milestone
	for rows.Next() {
		var m Milestone
		if err := rows.Scan(&m.ID, &m.EventID, &m.Title, &m.Description,
			&m.MilestoneTime, &m.Importance, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func deleteMilestone(q querier, id string) error {
	res, err := q.Exec(`DELETE FROM timeline_milestones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "milestone", ID: id}
	}
	return nil
}

// --- Notifications ---

const notificationColumns = `id, timeline_item_id, notification_time,
	COALESCE(notification_type,''), COALESCE(message,''), sent, read, created_at`

func insertNotification(q querier, n *Notification) error {
	_, err := q.Exec(`
	INSERT INTO timeline_notifications (id, timeline_item_id, notification_time,
		notification_type, message, sent, read, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TimelineItemID, n.NotificationTime.UTC(),
		n.NotificationType, n.Message, n.Sent, n.Read, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func scanNotifications(rows *sql.Rows) ([]Notification, error) {
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.TimelineItemID, &n.NotificationTime,
			&n.NotificationType, &n.Message, &n.Sent, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func listNotificationsForItem(q querier, itemID string) ([]Notification, error) {
	rows, err := q.Query(`SELECT `+notificationColumns+`
	FROM timeline_notifications WHERE timeline_item_id = ? ORDER BY notification_time ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func deleteNotificationsForItem(q querier, itemID string) error {
	if _, err := q.Exec(`DELETE FROM timeline_notifications WHERE timeline_item_id = ?`, itemID); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

// DueNotifications returns unsent notifications whose time has arrived,
// oldest first. Called by the scheduler on every tick.
func (s *Store) DueNotifications(now time.Time, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT `+notificationColumns+`
	FROM timeline_notifications
	WHERE sent = 0 AND notification_time <= ?
	ORDER BY notification_time ASC
	LIMIT ?`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("due notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkNotificationSent flips sent to true. The sent = 0 guard makes the
// transition one-way: a second call is a no-op, never a reversal.
func (s *Store) MarkNotificationSent(id string) error {
	_, err := s.db.Exec(`UPDATE timeline_notifications SET sent = 1 WHERE id = ? AND sent = 0`, id)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

func markNotificationRead(q querier, id string) error {
	res, err := q.Exec(`UPDATE timeline_notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Kind: "notification", ID: id}
	}
	return nil
}

// --- History ---

func insertHistory(q querier, h *HistoryRecord) error {
	_, err := q.Exec(`
	INSERT INTO timeline_history (id, timeline_item_id, changed_by, change_description,
		changed_field, previous_value, new_value, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.TimelineItemID, h.ChangedBy, h.ChangeDescription,
		h.ChangedField, h.PreviousValue, h.NewValue, h.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// listHistory returns history records for an item, oldest first. The rowid
// tiebreak keeps records written in the same transaction in insert order.
func listHistory(q querier, itemID string, limit, offset int) ([]HistoryRecord, error) {
	query := `SELECT id, timeline_item_id, COALESCE(changed_by,''), COALESCE(change_description,''),
		changed_field, COALESCE(previous_value,''), COALESCE(new_value,''), created_at
	FROM timeline_history WHERE timeline_item_id = ?
	ORDER BY created_at ASC, rowid ASC`
	if limit <= 0 {
		limit = -1 // no cap
	}
	query += " LIMIT ? OFFSET ?"
	args := []any{itemID, limit, offset}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var h HistoryRecord
		if err := rows.Scan(&h.ID, &h.TimelineItemID, &h.ChangedBy, &h.ChangeDescription,
			&h.ChangedField, &h.PreviousValue, &h.NewValue, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
