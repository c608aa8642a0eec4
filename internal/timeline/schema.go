package timeline

import (
	"time"
)

// Status is the lifecycle state of a timeline item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known item statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusBlocked, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ReadyState is the advisory dependency-derived state of an item.
type ReadyState string

const (
	ReadyStateReady   ReadyState = "ready"
	ReadyStateBlocked ReadyState = "blocked"
)

// Item represents a schedulable unit of work on an event's production timeline.
type Item struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	ResponsibleID string    `json:"responsible_id,omitempty"`
	TaskType      string    `json:"task_type,omitempty"`
	Status        Status    `json:"status"`
	Priority      int       `json:"priority"`
	Color         string    `json:"color,omitempty"`
	Dependencies  []string  `json:"dependencies"` // ids of items in the same event
	Location      string    `json:"location,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Milestone is an informational marker on the event timeline. It carries no
// dependencies and no lifecycle of its own.
type Milestone struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	MilestoneTime time.Time `json:"milestone_time"`
	Importance    int       `json:"importance"` // 1 (low) .. 5 (critical)
	CreatedAt     time.Time `json:"created_at"`
}

// Notification is a scheduled alert tied to a timeline item. Sent transitions
// false -> true exactly once, only through the notification scheduler.
type Notification struct {
	ID               string    `json:"id"`
	TimelineItemID   string    `json:"timeline_item_id"`
	NotificationTime time.Time `json:"notification_time"`
	NotificationType string    `json:"notification_type,omitempty"`
	Message          string    `json:"message"`
	Sent             bool      `json:"sent"`
	Read             bool      `json:"read"`
	CreatedAt        time.Time `json:"created_at"`
}

// HistoryRecord is an immutable log entry capturing one field-level change to
// an item. Records are append-only and keyed by item id, not a live foreign
// key: they outlive the item they describe.
type HistoryRecord struct {
	ID                string    `json:"id"`
	TimelineItemID    string    `json:"timeline_item_id"`
	ChangedBy         string    `json:"changed_by,omitempty"`
	ChangeDescription string    `json:"change_description"`
	ChangedField      string    `json:"changed_field"`
	PreviousValue     string    `json:"previous_value,omitempty"`
	NewValue          string    `json:"new_value,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

const (
	DefaultPriority   = 2
	DefaultImportance = 3
)

const Schema = `
CREATE TABLE IF NOT EXISTS timeline_items (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	responsible_id TEXT NOT NULL DEFAULT '',
	task_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 2,
	color TEXT NOT NULL DEFAULT '',
	dependencies TEXT NOT NULL DEFAULT '[]',
	location TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_event ON timeline_items(event_id);
CREATE INDEX IF NOT EXISTS idx_items_responsible ON timeline_items(event_id, responsible_id);
CREATE INDEX IF NOT EXISTS idx_items_status ON timeline_items(status);

CREATE TABLE IF NOT EXISTS timeline_milestones (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	milestone_time DATETIME NOT NULL,
	importance INTEGER NOT NULL DEFAULT 3,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_milestones_event ON timeline_milestones(event_id);

CREATE TABLE IF NOT EXISTS timeline_notifications (
	id TEXT PRIMARY KEY,
	timeline_item_id TEXT NOT NULL,
	notification_time DATETIME NOT NULL,
	notification_type TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	sent BOOLEAN NOT NULL DEFAULT 0,
	read BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notifications_item ON timeline_notifications(timeline_item_id);
CREATE INDEX IF NOT EXISTS idx_notifications_due ON timeline_notifications(sent, notification_time);

CREATE TABLE IF NOT EXISTS timeline_history (
	id TEXT PRIMARY KEY,
	timeline_item_id TEXT NOT NULL,
	changed_by TEXT NOT NULL DEFAULT '',
	change_description TEXT NOT NULL DEFAULT '',
	changed_field TEXT NOT NULL,
	previous_value TEXT NOT NULL DEFAULT '',
	new_value TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_history_item ON timeline_history(timeline_item_id, created_at);
`
