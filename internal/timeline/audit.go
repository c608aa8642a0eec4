package timeline

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Change descriptions recorded in timeline_history.
const (
	changeCreated       = "created"
	changeUpdated       = "updated"
	changeStatusChanged = "status changed"
	changeDeleted       = "deleted"
)

// newHistoryRecord builds one immutable audit record. Pure; the caller
// persists it in the same transaction as the mutation it describes.
func newHistoryRecord(itemID, changedBy, description, field, prev, next string, at time.Time) HistoryRecord {
	return HistoryRecord{
		ID:                uuid.NewString(),
		TimelineItemID:    itemID,
		ChangedBy:         changedBy,
		ChangeDescription: description,
		ChangedField:      field,
		PreviousValue:     prev,
		NewValue:          next,
		CreatedAt:         at,
	}
}

type fieldChange struct {
	Field string
	Prev  string
	Next  string
}

// itemChanges computes the field-level diff between two versions of an item.
// One entry per differing field; audit fields (created_at, updated_at) are
// not themselves audited.
func itemChanges(old, next *Item) []fieldChange {
	var out []fieldChange
	add := func(field, prev, now string) {
		if prev != now {
			out = append(out, fieldChange{Field: field, Prev: prev, Next: now})
		}
	}
	add("title", old.Title, next.Title)
	add("description", old.Description, next.Description)
	add("start_time", formatAuditTime(old.StartTime), formatAuditTime(next.StartTime))
	add("end_time", formatAuditTime(old.EndTime), formatAuditTime(next.EndTime))
	add("responsible_id", old.ResponsibleID, next.ResponsibleID)
	add("task_type", old.TaskType, next.TaskType)
	add("status", string(old.Status), string(next.Status))
	add("priority", strconv.Itoa(old.Priority), strconv.Itoa(next.Priority))
	add("color", old.Color, next.Color)
	add("dependencies", marshalDeps(old.Dependencies), marshalDeps(next.Dependencies))
	add("location", old.Location, next.Location)
	return out
}

func formatAuditTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// History returns an item's audit trail ordered by created_at ascending,
// paginated by limit/offset. Records survive deletion of the item itself.
func (s *Service) History(itemID string, limit, offset int) ([]HistoryRecord, error) {
	return listHistory(s.store.db, itemID, limit, offset)
}
