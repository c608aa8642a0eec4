package timeline

import (
	"fmt"
	"time"
)

// findConflicts returns every other item of the event assigned to
// responsibleID whose [start, end) window overlaps the proposed one,
// half-open: a.start < b.end && b.start < a.end. Back-to-back slots
// (one ends exactly when the other starts) do not overlap. Unassigned
// work (empty responsibleID) never conflicts.
//
// Conflicts are advisory by default: productions double-book on purpose
// during handoffs, so the service surfaces them as warnings and only
// rejects under strict mode.
func findConflicts(q querier, eventID, responsibleID string, start, end time.Time, excludeID string) ([]Item, error) {
	if responsibleID == "" {
		return nil, nil
	}
	rows, err := q.Query(`SELECT `+itemColumns+`
	FROM timeline_items
	WHERE event_id = ? AND responsible_id = ? AND id != ?
		AND start_time < ? AND end_time > ?
	ORDER BY start_time ASC`,
		eventID, responsibleID, excludeID, end.UTC(), start.UTC())
	if err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}
