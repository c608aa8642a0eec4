package timeline

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed input: bad time ranges, empty titles,
// out-of-range values. Nothing is written when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CycleError reports a dependency cycle. Path names the cycle, starting and
// ending at the item whose dependencies were being changed.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// InvalidDependencyError reports a self-dependency or a dependency on an item
// outside the event. These are rejected before any cycle check runs.
type InvalidDependencyError struct {
	ItemID    string
	DependsOn string
	Reason    string
}

func (e *InvalidDependencyError) Error() string {
	return fmt.Sprintf("invalid dependency %s -> %s: %s", e.ItemID, e.DependsOn, e.Reason)
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Kind string // "item", "milestone", "notification"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// InvalidTransitionError reports a status change outside the state machine,
// or a gated transition (blocked -> in_progress while dependencies are
// unmet) attempted without force.
type InvalidTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition %s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot transition %s -> %s", e.From, e.To)
}

// DependentsExistError reports a delete blocked by items that still list the
// target in their dependencies.
type DependentsExistError struct {
	ItemID     string
	Dependents []string
}

func (e *DependentsExistError) Error() string {
	return fmt.Sprintf("item %s has %d dependent item(s): %s",
		e.ItemID, len(e.Dependents), strings.Join(e.Dependents, ", "))
}

// ConflictError is returned only in strict mode, when a proposed time window
// double-books the responsible party. In the default advisory mode the same
// overlaps are returned as warnings alongside success instead.
type ConflictError struct {
	ResponsibleID string
	Conflicts     []Item
}

func (e *ConflictError) Error() string {
	titles := make([]string, 0, len(e.Conflicts))
	for _, it := range e.Conflicts {
		titles = append(titles, it.Title)
	}
	return fmt.Sprintf("schedule conflict for %s with: %s", e.ResponsibleID, strings.Join(titles, ", "))
}
