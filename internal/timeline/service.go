package timeline

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service is the single write path into the timeline store. Every mutation
// runs inside one transaction under a per-event lock, so dependency and
// conflict checks observe a consistent snapshot of the event they guard.
// Reads go straight to the store.
type Service struct {
	store *Store
	now   func() time.Time

	mu         sync.Mutex
	eventLocks map[string]*sync.Mutex
}

// NewService creates a Service over store.
func NewService(store *Store) *Service {
	return &Service{
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
		eventLocks: make(map[string]*sync.Mutex),
	}
}

// eventLock returns the mutex serializing writers of one event. Events are
// independent; writers of different events never contend here.
func (s *Service) eventLock(eventID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.eventLocks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.eventLocks[eventID] = l
	}
	return l
}

// WriteOptions carry caller policy for mutating operations.
type WriteOptions struct {
	ChangedBy string // recorded on history rows
	Strict    bool   // turn advisory conflicts into hard failures
	Force     bool   // override the ready gate on blocked -> in_progress
}

// NewItem is the input to CreateItem.
type NewItem struct {
	EventID       string
	Title         string
	Description   string
	StartTime     time.Time
	EndTime       time.Time
	ResponsibleID string
	TaskType      string
	Priority      int
	Color         string
	Dependencies  []string
	Location      string

	// RemindBefore, when positive, also creates a "reminder" notification
	// at StartTime - RemindBefore in the same transaction.
	RemindBefore time.Duration
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "time window", Reason: "start and end times are required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	return nil
}

// CreateItem validates, inserts a new pending item and its "created" history
// record, and returns it. Overlapping assignments for the responsible party
// are returned as warnings; under opts.Strict they fail the create instead
// and nothing is persisted.
func (s *Service) CreateItem(in NewItem, opts WriteOptions) (*Item, []Item, error) {
	if in.EventID == "" {
		return nil, nil, &ValidationError{Field: "event_id", Reason: "required"}
	}
	if in.Title == "" {
		return nil, nil, &ValidationError{Field: "title", Reason: "required"}
	}
	if err := validateWindow(in.StartTime, in.EndTime); err != nil {
		return nil, nil, err
	}
	if in.Priority == 0 {
		in.Priority = DefaultPriority
	}
	deps := dedupe(in.Dependencies)

	lock := s.eventLock(in.EventID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	item := &Item{
		ID:            uuid.NewString(),
		EventID:       in.EventID,
		Title:         in.Title,
		Description:   in.Description,
		StartTime:     in.StartTime.UTC(),
		EndTime:       in.EndTime.UTC(),
		ResponsibleID: in.ResponsibleID,
		TaskType:      in.TaskType,
		Status:        StatusPending,
		Priority:      in.Priority,
		Color:         in.Color,
		Dependencies:  deps,
		Location:      in.Location,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var conflicts []Item
	err := s.store.withTx(func(tx *sql.Tx) error {
		siblings, err := listItems(tx, in.EventID, ItemFilter{})
		if err != nil {
			return err
		}
		if err := NewGraph(in.EventID, siblings).Validate(item.ID, deps); err != nil {
			return err
		}
		conflicts, err = findConflicts(tx, in.EventID, in.ResponsibleID, item.StartTime, item.EndTime, item.ID)
		if err != nil {
			return err
		}
		if opts.Strict && len(conflicts) > 0 {
			return &ConflictError{ResponsibleID: in.ResponsibleID, Conflicts: conflicts}
		}
		if err := insertItem(tx, item); err != nil {
			return err
		}
		h := newHistoryRecord(item.ID, opts.ChangedBy, changeCreated, "item", "", item.Title, now)
		if err := insertHistory(tx, &h); err != nil {
			return err
		}
		if in.RemindBefore > 0 {
			n := &Notification{
				ID:               uuid.NewString(),
				TimelineItemID:   item.ID,
				NotificationTime: item.StartTime.Add(-in.RemindBefore),
				NotificationType: "reminder",
				Message:          fmt.Sprintf("%s starts at %s", item.Title, item.StartTime.Format(time.RFC3339)),
				CreatedAt:        now,
			}
			if err := insertNotification(tx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return item, conflicts, nil
}

// ItemPatch holds the fields an UpdateItem call wants to change. Nil fields
// are left untouched. Status is not patchable; it moves only through
// TransitionStatus.
type ItemPatch struct {
	Title         *string
	Description   *string
	StartTime     *time.Time
	EndTime       *time.Time
	ResponsibleID *string
	TaskType      *string
	Priority      *int
	Color         *string
	Dependencies  *[]string
	Location      *string
}

func (p ItemPatch) apply(it *Item) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.StartTime != nil {
		it.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		it.EndTime = p.EndTime.UTC()
	}
	if p.ResponsibleID != nil {
		it.ResponsibleID = *p.ResponsibleID
	}
	if p.TaskType != nil {
		it.TaskType = *p.TaskType
	}
	if p.Priority != nil {
		it.Priority = *p.Priority
	}
	if p.Color != nil {
		it.Color = *p.Color
	}
	if p.Dependencies != nil {
		it.Dependencies = dedupe(*p.Dependencies)
	}
	if p.Location != nil {
		it.Location = *p.Location
	}
}

func (p ItemPatch) touchesSchedule() bool {
	return p.StartTime != nil || p.EndTime != nil || p.ResponsibleID != nil
}

// UpdateItem applies patch to the item, writing one history record per field
// that actually changed, atomically with the item row. Dependency changes are
// re-validated against the event graph; schedule changes surface conflicts as
// warnings, or as a ConflictError under opts.Strict. A rejected update leaves
// the item and its history untouched.
func (s *Service) UpdateItem(id string, patch ItemPatch, opts WriteOptions) (*Item, []Item, error) {
	// The item -> event mapping is immutable, so this unlocked read is safe.
	current, err := getItem(s.store.db, id)
	if err != nil {
		return nil, nil, err
	}

	lock := s.eventLock(current.EventID)
	lock.Lock()
	defer lock.Unlock()

	var updated *Item
	var conflicts []Item
	err = s.store.withTx(func(tx *sql.Tx) error {
		old, err := getItem(tx, id)
		if err != nil {
			return err
		}
		next := *old
		patch.apply(&next)

		if next.Title == "" {
			return &ValidationError{Field: "title", Reason: "required"}
		}
		if err := validateWindow(next.StartTime, next.EndTime); err != nil {
			return err
		}

		siblings, err := listItems(tx, old.EventID, ItemFilter{})
		if err != nil {
			return err
		}
		if patch.Dependencies != nil {
			if err := NewGraph(old.EventID, siblings).Validate(id, next.Dependencies); err != nil {
				return err
			}
		}
		if patch.touchesSchedule() {
			conflicts, err = findConflicts(tx, old.EventID, next.ResponsibleID, next.StartTime, next.EndTime, id)
			if err != nil {
				return err
			}
			if opts.Strict && len(conflicts) > 0 {
				return &ConflictError{ResponsibleID: next.ResponsibleID, Conflicts: conflicts}
			}
		}

		changes := itemChanges(old, &next)
		if len(changes) == 0 {
			updated = old
			return nil
		}

		now := s.now()
		next.UpdatedAt = now
		if err := updateItem(tx, &next); err != nil {
			return err
		}
		for _, c := range changes {
			h := newHistoryRecord(id, opts.ChangedBy, changeUpdated, c.Field, c.Prev, c.Next, now)
			if err := insertHistory(tx, &h); err != nil {
				return err
			}
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, conflicts, nil
}

// statusTransitions is the item state machine. Completed and cancelled are
// terminal.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusBlocked, StatusCompleted, StatusCancelled},
	StatusBlocked:    {StatusInProgress, StatusCancelled},
}

func transitionAllowed(from, to Status) bool {
	for _, t := range statusTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// TransitionStatus moves an item through the status state machine and appends
// a history record for the status field. blocked -> in_progress additionally
// requires the item's dependencies to be satisfied, unless opts.Force.
func (s *Service) TransitionStatus(id string, to Status, opts WriteOptions) error {
	if !to.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(to)}
	}

	current, err := getItem(s.store.db, id)
	if err != nil {
		return err
	}

	lock := s.eventLock(current.EventID)
	lock.Lock()
	defer lock.Unlock()

	return s.store.withTx(func(tx *sql.Tx) error {
		it, err := getItem(tx, id)
		if err != nil {
			return err
		}
		if !transitionAllowed(it.Status, to) {
			return &InvalidTransitionError{From: it.Status, To: to}
		}
		if it.Status == StatusBlocked && to == StatusInProgress && !opts.Force {
			siblings, err := listItems(tx, it.EventID, ItemFilter{})
			if err != nil {
				return err
			}
			if !NewGraph(it.EventID, siblings).Ready(id) {
				return &InvalidTransitionError{From: it.Status, To: to, Reason: "dependencies unmet"}
			}
		}

		now := s.now()
		prev := it.Status
		it.Status = to
		it.UpdatedAt = now
		if err := updateItem(tx, it); err != nil {
			return err
		}
		h := newHistoryRecord(id, opts.ChangedBy, changeStatusChanged, "status", string(prev), string(to), now)
		return insertHistory(tx, &h)
	})
}

// DeleteItem removes an item and its notifications, and appends a terminal
// history record (history is keyed by item id, not a live foreign key, so it
// survives the delete). The delete is rejected with DependentsExistError
// while other items still list id in their dependencies.
func (s *Service) DeleteItem(id string, opts WriteOptions) error {
	current, err := getItem(s.store.db, id)
	if err != nil {
		return err
	}

	lock := s.eventLock(current.EventID)
	lock.Lock()
	defer lock.Unlock()

	return s.store.withTx(func(tx *sql.Tx) error {
		it, err := getItem(tx, id)
		if err != nil {
			return err
		}
		siblings, err := listItems(tx, it.EventID, ItemFilter{})
		if err != nil {
			return err
		}
		var dependents []string
		for _, sib := range siblings {
			for _, dep := range sib.Dependencies {
				if dep == id {
					dependents = append(dependents, sib.ID)
					break
				}
			}
		}
		if len(dependents) > 0 {
			return &DependentsExistError{ItemID: id, Dependents: dependents}
		}
		if err := deleteNotificationsForItem(tx, id); err != nil {
			return err
		}
		if err := deleteItem(tx, id); err != nil {
			return err
		}
		h := newHistoryRecord(id, opts.ChangedBy, changeDeleted, "item", it.Title, "", s.now())
		return insertHistory(tx, &h)
	})
}

// Item returns one item by id.
func (s *Service) Item(id string) (*Item, error) {
	return getItem(s.store.db, id)
}

// ItemsByEvent lists an event's items, optionally filtered.
func (s *Service) ItemsByEvent(eventID string, f ItemFilter) ([]Item, error) {
	return listItems(s.store.db, eventID, f)
}

// ReadyStates returns the advisory ready/blocked state per item of an event.
func (s *Service) ReadyStates(eventID string) (map[string]ReadyState, error) {
	items, err := listItems(s.store.db, eventID, ItemFilter{})
	if err != nil {
		return nil, err
	}
	return NewGraph(eventID, items).ReadyStates(), nil
}

// FindConflicts reports overlapping assignments for responsibleID in the
// proposed window, excluding excludeID. Advisory; callers decide policy.
func (s *Service) FindConflicts(eventID, responsibleID string, start, end time.Time, excludeID string) ([]Item, error) {
	return findConflicts(s.store.db, eventID, responsibleID, start, end, excludeID)
}

// NewMilestone is the input to CreateMilestone.
type NewMilestone struct {
	EventID       string
	Title         string
	Description   string
	MilestoneTime time.Time
	Importance    int
}

// CreateMilestone inserts an informational marker. Milestones have no
// dependencies, no conflicts, and no history of their own.
func (s *Service) CreateMilestone(in NewMilestone) (*Milestone, error) {
	if in.EventID == "" {
		return nil, &ValidationError{Field: "event_id", Reason: "required"}
	}
	if in.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	if in.MilestoneTime.IsZero() {
		return nil, &ValidationError{Field: "milestone_time", Reason: "required"}
	}
	if in.Importance == 0 {
		in.Importance = DefaultImportance
	}
	if in.Importance < 1 || in.Importance > 5 {
		return nil, &ValidationError{Field: "importance", Reason: "must be between 1 and 5"}
	}

	m := &Milestone{
		ID:            uuid.NewString(),
		EventID:       in.EventID,
		Title:         in.Title,
		Description:   in.Description,
		MilestoneTime: in.MilestoneTime.UTC(),
		Importance:    in.Importance,
		CreatedAt:     s.now(),
	}
	if err := insertMilestone(s.store.db, m); err != nil {
		return nil, err
	}
	return m, nil
}

// MilestonesByEvent lists an event's milestones ordered by time.
func (s *Service) MilestonesByEvent(eventID string) ([]Milestone, error) {
	return listMilestones(s.store.db, eventID)
}

// DeleteMilestone removes a milestone.
func (s *Service) DeleteMilestone(id string) error {
	return deleteMilestone(s.store.db, id)
}

// NewNotification is the input to AddNotification.
type NewNotification struct {
	TimelineItemID   string
	NotificationTime time.Time
	NotificationType string
	Message          string
}

// AddNotification schedules an alert for an existing item. It is picked up
// by the scheduler on its next tick; there is no sub-tick delivery latency.
func (s *Service) AddNotification(in NewNotification) (*Notification, error) {
	if in.NotificationTime.IsZero() {
		return nil, &ValidationError{Field: "notification_time", Reason: "required"}
	}
	if _, err := getItem(s.store.db, in.TimelineItemID); err != nil {
		return nil, err
	}
	if in.NotificationType == "" {
		in.NotificationType = "reminder"
	}

	n := &Notification{
		ID:               uuid.NewString(),
		TimelineItemID:   in.TimelineItemID,
		NotificationTime: in.NotificationTime.UTC(),
		NotificationType: in.NotificationType,
		Message:          in.Message,
		CreatedAt:        s.now(),
	}
	if err := insertNotification(s.store.db, n); err != nil {
		return nil, err
	}
	return n, nil
}

// NotificationsForItem lists an item's notifications ordered by time.
func (s *Service) NotificationsForItem(itemID string) ([]Notification, error) {
	return listNotificationsForItem(s.store.db, itemID)
}

// MarkNotificationRead flags a notification as seen by the user. Independent
// of the sent flag, which only the scheduler touches.
func (s *Service) MarkNotificationRead(id string) error {
	return markNotificationRead(s.store.db, id)
}
