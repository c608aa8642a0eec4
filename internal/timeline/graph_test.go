package timeline

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func graphItems(deps map[string][]string, statuses map[string]Status) []Item {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	var items []Item
	for id, d := range deps {
		st, ok := statuses[id]
		if !ok {
			st = StatusPending
		}
		items = append(items, Item{
			ID:           id,
			EventID:      "ev1",
			Title:        id,
			StartTime:    base,
			EndTime:      base.Add(time.Hour),
			Status:       st,
			Dependencies: d,
		})
	}
	return items
}

func TestGraphValidateRejectsSelfDependency(t *testing.T) {
	g := NewGraph("ev1", graphItems(map[string][]string{"a": nil}, nil))

	err := g.Validate("a", []string{"a"})
	var invalid *InvalidDependencyError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidDependencyError, got %v", err)
	}
}

func TestGraphValidateRejectsUnknownDependency(t *testing.T) {
	g := NewGraph("ev1", graphItems(map[string][]string{"a": nil}, nil))

	// "ghost" could be an item of another event or simply absent; both are
	// rejected before any cycle check.
	err := g.Validate("a", []string{"ghost"})
	var invalid *InvalidDependencyError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidDependencyError, got %v", err)
	}
}

func TestGraphValidateDetectsCycles(t *testing.T) {
	tests := []struct {
		name     string
		deps     map[string][]string
		itemID   string
		proposed []string
		wantPath []string
	}{
		{
			name:     "two node cycle",
			deps:     map[string][]string{"a": {"b"}, "b": nil},
			itemID:   "b",
			proposed: []string{"a"},
			wantPath: []string{"b", "a", "b"},
		},
		{
			name:     "three node cycle",
			deps:     map[string][]string{"a": {"b"}, "b": {"c"}, "c": nil},
			itemID:   "c",
			proposed: []string{"a"},
			wantPath: []string{"c", "a", "b", "c"},
		},
		{
			name:     "no cycle diamond",
			deps:     map[string][]string{"a": nil, "b": {"a"}, "c": {"a"}, "d": nil},
			itemID:   "d",
			proposed: []string{"b", "c"},
			wantPath: nil,
		},
		{
			name:     "new node cannot cycle",
			deps:     map[string][]string{"a": {"b"}, "b": nil},
			itemID:   "fresh",
			proposed: []string{"a", "b"},
			wantPath: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph("ev1", graphItems(tt.deps, nil))
			err := g.Validate(tt.itemID, tt.proposed)
			if tt.wantPath == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var cycle *CycleError
			if !errors.As(err, &cycle) {
				t.Fatalf("expected CycleError, got %v", err)
			}
			if !reflect.DeepEqual(cycle.Path, tt.wantPath) {
				t.Errorf("cycle path = %v, want %v", cycle.Path, tt.wantPath)
			}
		})
	}
}

func TestGraphReadyStates(t *testing.T) {
	deps := map[string][]string{
		"done":      nil,
		"cancelled": nil,
		"open":      nil,
		"a":         {"done"},              // ready: dependency completed
		"b":         {"cancelled"},         // ready: cancelled does not block
		"c":         {"open"},              // blocked: dependency pending
		"d":         {"done", "open"},      // blocked: one unmet is enough
		"e":         {"done", "cancelled"}, // ready
	}
	statuses := map[string]Status{
		"done":      StatusCompleted,
		"cancelled": StatusCancelled,
		"open":      StatusInProgress,
	}
	g := NewGraph("ev1", graphItems(deps, statuses))

	want := map[string]ReadyState{
		"done": ReadyStateReady, "cancelled": ReadyStateReady, "open": ReadyStateReady,
		"a": ReadyStateReady, "b": ReadyStateReady,
		"c": ReadyStateBlocked, "d": ReadyStateBlocked,
		"e": ReadyStateReady,
	}
	got := g.ReadyStates()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadyStates() = %v, want %v", got, want)
	}
}

func TestGraphDanglingDependencyDoesNotBlock(t *testing.T) {
	// An edge to a deleted item must not block forever.
	items := graphItems(map[string][]string{"a": {"gone"}}, nil)
	g := NewGraph("ev1", items)
	if !g.Ready("a") {
		t.Error("item with dangling dependency should be ready")
	}
}
