package timeline

// Graph is an in-memory view over one event's dependency edges. It is a
// derived, rebuildable index: built from a snapshot of the event's items
// inside the transaction that uses it, and thrown away afterwards. Rebuild
// cost is O(V+E), which is fine at a few hundred items per event.
type Graph struct {
	eventID  string
	nodes    map[string]bool
	edges    map[string][]string
	statuses map[string]Status
}

// NewGraph builds the dependency graph for eventID from its items.
func NewGraph(eventID string, items []Item) *Graph {
	g := &Graph{
		eventID:  eventID,
		nodes:    make(map[string]bool, len(items)),
		edges:    make(map[string][]string, len(items)),
		statuses: make(map[string]Status, len(items)),
	}
	for _, it := range items {
		g.nodes[it.ID] = true
		g.edges[it.ID] = it.Dependencies
		g.statuses[it.ID] = it.Status
	}
	return g
}

// Validate answers whether itemID may have the proposed dependency set.
// Self- and cross-event dependencies are rejected as InvalidDependencyError
// before the cycle check; a cycle is reported as CycleError naming the path.
// itemID may be a new node not yet in the graph.
func (g *Graph) Validate(itemID string, proposed []string) error {
	for _, dep := range proposed {
		if dep == itemID {
			return &InvalidDependencyError{ItemID: itemID, DependsOn: dep, Reason: "item cannot depend on itself"}
		}
		if !g.nodes[dep] {
			return &InvalidDependencyError{ItemID: itemID, DependsOn: dep,
				Reason: "not an item of event " + g.eventID}
		}
	}

	// Any new cycle must pass through itemID, since the proposed edges are
	// the only ones changing. Walk from itemID with its edges overridden and
	// look for a way back.
	visited := make(map[string]bool)
	path := []string{itemID}
	for _, dep := range proposed {
		if cycle := g.findPathBack(dep, itemID, visited, path); cycle != nil {
			return &CycleError{Path: cycle}
		}
	}
	return nil
}

// findPathBack does a depth-first walk from node looking for target. It
// returns the full cycle path (target ... target) if found, else nil.
func (g *Graph) findPathBack(node, target string, visited map[string]bool, path []string) []string {
	if node == target {
		return append(append([]string{}, path...), target)
	}
	if visited[node] {
		return nil
	}
	visited[node] = true
	path = append(path, node)
	for _, next := range g.edges[node] {
		if cycle := g.findPathBack(next, target, visited, path); cycle != nil {
			return cycle
		}
	}
	return nil
}

// Ready reports whether every dependency of itemID is satisfied. A dependency
// is satisfied when completed or cancelled; cancelled work does not block its
// dependents. Unknown ids and items without dependencies are ready.
func (g *Graph) Ready(itemID string) bool {
	for _, dep := range g.edges[itemID] {
		if !g.satisfied(dep) {
			return false
		}
	}
	return true
}

func (g *Graph) satisfied(id string) bool {
	st, ok := g.statuses[id]
	if !ok {
		// Dangling edge: the dependency was deleted out from under us.
		// Treat as satisfied rather than blocking forever.
		return true
	}
	return st == StatusCompleted || st == StatusCancelled
}

// ReadyStates computes the advisory ready/blocked state for every item in the
// event. This is a hint for callers; the service only enforces it on the
// blocked -> in_progress transition.
func (g *Graph) ReadyStates() map[string]ReadyState {
	out := make(map[string]ReadyState, len(g.nodes))
	for id := range g.nodes {
		if g.Ready(id) {
			out[id] = ReadyStateReady
		} else {
			out[id] = ReadyStateBlocked
		}
	}
	return out
}
