package handle

import "github.com/tiro-lang/tiro/internal/value"

// Globals is the Context-held registry of long-lived slots (spec.md §4.3
// category 2). A slot is registered on construction of whatever owns it
// (the interner, the module table, a singleton) and unregistered when that
// owner is torn down; every registered slot is walked by the collector.
type Globals struct {
	slots map[*value.Value]struct{}
}

// NewGlobals returns an empty globals registry.
func NewGlobals() *Globals {
	return &Globals{slots: make(map[*value.Value]struct{})}
}

// Register adds slot to the registry. slot's lifetime must outlive the
// call to Unregister, since the collector dereferences it every cycle in
// between.
func (g *Globals) Register(slot *value.Value) {
	g.slots[slot] = struct{}{}
}

// Unregister removes slot from the registry.
func (g *Globals) Unregister(slot *value.Value) {
	delete(g.slots, slot)
}

// WalkRoots visits every registered global slot.
func (g *Globals) WalkRoots(visit func(*value.Value)) {
	for slot := range g.slots {
		visit(slot)
	}
}
