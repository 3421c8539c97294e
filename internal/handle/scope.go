// Package handle implements the three rooting categories of spec.md §4.3:
// a paged, scope-bound "rooted stack" for mutator locals, a globals
// registry for long-lived slots, and a small fixed register bank for
// interpreter temporaries. Every Value the collector must be able to find
// without walking the coroutine stack or object graph lives in one of
// these three places; bare heap pointers held anywhere else are never
// alive across a safepoint (spec.md §4.3, §5).
package handle

import "github.com/tiro-lang/tiro/internal/value"

// pageSize is the number of Value slots per page (spec.md §4.3 example: 512).
const pageSize = 512

type page struct {
	slots [pageSize]value.Value
	used  int
}

// RootedStack is the page-based stack of Value slots a Scope reserves from.
// It keeps one spare deallocated page around after a Scope closes (spec.md
// §4.3: "buffering keeps one spare page after deallocation to avoid
// thrashing") instead of returning it to the Go allocator immediately.
type RootedStack struct {
	pages []*page
	spare *page
}

// NewRootedStack returns an empty rooted stack.
func NewRootedStack() *RootedStack {
	return &RootedStack{}
}

func (r *RootedStack) currentPage() *page {
	if len(r.pages) == 0 {
		return nil
	}
	return r.pages[len(r.pages)-1]
}

func (r *RootedStack) pushPage() *page {
	var p *page
	if r.spare != nil {
		p, r.spare = r.spare, nil
	} else {
		p = &page{}
	}
	r.pages = append(r.pages, p)
	return p
}

func (r *RootedStack) popPage() {
	n := len(r.pages)
	last := r.pages[n-1]
	last.used = 0
	r.pages = r.pages[:n-1]
	r.spare = last // keep exactly one spare page
}

// reserve hands out a fresh, Null-initialized slot for a Scope and returns
// a reference the Scope can index through a Local[T].
func (r *RootedStack) reserve() *value.Value {
	p := r.currentPage()
	if p == nil || p.used == pageSize {
		p = r.pushPage()
	}
	slot := &p.slots[p.used]
	*slot = value.Null
	p.used++
	return slot
}

// mark is a restore point: how many pages exist and how far the top page
// was filled when a Scope began.
type mark struct {
	pages int
	used  int
}

func (r *RootedStack) save() mark {
	p := r.currentPage()
	used := 0
	if p != nil {
		used = p.used
	}
	return mark{pages: len(r.pages), used: used}
}

func (r *RootedStack) restore(m mark) {
	for len(r.pages) > m.pages {
		r.popPage()
	}
	if p := r.currentPage(); p != nil {
		p.used = m.used
	}
}

// WalkRoots visits every Value slot currently in use across every page, for
// the collector's root-marking pass.
func (r *RootedStack) WalkRoots(visit func(*value.Value)) {
	for _, p := range r.pages {
		for i := 0; i < p.used; i++ {
			visit(&p.slots[i])
		}
	}
}

// Local is a typed handle into a rooted slot. It is always safe to hold
// across an allocation: the slot it points to is walked by the collector
// for as long as the enclosing Scope is open.
type Local[T any] struct {
	slot *value.Value
}

// Get returns the current value of the handle.
func (l Local[T]) Get() value.Value { return *l.slot }

// Set stores v into the handle's slot.
func (l Local[T]) Set(v value.Value) { *l.slot = v }

// Scope reserves rooted slots from a RootedStack and releases every slot it
// reserved when Close is called — the Go stand-in for the source's RAII
// scope guard (design note §9: "a result/error propagation discipline that
// still unwinds handles correctly, RAII-equivalent scope guards"). The
// idiomatic pattern is:
//
//	sc := handle.NewScope(stack)
//	defer sc.Close()
//	local := sc.NewLocal(initial)
type Scope struct {
	stack *RootedStack
	mark  mark
}

// NewScope opens a new scope on stack.
func NewScope(stack *RootedStack) *Scope {
	return &Scope{stack: stack, mark: stack.save()}
}

// NewLocal reserves a new rooted slot initialized to v.
func NewLocal[T any](s *Scope, v value.Value) Local[T] {
	slot := s.stack.reserve()
	*slot = v
	return Local[T]{slot: slot}
}

// Close releases every slot this scope reserved. A Scope must not be used
// after Close, and scopes must close in strict stack (LIFO) order — nesting
// any other way corrupts the rooted stack's bookkeeping.
func (s *Scope) Close() {
	s.stack.restore(s.mark)
}
