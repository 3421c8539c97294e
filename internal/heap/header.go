// Package heap implements the managed heap: the object header every heap
// value shares, the intrusive doubly-linked list of live objects, and the
// per-kind type table the collector uses to trace and free them. It knows
// nothing about any concrete object layout beyond the header (spec.md
// §3.2) — internal/object registers a TypeDescriptor per Kind and casts
// *Header back to its own concrete types via unsafe.Pointer, the same
// pointer-resurrection idiom the teacher uses in
// internal/engine/interpreter/interpreter.go's functionFromUintptr to
// recover a *function from a raw uintptr stored in a funcref table.
package heap

import (
	"unsafe"

	"github.com/tiro-lang/tiro/internal/value"
)

// flag bits stored in Header.flags.
const (
	flagMarked uint8 = 1 << 0
)

// Header is the fixed-size prefix every heap object begins with (spec.md
// §3.1). It must be the first field of every concrete object struct so that
// a *Header and the object's own pointer are the same address.
type Header struct {
	Kind  value.Kind
	flags uint8
	size  uintptr // byte size charged against the heap's allocation counters
	prev  *Header
	next  *Header
}

// Size returns the byte size this object was charged against the heap's
// allocation counters when it was created.
func (h *Header) Size() uintptr { return h.size }

// Next returns the next header in the heap's live-object list, for sweep
// traversal. Returns nil at the tail.
func (h *Header) Next() *Header { return h.next }

func (h *Header) Marked() bool { return h.flags&flagMarked != 0 }
func (h *Header) SetMarked(b bool) {
	if b {
		h.flags |= flagMarked
	} else {
		h.flags &^= flagMarked
	}
}

// AsValue wraps the object's address as a heap Value reference.
func (h *Header) AsValue() value.Value {
	return value.FromHeapPointer(uintptr(unsafe.Pointer(h)))
}

// HeaderOf recovers the Header of a heap-pointer Value. The caller must
// have checked v.IsHeapPointer().
func HeaderOf(v value.Value) *Header {
	return (*Header)(unsafe.Pointer(v.HeapPointer())) //nolint:govet // intrusive header cast, see package doc.
}

// KindOf returns the Kind of any Value: the immediate kind for Null and
// SmallInteger, or the header's Kind for every heap pointer (Undefined
// and Boolean included, which are heap objects with a one-word payload).
func KindOf(v value.Value) value.Kind {
	switch {
	case v.IsNull():
		return value.KindNull
	case v.IsSmallInt():
		return value.KindSmallInteger
	default:
		return HeaderOf(v).Kind
	}
}
