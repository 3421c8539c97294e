package heap

import "github.com/tiro-lang/tiro/internal/value"

// TypeDescriptor is the per-kind static description of spec.md §3.2: how
// many outgoing reference fields an instance has (via Walk), whether it is
// worth tracing at all, and how to release any non-managed resource it
// holds (Finalize, only ever non-nil for NativeObject).
//
// Design note §9 prefers this table-of-closures over a virtual-dispatch
// interface per object ("a per-kind table of function pointers keyed by
// the type tag"); it is populated once by internal/object's init, indexed
// by value.Kind, and consulted only by the collector.
type TypeDescriptor struct {
	// MayContainReferences mirrors spec.md §3.2: types without reference
	// fields (String, Buffer, Float, Integer, NativePointer, NativeObject,
	// and the primitive singletons) skip Walk entirely after being marked.
	MayContainReferences bool
	// Walk enumerates every outgoing reference field of h by calling visit
	// once per child Value. Children may be Null or SmallInteger
	// immediates; the collector skips anything that is not a heap pointer.
	Walk func(h *Header, visit func(value.Value))
	// Finalize runs synchronously during sweep for unreachable objects of
	// this kind. Finalizers must not touch other managed objects: sweep
	// order is undefined (spec.md §3.4).
	Finalize func(h *Header)
}

var typeTable = map[value.Kind]*TypeDescriptor{}

// RegisterType installs the descriptor for kind. Called once per kind from
// internal/object's package init. Re-registering a kind is a programmer
// error and panics immediately rather than silently shadowing.
func RegisterType(kind value.Kind, desc *TypeDescriptor) {
	if typeTable[kind] != nil {
		panic("heap: type already registered: " + kind.String())
	}
	typeTable[kind] = desc
}

// DescriptorFor returns the registered descriptor for kind, or nil if the
// kind was never registered (immediates, or a kind with no object fields
// worth describing).
func DescriptorFor(kind value.Kind) *TypeDescriptor {
	return typeTable[kind]
}
