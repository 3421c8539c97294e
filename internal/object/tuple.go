package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Tuple is a fixed-length sequence of Values (spec.md §3.3): its size is
// frozen at allocation and never reallocated, but individual slots are
// still settable in place (StoreIndex/StoreTupleMember), the same way
// original_source's Tuple::set mutates a slot without resizing.
type Tuple struct {
	hdr  heap.Header
	elts []value.Value
}

func init() {
	heap.RegisterType(value.KindTuple, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			for _, v := range (*Tuple)(asPointer(h)).elts {
				visit(v)
			}
		},
	})
}

// NewTuple allocates a Tuple holding a copy of elts.
func NewTuple(h *heap.Heap, elts []value.Value) value.Value {
	o := heap.AllocateFixed[Tuple](h, value.KindTuple, uintptr(24+8*len(elts)))
	o.elts = append([]value.Value(nil), elts...)
	return o.hdr.AsValue()
}

// TupleLen returns the element count. v must be a Tuple.
func TupleLen(v value.Value) int {
	return len((*Tuple)(ptrOf(v)).elts)
}

// TupleGet returns the element at i, panicking on out-of-range i the same
// way a slice index would. internal/typesys checks bounds before calling
// it; the interpreter's tuple-member opcodes pass their field index
// unchecked.
func TupleGet(v value.Value, i int) value.Value {
	return (*Tuple)(ptrOf(v)).elts[i]
}

// TupleSet overwrites the element at i in place. v must be a Tuple.
func TupleSet(v value.Value, i int, elt value.Value) {
	(*Tuple)(ptrOf(v)).elts[i] = elt
}
