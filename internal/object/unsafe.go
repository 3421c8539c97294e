package object

import (
	"unsafe"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// ptrOf recovers the address backing a heap Value so a kind-specific
// accessor can cast it to its own concrete struct. v must be a heap
// pointer of the kind the caller is about to cast to — every exported
// accessor in this package documents which kind it expects and panics
// via a bad pointer dereference otherwise, same as a `must_cast` in the
// original runtime.
func ptrOf(v value.Value) unsafe.Pointer {
	return unsafe.Pointer(v.HeapPointer())
}

// asPointer is ptrOf's counterpart for Walk/Finalize closures, which the
// collector invokes with a *heap.Header rather than a Value.
func asPointer(h *heap.Header) unsafe.Pointer {
	return unsafe.Pointer(h)
}
