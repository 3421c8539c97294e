package coroutine

import (
	"unsafe"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

func ptrOf(v value.Value) unsafe.Pointer {
	return unsafe.Pointer(v.HeapPointer())
}

func asPointer(h *heap.Header) unsafe.Pointer {
	return unsafe.Pointer(h)
}
