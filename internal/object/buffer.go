package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Buffer is a fixed-length, mutable byte array (spec.md §3.3) — the
// runtime's only raw-bytes container, used for binary I/O payloads and as
// the backing store for StringBuilder.
type Buffer struct {
	hdr  heap.Header
	data []byte
}

func init() {
	heap.RegisterType(value.KindBuffer, &heap.TypeDescriptor{})
}

// NewBuffer allocates a zero-filled Buffer of the given length.
func NewBuffer(h *heap.Heap, length int) value.Value {
	o := heap.AllocateFixed[Buffer](h, value.KindBuffer, uintptr(24+length))
	o.data = make([]byte, length)
	return o.hdr.AsValue()
}

// BufferBytes returns the mutable backing slice. v must be a Buffer.
func BufferBytes(v value.Value) []byte {
	return (*Buffer)(ptrOf(v)).data
}

// BufferLen returns the byte length.
func BufferLen(v value.Value) int {
	return len((*Buffer)(ptrOf(v)).data)
}
