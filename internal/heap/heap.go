package heap

import (
	"unsafe"

	"github.com/tiro-lang/tiro/internal/value"
)

// Heap is the doubly-linked list of live object headers (spec.md §4.2)
// plus the byte/object counters the collector uses to decide when to run.
type Heap struct {
	head, tail     *Header
	AllocatedBytes uint64
	AllocatedObjs  uint64
}

// New returns an empty heap.
func New() *Heap { return &Heap{} }

func (h *Heap) link(hdr *Header) {
	hdr.prev = h.tail
	hdr.next = nil
	if h.tail != nil {
		h.tail.next = hdr
	} else {
		h.head = hdr
	}
	h.tail = hdr
}

func (h *Heap) unlink(hdr *Header) {
	if hdr.prev != nil {
		hdr.prev.next = hdr.next
	} else {
		h.head = hdr.next
	}
	if hdr.next != nil {
		hdr.next.prev = hdr.prev
	} else {
		h.tail = hdr.prev
	}
}

// First returns the head of the live list for sweep traversal, or nil if
// the heap is empty.
func (h *Heap) First() *Header { return h.head }

// AllocateFixed requests raw, zeroed storage of byteSize bytes for an
// object of fixed layout and appends its header to the live list. Callers
// name their concrete struct as the type parameter T (whose first field
// must be a Header) and get back a pointer to a new zero T; AllocateFixed
// only wires the header bookkeeping
// — the Go runtime itself supplies and zeroes the storage, there is no
// manual bump allocator here the way spec.md §4.2 describes for a
// from-scratch allocator, because letting the Go GC own the raw bytes of a
// Tiro object and layering Tiro's own header/mark/sweep protocol on top is
// the idiomatic way to express a tracing collector inside a language that
// already has one underneath it.
func AllocateFixed[T any](h *Heap, kind value.Kind, byteSize uintptr) *T {
	obj := new(T)
	hdr := (*Header)(unsafe.Pointer(obj))
	hdr.Kind = kind
	hdr.size = byteSize
	h.link(hdr)
	h.AllocatedBytes += uint64(byteSize)
	h.AllocatedObjs++
	return obj
}

// Free unlinks and discards hdr. Called only by the collector's sweep
// phase for objects whose mark bit was clear.
func (h *Heap) Free(hdr *Header) {
	h.unlink(hdr)
	h.AllocatedBytes -= uint64(hdr.size)
	h.AllocatedObjs--
}
