package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// String is an immutable byte sequence (spec.md §3.3, §4.5). The runtime is
// byte-neutral; UTF-8 is a convention imposed by callers, not enforced
// here. interned strings cache their hash alongside the interned flag so
// that hashing an interned string never re-walks its bytes.
type String struct {
	hdr      heap.Header
	bytes    []byte
	hash     uint64
	interned bool
}

func init() {
	heap.RegisterType(value.KindString, &heap.TypeDescriptor{})
}

// NewString allocates a new, uninterned String copying s.
func NewString(h *heap.Heap, s []byte) value.Value {
	o := heap.AllocateFixed[String](h, value.KindString, uintptr(24+len(s)))
	o.bytes = append([]byte(nil), s...)
	o.hash = fnv64(o.bytes)
	return o.hdr.AsValue()
}

// StringBytes returns the immutable byte content of v. v must be a String.
func StringBytes(v value.Value) []byte {
	return (*String)(ptrOf(v)).bytes
}

// StringHash returns the cached hash of v (computed once, at construction).
func StringHash(v value.Value) uint64 {
	return (*String)(ptrOf(v)).hash
}

// IsInterned reports whether v has been canonicalized by the interner.
func IsInterned(v value.Value) bool {
	return (*String)(ptrOf(v)).interned
}

func markInterned(v value.Value) {
	(*String)(ptrOf(v)).interned = true
}

// fnv64 is the cached-hash function for String content: a plain FNV-1a,
// chosen because it is the textbook "fast, good-enough, no third-party
// dependency warranted" string hash — spec.md §4.1 only requires that the
// same content hash the same way every time, not any specific algorithm.
func fnv64(b []byte) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}
