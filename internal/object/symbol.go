package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Symbol is a unique name value backed by an interned String (spec.md
// §3.3, GLOSSARY). Two symbols are equal iff they are the same pointer;
// only the interner constructs new Symbols (via NewSymbol, called from
// object.Interner.Intern).
type Symbol struct {
	hdr    heap.Header
	name   value.Value // the owning, interned String
	hash   uint64      // cached: the owning String's hash, reused for pointer-hash-free lookups
}

func init() {
	heap.RegisterType(value.KindSymbol, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			visit((*Symbol)(asPointer(h)).name)
		},
	})
}

// NewSymbol allocates a new Symbol over name, an already-interned String.
// Called only by Interner.Intern.
func NewSymbol(h *heap.Heap, name value.Value) value.Value {
	o := heap.AllocateFixed[Symbol](h, value.KindSymbol, 24)
	o.name = name
	o.hash = StringHash(name)
	return o.hdr.AsValue()
}

// SymbolName returns the backing String of v. v must be a Symbol.
func SymbolName(v value.Value) value.Value {
	return (*Symbol)(ptrOf(v)).name
}

// SymbolHash returns the cached hash of v. v must be a Symbol.
func SymbolHash(v value.Value) uint64 {
	return (*Symbol)(ptrOf(v)).hash
}
