package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Interner canonicalizes byte content into a single Symbol per distinct
// string, backed by a plain HashTable keyed on String content (spec.md
// §4.5's intern_string / get_symbol). A Context owns exactly one Interner.
type Interner struct {
	table value.Value // HashTable String -> Symbol
}

// NewInterner allocates the backing HashTable and wraps it.
func NewInterner(h *heap.Heap) *Interner {
	return &Interner{table: NewHashTable(h)}
}

// WalkRoots exposes the interner's table as a GC root: every live Symbol
// (and the String it owns) must stay reachable even if user code has
// dropped every other reference, since get_symbol always returns the same
// Symbol for the same content.
func (in *Interner) WalkRoots(visit func(*value.Value)) {
	visit(&in.table)
}

// Intern returns the canonical Symbol for s, allocating a new interned
// String and Symbol on first sight.
func (in *Interner) Intern(h *heap.Heap, s []byte) value.Value {
	lookup := NewString(h, s)
	if existing, ok := HashTableGet(in.table, lookup); ok {
		return existing
	}
	markInterned(lookup)
	sym := NewSymbol(h, lookup)
	HashTableSet(h, in.table, lookup, sym)
	return sym
}
