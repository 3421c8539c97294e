// Package typesys resolves spec.md §4.11's per-type operations — indexing
// (load_index/store_index), member access (load_member/store_member) and
// method dispatch (load_method) — the Go analogue of
// original_source/src/tiro/vm/types.cpp's TypeSystem, switching on
// value.Kind instead of virtual dispatch.
package typesys

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
)

// Table holds the method set for every Kind that has native methods
// (builtins like String.len, Array.push, HashTable.remove — spec.md §4.5's
// built-in member functions). DynamicObject additionally carries its own
// per-instance fields, consulted before falling back to Table.
type Table struct {
	byKind map[value.Kind]map[string]value.Value
}

// New creates an empty table.
func New() *Table {
	return &Table{byKind: make(map[value.Kind]map[string]value.Value)}
}

// Register installs fn as Kind k's method named name.
func (t *Table) Register(k value.Kind, name string, fn value.Value) {
	m, ok := t.byKind[k]
	if !ok {
		m = make(map[string]value.Value)
		t.byKind[k] = m
	}
	m[name] = fn
}

// ResolveMethod implements interp.MethodResolver. A DynamicObject's own
// fields shadow the kind-level table, so user-defined records can
// override or simply provide methods the builtin table has no entry for.
func (t *Table) ResolveMethod(receiver value.Value, name value.Value) (value.Value, bool) {
	k := heap.KindOf(receiver)
	if k == value.KindDynamicObject {
		if fn, ok := object.DynamicGet(receiver, name); ok {
			return fn, true
		}
	}
	m, ok := t.byKind[k]
	if !ok {
		return value.Null, false
	}
	fn, ok := m[symbolString(name)]
	return fn, ok
}

func symbolString(sym value.Value) string {
	if heap.KindOf(sym) != value.KindSymbol {
		return ""
	}
	return string(object.StringBytes(object.SymbolName(sym)))
}

// indexInt extracts an integer index operand, the Go analogue of
// original_source's try_extract_integer.
func indexInt(v value.Value) (int, bool) {
	if !object.IsIntegerLike(v) {
		return 0, false
	}
	return int(object.IntegerValue(v)), true
}

// LoadIndex implements spec.md §4.11's load_index, grounded directly on
// original_source/src/tiro/vm/types.cpp:148 (TypeSystem::load_index):
// Array/Tuple/Buffer require an integer index within bounds, HashTable
// indexing is a plain get that yields Null rather than failing on a
// missing key.
func (t *Table) LoadIndex(h *heap.Heap, receiver, index value.Value) (value.Value, error) {
	switch heap.KindOf(receiver) {
	case value.KindArray:
		i, ok := indexInt(index)
		if !ok {
			return value.Null, value.ErrTypeMismatch("array index", heap.KindOf(index))
		}
		n := object.ArrayLen(receiver)
		if i < 0 || i >= n {
			return value.Null, value.ErrIndexOutOfBounds(i, n)
		}
		return object.ArrayGet(receiver, i), nil

	case value.KindTuple:
		i, ok := indexInt(index)
		if !ok {
			return value.Null, value.ErrTypeMismatch("tuple index", heap.KindOf(index))
		}
		n := object.TupleLen(receiver)
		if i < 0 || i >= n {
			return value.Null, value.ErrIndexOutOfBounds(i, n)
		}
		return object.TupleGet(receiver, i), nil

	case value.KindBuffer:
		i, ok := indexInt(index)
		if !ok {
			return value.Null, value.ErrTypeMismatch("buffer index", heap.KindOf(index))
		}
		n := object.BufferLen(receiver)
		if i < 0 || i >= n {
			return value.Null, value.ErrIndexOutOfBounds(i, n)
		}
		return object.NewInteger(h, int64(object.BufferBytes(receiver)[i])), nil

	case value.KindHashTable:
		if v, ok := object.HashTableGet(receiver, index); ok {
			return v, nil
		}
		return value.Null, nil

	default:
		return value.Null, value.ErrNotIndexable(heap.KindOf(receiver))
	}
}

// StoreIndex implements spec.md §4.11's store_index, grounded on
// original_source/src/tiro/vm/types.cpp:212 (TypeSystem::store_index).
func (t *Table) StoreIndex(h *heap.Heap, receiver, index, val value.Value) error {
	switch heap.KindOf(receiver) {
	case value.KindArray:
		i, ok := indexInt(index)
		if !ok {
			return value.ErrTypeMismatch("array index", heap.KindOf(index))
		}
		n := object.ArrayLen(receiver)
		if i < 0 || i >= n {
			return value.ErrIndexOutOfBounds(i, n)
		}
		object.ArraySet(receiver, i, val)
		return nil

	case value.KindTuple:
		i, ok := indexInt(index)
		if !ok {
			return value.ErrTypeMismatch("tuple index", heap.KindOf(index))
		}
		n := object.TupleLen(receiver)
		if i < 0 || i >= n {
			return value.ErrIndexOutOfBounds(i, n)
		}
		object.TupleSet(receiver, i, val)
		return nil

	case value.KindBuffer:
		i, ok := indexInt(index)
		if !ok {
			return value.ErrTypeMismatch("buffer index", heap.KindOf(index))
		}
		b, ok := indexInt(val)
		if !ok || b < 0 || b > 0xff {
			return value.ErrTypeMismatch("buffer byte value", heap.KindOf(val))
		}
		n := object.BufferLen(receiver)
		if i < 0 || i >= n {
			return value.ErrIndexOutOfBounds(i, n)
		}
		object.BufferBytes(receiver)[i] = byte(b)
		return nil

	case value.KindHashTable:
		object.HashTableSet(h, receiver, index, val)
		return nil

	default:
		return value.ErrNotIndexAssignable(heap.KindOf(receiver))
	}
}

// LoadMember implements spec.md §4.11's load_member, grounded on
// original_source/src/tiro/vm/types.cpp:284: only Module (its exported
// table) and DynamicObject (its own fields) support named-member access
// directly; every other type only exposes members through LoadMethod's
// per-Kind table.
func (t *Table) LoadMember(receiver, member value.Value) (value.Value, bool) {
	switch heap.KindOf(receiver) {
	case value.KindModule:
		return object.ModuleResolve(receiver, member)
	case value.KindDynamicObject:
		return object.DynamicGet(receiver, member)
	default:
		return value.Null, false
	}
}

// StoreMember implements spec.md §4.11's store_member, grounded on
// original_source/src/tiro/vm/types.cpp:303: a Module's exported table is
// read-only (always reports unsupported), only DynamicObject fields are
// writable.
func (t *Table) StoreMember(h *heap.Heap, receiver, member, val value.Value) bool {
	if heap.KindOf(receiver) != value.KindDynamicObject {
		return false
	}
	object.DynamicSet(h, receiver, member, val)
	return true
}
