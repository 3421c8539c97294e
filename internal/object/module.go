package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Module is a loaded compilation unit's runtime namespace (spec.md §6):
// a name, a dense member array materialized by internal/loader from a
// compiled.Module, and the subset of member indices exported under a
// public name.
type Module struct {
	hdr     heap.Header
	name    value.Value // Symbol
	members value.Value // Array of Values, index == compiled member index
	exports value.Value // HashTable Symbol -> SmallInteger member index
}

func init() {
	heap.RegisterType(value.KindModule, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			m := (*Module)(asPointer(h))
			visit(m.name)
			visit(m.members)
			visit(m.exports)
		},
	})
}

// NewModule allocates an empty Module. The loader fills members/exports
// as it instantiates a compiled.Module's member table.
func NewModule(h *heap.Heap, name value.Value) value.Value {
	o := heap.AllocateFixed[Module](h, value.KindModule, 40)
	o.name = name
	o.members = NewArray(h)
	o.exports = NewHashTable(h)
	return o.hdr.AsValue()
}

func moduleOf(v value.Value) *Module { return (*Module)(ptrOf(v)) }

// ModuleName returns the Module's Symbol name.
func ModuleName(v value.Value) value.Value { return moduleOf(v).name }

// ModuleSetName sets the Module's Symbol name, used by internal/loader
// once it has materialized enough members to resolve the name reference.
func ModuleSetName(v value.Value, name value.Value) { moduleOf(v).name = name }

// ModuleDefine appends a new member, returning its index.
func ModuleDefine(h *heap.Heap, v value.Value, member value.Value) int {
	m := moduleOf(v)
	idx := ArrayLen(m.members)
	ArrayPush(h, m.members, member)
	return idx
}

// ModuleMember returns the member at idx.
func ModuleMember(v value.Value, idx int) value.Value {
	return ArrayGet(moduleOf(v).members, idx)
}

// ModuleSetMember overwrites the member at idx in place (used to patch in
// a Function once its Environment is known, and by OpStoreModuleMember).
func ModuleSetMember(v value.Value, idx int, member value.Value) {
	ArraySet(moduleOf(v).members, idx, member)
}

// ModuleExport records that name resolves to member index idx.
func ModuleExport(h *heap.Heap, v value.Value, name value.Value, idx int) {
	m := moduleOf(v)
	HashTableSet(h, m.exports, name, value.NewSmallInt(int64(idx)))
}

// ModuleResolve looks up an exported name, returning its member Value.
func ModuleResolve(v value.Value, name value.Value) (value.Value, bool) {
	m := moduleOf(v)
	idxVal, ok := HashTableGet(m.exports, name)
	if !ok {
		return value.Null, false
	}
	return ArrayGet(m.members, int(IntegerValue(idxVal))), true
}
