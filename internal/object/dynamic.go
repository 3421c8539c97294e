package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// DynamicObject is a record with an open, runtime-extensible set of named
// fields (spec.md §3.3), backed by a plain HashTable keyed by Symbol. It
// has no fixed layout, unlike the compiled member tables of Module/Code.
type DynamicObject struct {
	hdr    heap.Header
	fields value.Value // HashTable Symbol -> Value
}

func init() {
	heap.RegisterType(value.KindDynamicObject, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			visit((*DynamicObject)(asPointer(h)).fields)
		},
	})
}

// NewDynamicObject allocates an empty DynamicObject.
func NewDynamicObject(h *heap.Heap) value.Value {
	o := heap.AllocateFixed[DynamicObject](h, value.KindDynamicObject, 24)
	o.fields = NewHashTable(h)
	return o.hdr.AsValue()
}

func dynamicOf(v value.Value) *DynamicObject { return (*DynamicObject)(ptrOf(v)) }

// DynamicGet reads field name, returning ok=false if absent.
func DynamicGet(v value.Value, name value.Value) (value.Value, bool) {
	return HashTableGet(dynamicOf(v).fields, name)
}

// DynamicSet writes field name.
func DynamicSet(h *heap.Heap, v value.Value, name, val value.Value) {
	HashTableSet(h, dynamicOf(v).fields, name, val)
}

// DynamicHas reports whether field name is present.
func DynamicHas(v value.Value, name value.Value) bool {
	return HashTableContains(dynamicOf(v).fields, name)
}
