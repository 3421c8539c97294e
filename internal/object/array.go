package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// ArrayStorage is the backing buffer an Array grows into, split out as its
// own heap kind the same way HashTable splits into HashTableStorage
// (spec.md §3.3: "Array ... delegates its storage to a separate
// ArrayStorage object so that growth can replace the buffer without
// changing the Array's own identity").
type ArrayStorage struct {
	hdr  heap.Header
	elts []value.Value
}

func init() {
	heap.RegisterType(value.KindArrayStorage, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			for _, v := range (*ArrayStorage)(asPointer(h)).elts {
				visit(v)
			}
		},
	})
}

func newArrayStorage(h *heap.Heap, capacity int) value.Value {
	o := heap.AllocateFixed[ArrayStorage](h, value.KindArrayStorage, uintptr(24+8*capacity))
	o.elts = make([]value.Value, 0, capacity)
	return o.hdr.AsValue()
}

func arrayStorageOf(v value.Value) *ArrayStorage { return (*ArrayStorage)(ptrOf(v)) }

const arrayInitialCapacity = 4

// Array is a growable, order-preserving sequence of Values (spec.md §3.3).
type Array struct {
	hdr     heap.Header
	storage value.Value // Null until first append
}

func init() {
	heap.RegisterType(value.KindArray, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			a := (*Array)(asPointer(h))
			if !a.storage.IsNull() {
				visit(a.storage)
			}
		},
	})
}

// NewArray allocates an empty Array.
func NewArray(h *heap.Heap) value.Value {
	o := heap.AllocateFixed[Array](h, value.KindArray, 16)
	o.storage = value.Null
	return o.hdr.AsValue()
}

func arrayOf(v value.Value) *Array { return (*Array)(ptrOf(v)) }

// ArrayLen returns the element count.
func ArrayLen(v value.Value) int {
	a := arrayOf(v)
	if a.storage.IsNull() {
		return 0
	}
	return len(arrayStorageOf(a.storage).elts)
}

// ArrayGet returns the element at i.
func ArrayGet(v value.Value, i int) value.Value {
	return arrayStorageOf(arrayOf(v).storage).elts[i]
}

// ArraySet overwrites the element at i.
func ArraySet(v value.Value, i int, elt value.Value) {
	arrayStorageOf(arrayOf(v).storage).elts[i] = elt
}

// ArrayPush appends elt, doubling the backing storage when full (spec.md
// §4.4's amortized-growth requirement, same doubling rule as
// CoroutineStack and StringBuilder).
func ArrayPush(h *heap.Heap, v value.Value, elt value.Value) {
	a := arrayOf(v)
	if a.storage.IsNull() {
		a.storage = newArrayStorage(h, arrayInitialCapacity)
	}
	storage := arrayStorageOf(a.storage)
	if len(storage.elts) == cap(storage.elts) {
		grown := newArrayStorage(h, cap(storage.elts)*2)
		grownStorage := arrayStorageOf(grown)
		grownStorage.elts = append(grownStorage.elts, storage.elts...)
		a.storage = grown
		storage = grownStorage
	}
	storage.elts = append(storage.elts, elt)
}

// ArrayPop removes and returns the last element.
func ArrayPop(v value.Value) value.Value {
	storage := arrayStorageOf(arrayOf(v).storage)
	n := len(storage.elts)
	last := storage.elts[n-1]
	storage.elts = storage.elts[:n-1]
	return last
}

// ArrayClear removes every element without shrinking capacity.
func ArrayClear(v value.Value) {
	a := arrayOf(v)
	if a.storage.IsNull() {
		return
	}
	storage := arrayStorageOf(a.storage)
	storage.elts = storage.elts[:0]
}
