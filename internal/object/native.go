package object

import (
	"unsafe"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// NativeContext is the minimal capability a native function body needs:
// enough of *vm.Context to allocate results, without internal/object
// importing internal/vm (which itself imports internal/object). The api
// package's Frame/AsyncFrame types are thin, richer wrappers a Context
// hands to native bodies; they satisfy this interface by embedding one.
type NativeContext interface {
	Heap() *heap.Heap
}

// NativeFunc is the signature of a synchronous host function bridged into
// the language (spec.md §6).
type NativeFunc func(ctx NativeContext, args []value.Value) (value.Value, error)

// AsyncResume is the callback an AsyncNativeFunc invokes once its
// underlying host operation completes, handing control back to the
// scheduler (spec.md §4.9's async native-call bridge).
type AsyncResume func(result value.Value, err error)

// AsyncNativeFunc is the signature of an asynchronous host function: it
// returns immediately having arranged for resume to be called later,
// parking the calling coroutine in the Waiting state.
type AsyncNativeFunc func(ctx NativeContext, args []value.Value, resume AsyncResume)

// NativeFunction wraps a Go function as a callable Value.
type NativeFunction struct {
	hdr  heap.Header
	name value.Value // Symbol, or Null
	fn   NativeFunc
}

func init() {
	heap.RegisterType(value.KindNativeFunction, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			n := (*NativeFunction)(asPointer(h))
			if !n.name.IsNull() {
				visit(n.name)
			}
		},
	})
}

// NewNativeFunction allocates a callable wrapping fn.
func NewNativeFunction(h *heap.Heap, name value.Value, fn NativeFunc) value.Value {
	o := heap.AllocateFixed[NativeFunction](h, value.KindNativeFunction, 32)
	o.name, o.fn = name, fn
	return o.hdr.AsValue()
}

// CallNative invokes the wrapped Go function. v must be a NativeFunction.
func CallNative(v value.Value, ctx NativeContext, args []value.Value) (value.Value, error) {
	return (*NativeFunction)(ptrOf(v)).fn(ctx, args)
}

// NativeAsyncFunction wraps an AsyncNativeFunc as a callable Value.
type NativeAsyncFunction struct {
	hdr  heap.Header
	name value.Value
	fn   AsyncNativeFunc
}

func init() {
	heap.RegisterType(value.KindNativeAsyncFunction, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			n := (*NativeAsyncFunction)(asPointer(h))
			if !n.name.IsNull() {
				visit(n.name)
			}
		},
	})
}

// NewNativeAsyncFunction allocates a callable wrapping fn.
func NewNativeAsyncFunction(h *heap.Heap, name value.Value, fn AsyncNativeFunc) value.Value {
	o := heap.AllocateFixed[NativeAsyncFunction](h, value.KindNativeAsyncFunction, 32)
	o.name, o.fn = name, fn
	return o.hdr.AsValue()
}

// CallNativeAsync invokes the wrapped async Go function. v must be a
// NativeAsyncFunction.
func CallNativeAsync(v value.Value, ctx NativeContext, args []value.Value, resume AsyncResume) {
	(*NativeAsyncFunction)(ptrOf(v)).fn(ctx, args, resume)
}

// NativeObject embeds an arbitrary host Go value inside the language's
// heap, with an optional finalizer run when the collector sweeps it
// (spec.md §3.3 "opaque host handles"). Like the other reference-free
// kinds it has no Walk: a host value's internals are the host's problem,
// never the collector's.
type NativeObject struct {
	hdr      heap.Header
	data     any
	finalize func(any)
}

func init() {
	heap.RegisterType(value.KindNativeObject, &heap.TypeDescriptor{
		Finalize: func(h *heap.Header) {
			n := (*NativeObject)(asPointer(h))
			if n.finalize != nil {
				n.finalize(n.data)
			}
		},
	})
}

// NewNativeObject allocates a host handle wrapping data. finalize may be
// nil.
func NewNativeObject(h *heap.Heap, data any, finalize func(any)) value.Value {
	o := heap.AllocateFixed[NativeObject](h, value.KindNativeObject, 40)
	o.data, o.finalize = data, finalize
	return o.hdr.AsValue()
}

// NativeObjectData returns the wrapped host value. v must be a NativeObject.
func NativeObjectData(v value.Value) any {
	return (*NativeObject)(ptrOf(v)).data
}

// NativePointer embeds a raw host pointer (spec.md §3.3), kept distinct
// from NativeObject because it carries no finalizer and no boxed
// interface — just an address and a caller-assigned tag used to recover
// the pointee's static type on the host side.
type NativePointer struct {
	hdr heap.Header
	ptr unsafe.Pointer
	tag uint32
}

func init() {
	heap.RegisterType(value.KindNativePointer, &heap.TypeDescriptor{})
}

// NewNativePointer allocates a raw pointer handle.
func NewNativePointer(h *heap.Heap, ptr unsafe.Pointer, tag uint32) value.Value {
	o := heap.AllocateFixed[NativePointer](h, value.KindNativePointer, 24)
	o.ptr, o.tag = ptr, tag
	return o.hdr.AsValue()
}

// NativePointerValue returns the raw pointer and its tag. v must be a
// NativePointer.
func NativePointerValue(v value.Value) (unsafe.Pointer, uint32) {
	p := (*NativePointer)(ptrOf(v))
	return p.ptr, p.tag
}

// Method pairs a dispatch name with the callable it resolves to (spec.md
// §4.10's LoadMethod). internal/typesys's per-type method tables store the
// callable directly and do not use Method.
type Method struct {
	hdr      heap.Header
	name     value.Value // Symbol
	function value.Value
}

func init() {
	heap.RegisterType(value.KindMethod, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			m := (*Method)(asPointer(h))
			visit(m.name)
			visit(m.function)
		},
	})
}

// NewMethod allocates a method table entry.
func NewMethod(h *heap.Heap, name, function value.Value) value.Value {
	o := heap.AllocateFixed[Method](h, value.KindMethod, 24)
	o.name, o.function = name, function
	return o.hdr.AsValue()
}

func methodOf(v value.Value) *Method { return (*Method)(ptrOf(v)) }

func MethodName(v value.Value) value.Value     { return methodOf(v).name }
func MethodFunction(v value.Value) value.Value { return methodOf(v).function }
