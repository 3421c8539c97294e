// Package api is the native-function contract of spec.md §6: the shape a
// host-provided Go function must have to be callable from Tiro code,
// wrapping internal/object's lower-level NativeFunc/AsyncNativeFunc
// signatures in a friendlier Frame/AsyncFrame argument accessor.
package api

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
)

// Frame is what a synchronous native function body sees: its arguments
// and enough of the owning Context to allocate results.
type Frame struct {
	ctx  object.NativeContext
	args []value.Value
}

// Arg returns argument i. Out-of-range access panics, the same as a
// slice index — a native function is expected to check NumArgs itself
// when its arity is variable.
func (f *Frame) Arg(i int) value.Value { return f.args[i] }

// NumArgs returns the argument count.
func (f *Frame) NumArgs() int { return len(f.args) }

// Heap returns the allocator backing the running Context.
func (f *Frame) Heap() *heap.Heap { return f.ctx.Heap() }

// Func is the friendlier shape api.Wrap adapts into an object.NativeFunc.
type Func func(f *Frame) (value.Value, error)

// Wrap adapts fn into the lower-level signature object.NewNativeFunction
// expects.
func Wrap(fn Func) object.NativeFunc {
	return func(ctx object.NativeContext, args []value.Value) (value.Value, error) {
		return fn(&Frame{ctx: ctx, args: args})
	}
}

// New allocates a callable Value wrapping fn, named name (a Symbol, or
// value.Null for an anonymous native function).
func New(h *heap.Heap, name value.Value, fn Func) value.Value {
	return object.NewNativeFunction(h, name, Wrap(fn))
}

// AsyncFrame is what an asynchronous native function body sees: the same
// argument access as Frame, plus Resume to deliver its eventual result
// back to the scheduler (spec.md §4.9's async native-call bridge).
type AsyncFrame struct {
	Frame
	resume object.AsyncResume
}

// Resume delivers result (or err) to the coroutine that is waiting on
// this call, moving it from Waiting back onto the ready queue. It must be
// called exactly once, synchronously or from another goroutine/callback.
func (f *AsyncFrame) Resume(result value.Value, err error) {
	f.resume(result, err)
}

// AsyncFunc is the friendlier shape api.WrapAsync adapts into an
// object.AsyncNativeFunc. It must arrange for af.Resume to be called
// eventually; it returns immediately without blocking the interpreter.
type AsyncFunc func(af *AsyncFrame)

// WrapAsync adapts fn into the lower-level signature
// object.NewNativeAsyncFunction expects.
func WrapAsync(fn AsyncFunc) object.AsyncNativeFunc {
	return func(ctx object.NativeContext, args []value.Value, resume object.AsyncResume) {
		fn(&AsyncFrame{Frame: Frame{ctx: ctx, args: args}, resume: resume})
	}
}

// NewAsync allocates a callable Value wrapping fn.
func NewAsync(h *heap.Heap, name value.Value, fn AsyncFunc) value.Value {
	return object.NewNativeAsyncFunction(h, name, WrapAsync(fn))
}
