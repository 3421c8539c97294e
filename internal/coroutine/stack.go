// Package coroutine implements the bytecode call stack and the coroutine
// state machine it backs (spec.md §4.9): New -> Ready -> Running ->
// {Ready, Done, Waiting}. original_source lays frames out in a single raw
// byte arena and rewrites frame-chain pointers whenever that arena grows;
// Go gives slices no stable interior pointers across a grow, so frames
// here address each other and the value stack by integer offset instead
// of by pointer — offsets survive a re-slice, pointers would not. This is
// the one place the port deliberately departs from the original's byte
// layout while keeping its semantics (same states, same amortized-growth
// rule, same frame-chain shape).
package coroutine

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// FrameKind distinguishes a user bytecode frame from the sentinel frame
// pushed while a coroutine is blocked on an async native call.
type FrameKind uint8

const (
	FrameUser FrameKind = iota
	FrameAsync
)

// Frame is one activation record. localsBase/localCount index into the
// owning CoroutineStack's values slice; they are offsets, never pointers,
// so they stay valid no matter how many times values grows underneath
// them.
type Frame struct {
	Kind        FrameKind
	Template    value.Value // FunctionTemplate, for FrameUser
	Environment value.Value
	Module      value.Value
	Function    value.Value // the callee Value (Function/BoundMethod/Native*), for diagnostics
	PC          int
	LocalsBase  int
	LocalCount  int
}

const valuesInitialCapacity = 64

// CoroutineStack is the frame chain plus the contiguous value stack all
// of a coroutine's frames share (spec.md §4.9).
type CoroutineStack struct {
	hdr    heap.Header
	frames []Frame
	values []value.Value
}

func init() {
	heap.RegisterType(value.KindCoroutineStack, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			s := (*CoroutineStack)(asPointer(h))
			for _, f := range s.frames {
				if !f.Template.IsNull() {
					visit(f.Template)
				}
				if !f.Environment.IsNull() {
					visit(f.Environment)
				}
				if !f.Module.IsNull() {
					visit(f.Module)
				}
				if !f.Function.IsNull() {
					visit(f.Function)
				}
			}
			for _, v := range s.values {
				visit(v)
			}
		},
	})
}

// NewCoroutineStack allocates an empty stack.
func NewCoroutineStack(h *heap.Heap) value.Value {
	o := heap.AllocateFixed[CoroutineStack](h, value.KindCoroutineStack, 48)
	o.frames = nil
	o.values = make([]value.Value, 0, valuesInitialCapacity)
	return o.hdr.AsValue()
}

func stackOf(v value.Value) *CoroutineStack { return (*CoroutineStack)(ptrOf(v)) }

// PushFrame reserves localCount value-stack slots (zeroed to Null) for a
// new frame and returns its index. The value slice grows by doubling, the
// same amortized rule used by Array/StringBuilder.
func PushFrame(sv value.Value, kind FrameKind, template, environment, module, function value.Value, localCount int) int {
	s := stackOf(sv)
	base := len(s.values)
	needed := base + localCount
	if needed > cap(s.values) {
		newCap := cap(s.values)
		if newCap == 0 {
			newCap = valuesInitialCapacity
		}
		for newCap < needed {
			newCap *= 2
		}
		grown := make([]value.Value, len(s.values), newCap)
		copy(grown, s.values)
		s.values = grown
	}
	s.values = s.values[:needed]
	for i := base; i < needed; i++ {
		s.values[i] = value.Null
	}
	s.frames = append(s.frames, Frame{
		Kind:        kind,
		Template:    template,
		Environment: environment,
		Module:      module,
		Function:    function,
		LocalsBase:  base,
		LocalCount:  localCount,
	})
	return len(s.frames) - 1
}

// PopFrame discards the top frame and its value-stack slots.
func PopFrame(sv value.Value) {
	s := stackOf(sv)
	top := &s.frames[len(s.frames)-1]
	s.values = s.values[:top.LocalsBase]
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of live frames.
func Depth(sv value.Value) int { return len(stackOf(sv).frames) }

// FrameAt returns a pointer to frame i (0 is the oldest/bottom frame),
// live until the next PushFrame/PopFrame reallocates s.frames.
func FrameAt(sv value.Value, i int) *Frame { return &stackOf(sv).frames[i] }

// TopFrame returns the currently executing frame.
func TopFrame(sv value.Value) *Frame {
	s := stackOf(sv)
	return &s.frames[len(s.frames)-1]
}

// Local reads local slot i of the given frame.
func Local(sv value.Value, f *Frame, i int) value.Value {
	return stackOf(sv).values[f.LocalsBase+i]
}

// SetLocal writes local slot i of the given frame.
func SetLocal(sv value.Value, f *Frame, i int, v value.Value) {
	stackOf(sv).values[f.LocalsBase+i] = v
}

// Push appends v to the operand stack above the currently executing
// frame's locals. The caller must already have pushed that frame, so
// there is always at least one local region below the operand stack.
func Push(sv value.Value, v value.Value) {
	s := stackOf(sv)
	s.values = append(s.values, v)
}

// Pop removes and returns the top of the operand stack.
func Pop(sv value.Value) value.Value {
	s := stackOf(sv)
	n := len(s.values) - 1
	v := s.values[n]
	s.values = s.values[:n]
	return v
}

// PopN removes and returns the top n operand-stack values, oldest first.
func PopN(sv value.Value, n int) []value.Value {
	s := stackOf(sv)
	base := len(s.values) - n
	out := append([]value.Value(nil), s.values[base:]...)
	s.values = s.values[:base]
	return out
}

// Peek returns the top of the operand stack without removing it.
func Peek(sv value.Value) value.Value {
	s := stackOf(sv)
	return s.values[len(s.values)-1]
}
