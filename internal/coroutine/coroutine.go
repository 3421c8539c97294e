package coroutine

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// State is one of the five coroutine states of spec.md §4.9.
type State uint8

const (
	StateNew State = iota
	StateReady
	StateRunning
	StateWaiting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateDone:
		return "done"
	default:
		return "invalid"
	}
}

// Coroutine is a suspendable call stack plus the bookkeeping the
// scheduler needs to drive it (spec.md §4.9, §5). Next links the ready
// queue's intrusive singly-linked list; it is Null whenever the coroutine
// is not currently enqueued.
type Coroutine struct {
	hdr      heap.Header
	stack    value.Value
	function value.Value
	state    State
	result   value.Value
	err      error // non-nil iff the coroutine finished by failing
	next     value.Value
	resume   value.Value // value handed back by sched.Resume, consumed by interp on the next Step
}

func init() {
	heap.RegisterType(value.KindCoroutine, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			c := (*Coroutine)(asPointer(h))
			visit(c.stack)
			visit(c.function)
			if !c.result.IsNull() {
				visit(c.result)
			}
			if !c.next.IsNull() {
				visit(c.next)
			}
			if !c.resume.IsNull() {
				visit(c.resume)
			}
		},
	})
}

// New allocates a coroutine in the New state, ready to be started with
// function as its entry point (a Function, BoundMethod, NativeFunction or
// NativeAsyncFunction).
func New(h *heap.Heap, function value.Value) value.Value {
	o := heap.AllocateFixed[Coroutine](h, value.KindCoroutine, 56)
	o.stack = NewCoroutineStack(h)
	o.function = function
	o.state = StateNew
	o.result = value.Null
	o.next = value.Null
	return o.hdr.AsValue()
}

func coroutineOf(v value.Value) *Coroutine { return (*Coroutine)(ptrOf(v)) }

func Stack(v value.Value) value.Value    { return coroutineOf(v).stack }
func Function(v value.Value) value.Value { return coroutineOf(v).function }
func CurrentState(v value.Value) State   { return coroutineOf(v).state }

// SetState transitions the coroutine's state. Transition legality is
// enforced by internal/sched, which is the only caller; Coroutine itself
// is a plain state holder.
func SetState(v value.Value, s State) { coroutineOf(v).state = s }

// Result returns the final value and, if the coroutine failed, the error
// that caused it, once StateDone.
func Result(v value.Value) (value.Value, error) {
	c := coroutineOf(v)
	return c.result, c.err
}

// Finish records the coroutine's outcome and transitions it to Done. A
// nil err means the coroutine returned result successfully.
func Finish(v value.Value, result value.Value, err error) {
	c := coroutineOf(v)
	c.result, c.err = result, err
	c.state = StateDone
}

// Next returns the ready-queue successor link, or value.Null.
func Next(v value.Value) value.Value { return coroutineOf(v).next }

// SetNext sets the ready-queue successor link.
func SetNext(v value.Value, next value.Value) { coroutineOf(v).next = next }

// SetResumeValue stashes the value an async call resumed with, for
// interp to consume the next time this coroutine steps.
func SetResumeValue(v value.Value, resumed value.Value) { coroutineOf(v).resume = resumed }

// TakeResumeValue reads and clears the stashed resume value.
func TakeResumeValue(v value.Value) value.Value {
	c := coroutineOf(v)
	r := c.resume
	c.resume = value.Null
	return r
}
