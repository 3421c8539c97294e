// Package object implements every concrete heap kind of spec.md §3.3 on
// top of internal/heap's header/type-table protocol, plus the string
// interner and StringBuilder of §4.5. Each file registers its own kind's
// TypeDescriptor from an init() function, the Go equivalent of populating
// the per-kind function-pointer table design note §9 calls for.
package object

import (
	"math"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Undefined and Boolean are heap singletons per Context (spec.md §3.3),
// even though Null itself is the immediate all-zero word (spec.md §3.1).
// Undefined must never escape to user code; observing one is fatal
// (value.ErrUndefinedObserved).

type undefinedObj struct {
	hdr heap.Header
}

type booleanObj struct {
	hdr heap.Header
	v   bool
}

type stopIterationObj struct {
	hdr heap.Header
}

func init() {
	heap.RegisterType(value.KindUndefined, &heap.TypeDescriptor{})
	heap.RegisterType(value.KindBoolean, &heap.TypeDescriptor{})
	heap.RegisterType(value.KindStopIteration, &heap.TypeDescriptor{})
}

// NewUndefined allocates the single Undefined instance a Context keeps.
func NewUndefined(h *heap.Heap) value.Value {
	o := heap.AllocateFixed[undefinedObj](h, value.KindUndefined, 8)
	return o.hdr.AsValue()
}

// NewStopIteration allocates the single stop-iteration sentinel a Context
// keeps (spec.md §4.4 root set; GLOSSARY "Stop-iteration").
func NewStopIteration(h *heap.Heap) value.Value {
	o := heap.AllocateFixed[stopIterationObj](h, value.KindStopIteration, 8)
	return o.hdr.AsValue()
}

// NewBoolean allocates one Boolean singleton. A Context allocates exactly
// two (true and false) at startup.
func NewBoolean(h *heap.Heap, v bool) value.Value {
	o := heap.AllocateFixed[booleanObj](h, value.KindBoolean, 16)
	o.v = v
	return o.hdr.AsValue()
}

// BoolValue reads the payload of a Boolean object. v must be a Boolean.
func BoolValue(v value.Value) bool {
	return (*booleanObj)(ptrOf(v)).v
}

// Integer is a 64-bit signed integer, heap-allocated only when the value
// does not fit in an embedded SmallInteger (spec.md §3.3).
type Integer struct {
	hdr heap.Header
	n   int64
}

func init() {
	heap.RegisterType(value.KindInteger, &heap.TypeDescriptor{})
}

// NewInteger returns a SmallInteger immediate when n fits, otherwise a
// heap Integer. This is the factory spec.md §6 names Context.get_integer.
func NewInteger(h *heap.Heap, n int64) value.Value {
	if v, ok := value.TryNewSmallInt(n); ok {
		return v
	}
	o := heap.AllocateFixed[Integer](h, value.KindInteger, 16)
	o.n = n
	return o.hdr.AsValue()
}

// IntegerValue extracts the i64 payload of a SmallInteger or a heap
// Integer. v must be one of those two kinds.
func IntegerValue(v value.Value) int64 {
	if v.IsSmallInt() {
		return v.SmallInt()
	}
	return (*Integer)(ptrOf(v)).n
}

// IsIntegerLike reports whether v is a SmallInteger or heap Integer.
func IsIntegerLike(v value.Value) bool {
	k := heap.KindOf(v)
	return k == value.KindSmallInteger || k == value.KindInteger
}

// Float is a 64-bit IEEE-754 value (spec.md §3.3).
type Float struct {
	hdr heap.Header
	f   float64
}

func init() {
	heap.RegisterType(value.KindFloat, &heap.TypeDescriptor{})
}

// NewFloat allocates a heap Float.
func NewFloat(h *heap.Heap, f float64) value.Value {
	o := heap.AllocateFixed[Float](h, value.KindFloat, 16)
	o.f = f
	return o.hdr.AsValue()
}

// FloatValue extracts the f64 payload. v must be a Float.
func FloatValue(v value.Value) float64 {
	return (*Float)(ptrOf(v)).f
}

// ConvertFloat widens any numeric Value (SmallInteger, Integer or Float)
// to float64, for mixed arithmetic (spec.md §4.1: "mixing with Float
// widens to Float").
func ConvertFloat(v value.Value) (float64, bool) {
	switch heap.KindOf(v) {
	case value.KindSmallInteger, value.KindInteger:
		return float64(IntegerValue(v)), true
	case value.KindFloat:
		return FloatValue(v), true
	default:
		return math.NaN(), false
	}
}
