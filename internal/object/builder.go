package object

import (
	"fmt"
	"strconv"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// stringBuilderInitialCapacity is the first Buffer size a StringBuilder
// allocates on its first append (SPEC_FULL.md Supplemented feature).
const stringBuilderInitialCapacity = 64

// StringBuilder accumulates bytes for cheap repeated concatenation
// (spec.md §4.5), backed by a Buffer it grows by doubling.
type StringBuilder struct {
	hdr    heap.Header
	buffer value.Value // Null until first append
	length int
}

func init() {
	heap.RegisterType(value.KindStringBuilder, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			b := (*StringBuilder)(asPointer(h))
			if !b.buffer.IsNull() {
				visit(b.buffer)
			}
		},
	})
}

// NewStringBuilder allocates an empty StringBuilder.
func NewStringBuilder(h *heap.Heap) value.Value {
	o := heap.AllocateFixed[StringBuilder](h, value.KindStringBuilder, 24)
	o.buffer = value.Null
	return o.hdr.AsValue()
}

func builderOf(v value.Value) *StringBuilder { return (*StringBuilder)(ptrOf(v)) }

func (b *StringBuilder) ensureCapacity(h *heap.Heap, extra int) {
	if b.buffer.IsNull() {
		capacity := stringBuilderInitialCapacity
		for capacity < extra {
			capacity *= 2
		}
		b.buffer = NewBuffer(h, capacity)
		return
	}
	capacity := BufferLen(b.buffer)
	if b.length+extra <= capacity {
		return
	}
	for capacity < b.length+extra {
		capacity *= 2
	}
	grown := NewBuffer(h, capacity)
	copy(BufferBytes(grown), BufferBytes(b.buffer)[:b.length])
	b.buffer = grown
}

// StringBuilderAppend appends s, growing the backing Buffer by doubling
// whenever it would overflow.
func StringBuilderAppend(h *heap.Heap, v value.Value, s []byte) {
	b := builderOf(v)
	b.ensureCapacity(h, len(s))
	copy(BufferBytes(b.buffer)[b.length:], s)
	b.length += len(s)
}

// StringBuilderLen returns the number of bytes appended so far.
func StringBuilderLen(v value.Value) int {
	return builderOf(v).length
}

// StringBuilderBytes returns the accumulated content.
func StringBuilderBytes(v value.Value) []byte {
	b := builderOf(v)
	if b.buffer.IsNull() {
		return nil
	}
	return BufferBytes(b.buffer)[:b.length]
}

// StringBuilderClear resets the builder to empty without releasing its
// backing Buffer, matching Array/ArrayStorage's clear-without-shrink rule.
func StringBuilderClear(v value.Value) {
	builderOf(v).length = 0
}

// StringBuilderToString materializes the accumulated content as a new
// String.
func StringBuilderToString(h *heap.Heap, v value.Value) value.Value {
	return NewString(h, StringBuilderBytes(v))
}

// StringBuilderAppendValue renders v's display form and appends it,
// grounded on original_source's to_string(Context&, Handle<StringBuilder>,
// Handle<Value>) (value.cpp:240): primitives render their literal form,
// Symbol renders as "#name", everything else falls back to "Kind@addr".
func StringBuilderAppendValue(h *heap.Heap, builder, v value.Value) {
	switch heap.KindOf(v) {
	case value.KindNull:
		StringBuilderAppend(h, builder, []byte("null"))
	case value.KindUndefined:
		StringBuilderAppend(h, builder, []byte("undefined"))
	case value.KindBoolean:
		if BoolValue(v) {
			StringBuilderAppend(h, builder, []byte("true"))
		} else {
			StringBuilderAppend(h, builder, []byte("false"))
		}
	case value.KindSmallInteger, value.KindInteger:
		StringBuilderAppend(h, builder, []byte(strconv.FormatInt(IntegerValue(v), 10)))
	case value.KindFloat:
		StringBuilderAppend(h, builder, []byte(strconv.FormatFloat(FloatValue(v), 'g', -1, 64)))
	case value.KindString:
		StringBuilderAppend(h, builder, StringBytes(v))
	case value.KindSymbol:
		StringBuilderAppend(h, builder, []byte("#"))
		StringBuilderAppend(h, builder, StringBytes(SymbolName(v)))
	default:
		StringBuilderAppend(h, builder, []byte(fmt.Sprintf("%s@%p", heap.KindOf(v), ptrOf(v))))
	}
}
