package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Code is an immutable bytecode sequence plus its constant pool (spec.md
// §4.10, §6): the instructions a FunctionTemplate runs. Split out as its
// own heap kind, mirroring original_source's separation of code from the
// template that names it, so that two templates can in principle share one
// Code object (not exercised by the loader yet, but kept for fidelity).
type Code struct {
	hdr          heap.Header
	instructions []byte
	constants    value.Value // Array of Values (literals referenced by LOAD_CONST)
}

func init() {
	heap.RegisterType(value.KindCode, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			visit((*Code)(asPointer(h)).constants)
		},
	})
}

// NewCode allocates a Code object over instructions (copied) and
// constants (an already-populated Array).
func NewCode(h *heap.Heap, instructions []byte, constants value.Value) value.Value {
	o := heap.AllocateFixed[Code](h, value.KindCode, uintptr(24+len(instructions)))
	o.instructions = append([]byte(nil), instructions...)
	o.constants = constants
	return o.hdr.AsValue()
}

func codeOf(v value.Value) *Code { return (*Code)(ptrOf(v)) }

// CodeInstructions returns the instruction bytes.
func CodeInstructions(v value.Value) []byte { return codeOf(v).instructions }

// CodeConstant returns the literal at idx in the constant pool.
func CodeConstant(v value.Value, idx int) value.Value {
	return ArrayGet(codeOf(v).constants, idx)
}
