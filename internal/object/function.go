package object

import (
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// FunctionTemplate is the immutable, shared part of a closure: its code,
// parameter/local counts and the module it was compiled in (spec.md §4.9,
// §6). Every invocation of the same source function shares one template;
// what differs per-closure is the captured Environment.
type FunctionTemplate struct {
	hdr        heap.Header
	name       value.Value // Symbol, or Null if anonymous
	code       value.Value
	module     value.Value
	paramCount int
	localCount int
}

func init() {
	heap.RegisterType(value.KindFunctionTemplate, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			t := (*FunctionTemplate)(asPointer(h))
			visit(t.name)
			visit(t.code)
			visit(t.module)
		},
	})
}

// NewFunctionTemplate allocates a template. name may be value.Null.
func NewFunctionTemplate(h *heap.Heap, name, code, module value.Value, paramCount, localCount int) value.Value {
	o := heap.AllocateFixed[FunctionTemplate](h, value.KindFunctionTemplate, 56)
	o.name, o.code, o.module = name, code, module
	o.paramCount, o.localCount = paramCount, localCount
	return o.hdr.AsValue()
}

func templateOf(v value.Value) *FunctionTemplate { return (*FunctionTemplate)(ptrOf(v)) }

func TemplateCode(v value.Value) value.Value        { return templateOf(v).code }
func TemplateModule(v value.Value) value.Value       { return templateOf(v).module }
func TemplateParamCount(v value.Value) int           { return templateOf(v).paramCount }
func TemplateLocalCount(v value.Value) int           { return templateOf(v).localCount }
func TemplateName(v value.Value) value.Value         { return templateOf(v).name }

// Environment is one frame of captured variables in a closure chain
// (spec.md §4.9's closure-in-loop requirement: a fresh Environment is
// allocated per loop iteration so that each closure captures its own
// binding, never a shared mutable cell).
type Environment struct {
	hdr    heap.Header
	parent value.Value // Null or an outer Environment
	slots  []value.Value
}

func init() {
	heap.RegisterType(value.KindEnvironment, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			e := (*Environment)(asPointer(h))
			if !e.parent.IsNull() {
				visit(e.parent)
			}
			for _, s := range e.slots {
				visit(s)
			}
		},
	})
}

// NewEnvironment allocates a fresh Environment with slotCount slots,
// chained to parent (which may be value.Null for a top-level closure).
func NewEnvironment(h *heap.Heap, parent value.Value, slotCount int) value.Value {
	o := heap.AllocateFixed[Environment](h, value.KindEnvironment, uintptr(24+8*slotCount))
	o.parent = parent
	o.slots = make([]value.Value, slotCount)
	return o.hdr.AsValue()
}

func environmentOf(v value.Value) *Environment { return (*Environment)(ptrOf(v)) }

// EnvironmentGet reads slot at depth levels up the parent chain.
func EnvironmentGet(v value.Value, depth, slot int) value.Value {
	e := environmentOf(v)
	for i := 0; i < depth; i++ {
		e = environmentOf(e.parent)
	}
	return e.slots[slot]
}

// EnvironmentSet writes slot at depth levels up the parent chain.
func EnvironmentSet(v value.Value, depth, slot int, val value.Value) {
	e := environmentOf(v)
	for i := 0; i < depth; i++ {
		e = environmentOf(e.parent)
	}
	e.slots[slot] = val
}

// Function is a closure: a FunctionTemplate paired with the Environment it
// was created under (spec.md §3.3).
type Function struct {
	hdr         heap.Header
	template    value.Value
	environment value.Value // Null if the template captures nothing
}

func init() {
	heap.RegisterType(value.KindFunction, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			f := (*Function)(asPointer(h))
			visit(f.template)
			if !f.environment.IsNull() {
				visit(f.environment)
			}
		},
	})
}

// NewFunction allocates a closure over template and environment.
func NewFunction(h *heap.Heap, template, environment value.Value) value.Value {
	o := heap.AllocateFixed[Function](h, value.KindFunction, 24)
	o.template, o.environment = template, environment
	return o.hdr.AsValue()
}

func functionOf(v value.Value) *Function { return (*Function)(ptrOf(v)) }

func FunctionTemplateOf(v value.Value) value.Value   { return functionOf(v).template }
func FunctionEnvironment(v value.Value) value.Value  { return functionOf(v).environment }

// BoundMethod pairs a callable with a receiver that must be prepended to
// its argument list on invocation (spec.md §4.10's LoadMethod/CallMethod
// two-instruction protocol — BoundMethod is the heap-allocated value that
// protocol produces when the callee isn't inlined into a direct call).
type BoundMethod struct {
	hdr      heap.Header
	function value.Value
	receiver value.Value
}

func init() {
	heap.RegisterType(value.KindBoundMethod, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			b := (*BoundMethod)(asPointer(h))
			visit(b.function)
			visit(b.receiver)
		},
	})
}

// NewBoundMethod allocates a bound method.
func NewBoundMethod(h *heap.Heap, function, receiver value.Value) value.Value {
	o := heap.AllocateFixed[BoundMethod](h, value.KindBoundMethod, 24)
	o.function, o.receiver = function, receiver
	return o.hdr.AsValue()
}

func boundMethodOf(v value.Value) *BoundMethod { return (*BoundMethod)(ptrOf(v)) }

func BoundMethodFunction(v value.Value) value.Value { return boundMethodOf(v).function }
func BoundMethodReceiver(v value.Value) value.Value { return boundMethodOf(v).receiver }
