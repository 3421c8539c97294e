package interp

import (
	"encoding/binary"

	"github.com/tiro-lang/tiro/internal/coroutine"
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/sched"
	"github.com/tiro-lang/tiro/internal/value"
)

// MethodResolver dispatches LoadMethod's by-name lookup, and the
// Load/StoreIndex and Load/StoreMember operations of spec.md §4.11,
// against a receiver's per-type table. internal/typesys provides the
// concrete implementation; interp depends only on this narrow interface
// to avoid importing the type-dispatch package's own dependency on vm's
// Context.
type MethodResolver interface {
	ResolveMethod(receiver value.Value, name value.Value) (value.Value, bool)
	LoadIndex(h *heap.Heap, receiver, index value.Value) (value.Value, error)
	StoreIndex(h *heap.Heap, receiver, index, val value.Value) error
	LoadMember(receiver, member value.Value) (value.Value, bool)
	StoreMember(h *heap.Heap, receiver, member, val value.Value) bool
}

// Interp is the bytecode dispatch loop of spec.md §4.10, implementing
// sched.Runner. One Interp is shared by every coroutine a Context runs.
type Interp struct {
	heap    *heap.Heap
	sched   *sched.Scheduler
	methods MethodResolver
}

// New creates a dispatch loop bound to h and s. SetMethodResolver must be
// called before any LoadMethod/CallMethod executes; vm.Context does this
// once its typesys table is built.
func New(h *heap.Heap, s *sched.Scheduler) *Interp {
	return &Interp{heap: h, sched: s}
}

// Heap implements object.NativeContext, letting native function bodies
// allocate results.
func (ip *Interp) Heap() *heap.Heap { return ip.heap }

// SetMethodResolver installs the method-dispatch table consulted by
// LoadMethod.
func (ip *Interp) SetMethodResolver(r MethodResolver) { ip.methods = r }

// Start binds a freshly-created coroutine's entry call: it pushes (or
// immediately runs, for native entry points) the first frame so the
// coroutine is ready to be enqueued.
func (ip *Interp) Start(co value.Value, args []value.Value) error {
	stack := coroutine.Stack(co)
	outcome := ip.call(co, stack, coroutine.Function(co), args)
	if outcome.err != nil {
		coroutine.Finish(co, value.Null, outcome.err)
		return outcome.err
	}
	if !outcome.pushedFrame && !outcome.suspended {
		coroutine.Finish(co, outcome.result, nil)
	}
	return nil
}

// Step implements sched.Runner: it runs co's topmost frame until the
// whole call stack unwinds (Done), a runtime error finishes co (Done,
// failed), or a Call/CallMethod reaches an async native function
// (Waiting, left off the ready queue).
func (ip *Interp) Step(co value.Value) {
	stack := coroutine.Stack(co)
	if resumed := coroutine.TakeResumeValue(co); coroutine.Depth(stack) > 0 {
		if !resumed.IsNull() {
			coroutine.Push(stack, resumed)
		}
	}

	for {
		if coroutine.Depth(stack) == 0 {
			return
		}
		frame := coroutine.TopFrame(stack)
		code := object.TemplateCode(frame.Template)
		instr := object.CodeInstructions(code)

		if frame.PC >= len(instr) {
			if !ip.doReturn(co, stack, value.Null) {
				return
			}
			continue
		}

		op := Op(instr[frame.PC])
		frame.PC++

		switch op {
		case OpNop:

		case OpLoadConst:
			idx := ip.readU16(instr, frame)
			coroutine.Push(stack, object.CodeConstant(code, int(idx)))

		case OpLoadNull:
			coroutine.Push(stack, value.Null)

		case OpLoadTrue:
			coroutine.Push(stack, ip.boolValue(true))

		case OpLoadFalse:
			coroutine.Push(stack, ip.boolValue(false))

		case OpLoadLocal:
			idx := ip.readU16(instr, frame)
			coroutine.Push(stack, coroutine.Local(stack, frame, int(idx)))

		case OpStoreLocal:
			idx := ip.readU16(instr, frame)
			coroutine.SetLocal(stack, frame, int(idx), coroutine.Pop(stack))

		case OpPop:
			coroutine.Pop(stack)

		case OpDup:
			coroutine.Push(stack, coroutine.Peek(stack))

		case OpLoadClosure:
			depth := int(instr[frame.PC])
			frame.PC++
			slot := ip.readU16(instr, frame)
			coroutine.Push(stack, object.EnvironmentGet(frame.Environment, depth, int(slot)))

		case OpStoreClosure:
			depth := int(instr[frame.PC])
			frame.PC++
			slot := ip.readU16(instr, frame)
			object.EnvironmentSet(frame.Environment, depth, int(slot), coroutine.Pop(stack))

		case OpLoadModuleMember:
			idx := ip.readU32(instr, frame)
			coroutine.Push(stack, object.ModuleMember(frame.Module, int(idx)))

		case OpStoreModuleMember:
			idx := ip.readU32(instr, frame)
			object.ModuleSetMember(frame.Module, int(idx), coroutine.Pop(stack))

		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow:
			if !ip.binaryArith(co, stack, op) {
				return
			}

		case OpNeg:
			a := coroutine.Pop(stack)
			i, f, isFloat, err := object.Neg(a)
			if !ip.checkFatal(co, err) {
				return
			}
			coroutine.Push(stack, ip.wrapNumeric(i, f, isFloat))

		case OpPos:
			// unary "+" performs no conversion beyond requiring a numeric operand.
			a := coroutine.Peek(stack)
			if !object.IsIntegerLike(a) && heap.KindOf(a) != value.KindFloat {
				if !ip.checkFatal(co, value.ErrTypeMismatch("+", heap.KindOf(a))) {
					return
				}
			}

		case OpEq:
			b, a := coroutine.Pop(stack), coroutine.Pop(stack)
			coroutine.Push(stack, ip.boolValue(object.Equal(a, b)))

		case OpNeq:
			b, a := coroutine.Pop(stack), coroutine.Pop(stack)
			coroutine.Push(stack, ip.boolValue(!object.Equal(a, b)))

		case OpIs:
			b, a := coroutine.Pop(stack), coroutine.Pop(stack)
			coroutine.Push(stack, ip.boolValue(object.Same(a, b)))

		case OpNot:
			a := coroutine.Pop(stack)
			coroutine.Push(stack, ip.boolValue(!object.Truthy(a)))

		case OpLt, OpLe, OpGt, OpGe:
			if !ip.compare(co, stack, op) {
				return
			}

		case OpBAnd, OpBOr, OpBXor, OpLSh, OpRSh:
			if !ip.binaryBitwise(co, stack, op) {
				return
			}

		case OpBNot:
			a := coroutine.Pop(stack)
			n, err := object.BNot(a)
			if !ip.checkFatal(co, err) {
				return
			}
			coroutine.Push(stack, object.NewInteger(ip.heap, n))

		case OpJump:
			off := ip.readI32(instr, frame)
			frame.PC += int(off)

		case OpJumpIfFalse:
			off := ip.readI32(instr, frame)
			if !object.Truthy(coroutine.Pop(stack)) {
				frame.PC += int(off)
			}

		case OpJumpIfTrue:
			off := ip.readI32(instr, frame)
			if object.Truthy(coroutine.Pop(stack)) {
				frame.PC += int(off)
			}

		case OpMakeEnv:
			slotCount := int(ip.readU16(instr, frame))
			hasParent := instr[frame.PC]
			frame.PC++
			parent := value.Null
			if hasParent != 0 {
				parent = coroutine.Pop(stack)
			}
			coroutine.Push(stack, object.NewEnvironment(ip.heap, parent, slotCount))

		case OpMakeClosure:
			tmplIdx := ip.readU32(instr, frame)
			template := object.ModuleMember(frame.Module, int(tmplIdx))
			env := coroutine.Pop(stack)
			coroutine.Push(stack, object.NewFunction(ip.heap, template, env))

		case OpCall:
			argc := int(instr[frame.PC])
			frame.PC++
			args := coroutine.PopN(stack, argc)
			callee := coroutine.Pop(stack)
			outcome := ip.call(co, stack, callee, args)
			if !ip.finishCallOutcome(co, stack, outcome) {
				return
			}

		case OpLoadMethod:
			nameIdx := ip.readU16(instr, frame)
			name := object.ModuleMember(frame.Module, int(nameIdx))
			receiver := coroutine.Pop(stack)
			if ip.methods == nil {
				if !ip.checkFatal(co, value.ErrMissingMember(symbolNameString(name))) {
					return
				}
				break
			}
			fn, ok := ip.methods.ResolveMethod(receiver, name)
			if !ok {
				if !ip.checkFatal(co, value.ErrMissingMember(symbolNameString(name))) {
					return
				}
				break
			}
			coroutine.Push(stack, object.NewBoundMethod(ip.heap, fn, receiver))

		case OpCallMethod:
			argc := int(instr[frame.PC])
			frame.PC++
			args := coroutine.PopN(stack, argc)
			callee := coroutine.Pop(stack)
			outcome := ip.call(co, stack, callee, args)
			if !ip.finishCallOutcome(co, stack, outcome) {
				return
			}

		case OpReturn:
			retVal := coroutine.Pop(stack)
			if !ip.doReturn(co, stack, retVal) {
				return
			}

		case OpMakeTuple:
			n := int(ip.readU16(instr, frame))
			elts := coroutine.PopN(stack, n)
			coroutine.Push(stack, object.NewTuple(ip.heap, elts))

		case OpMakeArray:
			n := int(ip.readU16(instr, frame))
			elts := coroutine.PopN(stack, n)
			arr := object.NewArray(ip.heap)
			for _, e := range elts {
				object.ArrayPush(ip.heap, arr, e)
			}
			coroutine.Push(stack, arr)

		case OpMakeTable:
			n := int(ip.readU16(instr, frame))
			pairs := coroutine.PopN(stack, 2*n)
			table := object.NewHashTable(ip.heap)
			for i := 0; i < len(pairs); i += 2 {
				object.HashTableSet(ip.heap, table, pairs[i], pairs[i+1])
			}
			coroutine.Push(stack, table)

		case OpAssertFail:
			exprIdx := ip.readU16(instr, frame)
			msgIdx := ip.readU16(instr, frame)
			exprStr := string(object.StringBytes(object.ModuleMember(frame.Module, int(exprIdx))))
			message := ""
			if msgIdx != 0xFFFF {
				message = string(object.StringBytes(object.ModuleMember(frame.Module, int(msgIdx))))
			}
			if !ip.checkFatal(co, value.ErrAssertionFailed(exprStr, message)) {
				return
			}

		case OpLoadIndex:
			index := coroutine.Pop(stack)
			receiver := coroutine.Pop(stack)
			if ip.methods == nil {
				if !ip.checkFatal(co, value.ErrNotIndexable(heap.KindOf(receiver))) {
					return
				}
				break
			}
			result, err := ip.methods.LoadIndex(ip.heap, receiver, index)
			if !ip.checkFatal(co, err) {
				return
			}
			coroutine.Push(stack, result)

		case OpStoreIndex:
			val := coroutine.Pop(stack)
			index := coroutine.Pop(stack)
			receiver := coroutine.Pop(stack)
			if ip.methods == nil {
				if !ip.checkFatal(co, value.ErrNotIndexAssignable(heap.KindOf(receiver))) {
					return
				}
				break
			}
			if !ip.checkFatal(co, ip.methods.StoreIndex(ip.heap, receiver, index, val)) {
				return
			}

		case OpLoadMember:
			idx := ip.readU32(instr, frame)
			name := object.ModuleMember(frame.Module, int(idx))
			receiver := coroutine.Pop(stack)
			if ip.methods == nil {
				if !ip.checkFatal(co, value.ErrMissingMember(symbolNameString(name))) {
					return
				}
				break
			}
			result, ok := ip.methods.LoadMember(receiver, name)
			if !ok {
				if !ip.checkFatal(co, value.ErrMissingMember(symbolNameString(name))) {
					return
				}
				break
			}
			coroutine.Push(stack, result)

		case OpStoreMember:
			idx := ip.readU32(instr, frame)
			name := object.ModuleMember(frame.Module, int(idx))
			val := coroutine.Pop(stack)
			receiver := coroutine.Pop(stack)
			if ip.methods == nil || !ip.methods.StoreMember(ip.heap, receiver, name, val) {
				if !ip.checkFatal(co, value.ErrMissingMember(symbolNameString(name))) {
					return
				}
			}

		case OpLoadTupleMember:
			idx := ip.readU16(instr, frame)
			tuple := coroutine.Pop(stack)
			coroutine.Push(stack, object.TupleGet(tuple, int(idx)))

		case OpStoreTupleMember:
			idx := ip.readU16(instr, frame)
			val := coroutine.Pop(stack)
			tuple := coroutine.Pop(stack)
			object.TupleSet(tuple, int(idx), val)

		case OpMakeBuilder:
			coroutine.Push(stack, object.NewStringBuilder(ip.heap))

		case OpBuilderAppend:
			val := coroutine.Pop(stack)
			builder := coroutine.Peek(stack)
			object.StringBuilderAppendValue(ip.heap, builder, val)

		case OpBuilderToString:
			builder := coroutine.Pop(stack)
			coroutine.Push(stack, object.StringBuilderToString(ip.heap, builder))

		default:
			if !ip.checkFatal(co, value.Fatalf("invalid opcode %d", op)) {
				return
			}
		}
	}
}

func (ip *Interp) readU16(instr []byte, f *coroutine.Frame) uint16 {
	v := binary.LittleEndian.Uint16(instr[f.PC:])
	f.PC += 2
	return v
}

func (ip *Interp) readU32(instr []byte, f *coroutine.Frame) uint32 {
	v := binary.LittleEndian.Uint32(instr[f.PC:])
	f.PC += 4
	return v
}

func (ip *Interp) readI32(instr []byte, f *coroutine.Frame) int32 {
	return int32(ip.readU32(instr, f))
}

func (ip *Interp) boolValue(b bool) value.Value {
	return object.NewBoolean(ip.heap, b)
}

func (ip *Interp) wrapNumeric(i int64, f float64, isFloat bool) value.Value {
	if isFloat {
		return object.NewFloat(ip.heap, f)
	}
	return object.NewInteger(ip.heap, i)
}

func (ip *Interp) binaryArith(co value.Value, stack value.Value, op Op) bool {
	b, a := coroutine.Pop(stack), coroutine.Pop(stack)
	var (
		i       int64
		f       float64
		isFloat bool
		err     error
	)
	switch op {
	case OpAdd:
		i, f, isFloat, err = object.Add(a, b)
	case OpSub:
		i, f, isFloat, err = object.Sub(a, b)
	case OpMul:
		i, f, isFloat, err = object.Mul(a, b)
	case OpDiv:
		i, f, isFloat, err = object.Div(a, b)
	case OpMod:
		i, f, isFloat, err = object.Mod(a, b)
	case OpPow:
		i, f, isFloat, err = object.Pow(a, b)
	}
	if !ip.checkFatal(co, err) {
		return false
	}
	coroutine.Push(stack, ip.wrapNumeric(i, f, isFloat))
	return true
}

func (ip *Interp) binaryBitwise(co value.Value, stack value.Value, op Op) bool {
	b, a := coroutine.Pop(stack), coroutine.Pop(stack)
	var (
		n   int64
		err error
	)
	switch op {
	case OpBAnd:
		n, err = object.BAnd(a, b)
	case OpBOr:
		n, err = object.BOr(a, b)
	case OpBXor:
		n, err = object.BXor(a, b)
	case OpLSh:
		n, err = object.LSh(a, b)
	case OpRSh:
		n, err = object.RSh(a, b)
	}
	if !ip.checkFatal(co, err) {
		return false
	}
	coroutine.Push(stack, object.NewInteger(ip.heap, n))
	return true
}

func (ip *Interp) compare(co value.Value, stack value.Value, op Op) bool {
	b, a := coroutine.Pop(stack), coroutine.Pop(stack)
	af, bf, ok := numericOperands(a, b)
	if !ok {
		ip.checkFatal(co, value.ErrTypeMismatch("compare", heap.KindOf(a)))
		return false
	}
	var result bool
	switch op {
	case OpLt:
		result = af < bf
	case OpLe:
		result = af <= bf
	case OpGt:
		result = af > bf
	case OpGe:
		result = af >= bf
	}
	coroutine.Push(stack, ip.boolValue(result))
	return true
}

func numericOperands(a, b value.Value) (float64, float64, bool) {
	af, ok1 := object.ConvertFloat(a)
	bf, ok2 := object.ConvertFloat(b)
	return af, bf, ok1 && ok2
}

// checkFatal converts a non-nil runtime error into a terminal outcome for
// co, reporting false so the caller's Step loop stops.
func (ip *Interp) checkFatal(co value.Value, err error) bool {
	if err == nil {
		return true
	}
	coroutine.Finish(co, value.Null, err)
	return false
}

// doReturn pops the current frame, delivering retVal to the caller (the
// next frame down) or finishing the coroutine if that was the last frame.
// Returns false if the Step loop should stop (coroutine finished).
func (ip *Interp) doReturn(co value.Value, stack value.Value, retVal value.Value) bool {
	coroutine.PopFrame(stack)
	if coroutine.Depth(stack) == 0 {
		coroutine.Finish(co, retVal, nil)
		return false
	}
	coroutine.Push(stack, retVal)
	return true
}

// finishCallOutcome applies the result of ip.call to the running
// coroutine's Step loop: a pushed frame just continues dispatch, a
// synchronous result is pushed onto the caller's operand stack, an error
// finishes the coroutine, and a suspension parks it and stops Step.
func (ip *Interp) finishCallOutcome(co value.Value, stack value.Value, outcome callOutcome) bool {
	if outcome.err != nil {
		return ip.checkFatal(co, outcome.err)
	}
	if outcome.pushedFrame {
		return true
	}
	if outcome.suspended {
		// A resume made synchronously inside the async call has already
		// moved co to Ready (or Done on error); keep that state.
		if coroutine.CurrentState(co) == coroutine.StateRunning {
			coroutine.SetState(co, coroutine.StateWaiting)
		}
		return false
	}
	coroutine.Push(stack, outcome.result)
	return true
}

type callOutcome struct {
	pushedFrame bool
	suspended   bool
	result      value.Value
	err         error
}

// call dispatches a callee of any callable kind (spec.md §3.3/§4.10):
// Function pushes a new bytecode frame, BoundMethod unwraps its receiver
// and recurses, NativeFunction runs synchronously, NativeAsyncFunction
// arranges to resume through the scheduler.
func (ip *Interp) call(co value.Value, stack value.Value, callee value.Value, args []value.Value) callOutcome {
	switch heap.KindOf(callee) {
	case value.KindFunction:
		template := object.FunctionTemplateOf(callee)
		env := object.FunctionEnvironment(callee)
		module := object.TemplateModule(template)
		paramCount := object.TemplateParamCount(template)
		localCount := object.TemplateLocalCount(template)
		idx := coroutine.PushFrame(stack, coroutine.FrameUser, template, env, module, callee, localCount)
		frame := coroutine.FrameAt(stack, idx)
		for i := 0; i < paramCount && i < len(args); i++ {
			coroutine.SetLocal(stack, frame, i, args[i])
		}
		return callOutcome{pushedFrame: true}

	case value.KindBoundMethod:
		fn := object.BoundMethodFunction(callee)
		receiver := object.BoundMethodReceiver(callee)
		fullArgs := make([]value.Value, 0, len(args)+1)
		fullArgs = append(fullArgs, receiver)
		fullArgs = append(fullArgs, args...)
		return ip.call(co, stack, fn, fullArgs)

	case value.KindNativeFunction:
		result, err := object.CallNative(callee, ip, args)
		return callOutcome{result: result, err: err}

	case value.KindNativeAsyncFunction:
		object.CallNativeAsync(callee, ip, args, func(result value.Value, err error) {
			ip.sched.Resume(co, result, err)
		})
		return callOutcome{suspended: true}

	default:
		return callOutcome{err: value.ErrNotCallable(heap.KindOf(callee))}
	}
}

func symbolNameString(sym value.Value) string {
	if heap.KindOf(sym) != value.KindSymbol {
		return ""
	}
	return string(object.StringBytes(object.SymbolName(sym)))
}
