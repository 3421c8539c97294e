package vm_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/compiled"
	"github.com/tiro-lang/tiro/internal/interp"
	"github.com/tiro-lang/tiro/internal/loader"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
	"github.com/tiro-lang/tiro/internal/vm"
)

func u16le(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func u32le(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
func i32le(v int32) []byte  { return u32le(uint32(v)) }

func op(o interp.Op, operand ...[]byte) []byte {
	out := []byte{byte(o)}
	for _, b := range operand {
		out = append(out, b...)
	}
	return out
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// TestReturnConstant exercises the simplest possible module: a
// zero-argument function that loads one constant and returns it.
func TestReturnConstant(t *testing.T) {
	code := concat(
		op(interp.OpLoadConst, u16le(0)),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 42},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{0}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)

	template := object.ModuleMember(mod, 1)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), object.IntegerValue(result))
}

// TestFibRecursive assembles a self-recursive fib(n) module by hand, the
// way spec.md §8's worked example describes it: fib(n) = n if n < 2 else
// fib(n-1) + fib(n-2). The function calls itself through its own
// module's member table, patched in after the template is instantiated —
// the same two-pass construction ModuleSetMember documents.
func TestFibRecursive(t *testing.T) {
	// Per-function constant pool: 0 -> 2, 1 -> 1.
	// Module members: 0: Integer(2), 1: Integer(1), 2: FunctionTemplate(fib).
	thenBranch := concat(
		op(interp.OpLoadLocal, u16le(0)),
		op(interp.OpReturn),
	)
	// Call's calling convention expects the callee pushed before its
	// arguments (Call pops argc args, then the callee underneath them),
	// so each recursive call pushes fib itself first.
	elseBranch := concat(
		op(interp.OpLoadModuleMember, u32le(2)),
		op(interp.OpLoadLocal, u16le(0)),
		op(interp.OpLoadConst, u16le(1)),
		op(interp.OpSub),
		op(interp.OpCall, []byte{1}),
		op(interp.OpLoadModuleMember, u32le(2)),
		op(interp.OpLoadLocal, u16le(0)),
		op(interp.OpLoadConst, u16le(0)),
		op(interp.OpSub),
		op(interp.OpCall, []byte{1}),
		op(interp.OpAdd),
		op(interp.OpReturn),
	)
	jumpOffset := int32(len(thenBranch))
	head := concat(
		op(interp.OpLoadLocal, u16le(0)),
		op(interp.OpLoadConst, u16le(0)),
		op(interp.OpLt),
		op(interp.OpJumpIfFalse, i32le(jumpOffset)),
	)
	code := concat(head, thenBranch, elseBranch)

	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 2},
			{Kind: compiled.MemberInteger, Integer: 1},
			{
				Kind:       compiled.MemberFunctionTemplate,
				Name:       compiled.NoRef,
				ParamCount: 1,
				LocalCount: 1,
				Code:       code,
				Constants:  []compiled.Ref{0, 1},
			},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)

	template := object.ModuleMember(mod, 2)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)
	object.ModuleSetMember(mod, 2, fn)

	result, err := ctx.RunCoroutine(fn, []value.Value{ctx.GetInteger(10)})
	require.NoError(t, err)
	require.Equal(t, int64(55), object.IntegerValue(result))
}
