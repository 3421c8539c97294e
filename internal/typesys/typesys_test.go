package typesys_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/typesys"
	"github.com/tiro-lang/tiro/internal/value"
)

func TestResolveMethodFindsKindLevelEntry(t *testing.T) {
	h := heap.New()
	table := typesys.New()

	lenFn := object.NewNativeFunction(h, value.Null, func(ctx object.NativeContext, args []value.Value) (value.Value, error) {
		return object.NewInteger(ctx.Heap(), int64(len(object.StringBytes(args[0])))), nil
	})
	table.Register(value.KindString, "len", lenFn)

	interner := object.NewInterner(h)
	name := interner.Intern(h, []byte("len"))

	receiver := object.NewString(h, []byte("hello"))
	fn, ok := table.ResolveMethod(receiver, name)
	require.True(t, ok)

	result, err := object.CallNative(fn, testNativeContext{h}, []value.Value{receiver})
	require.NoError(t, err)
	require.Equal(t, int64(5), object.IntegerValue(result))
}

func TestResolveMethodMissingReturnsFalse(t *testing.T) {
	h := heap.New()
	table := typesys.New()
	interner := object.NewInterner(h)
	name := interner.Intern(h, []byte("nope"))

	_, ok := table.ResolveMethod(object.NewString(h, []byte("x")), name)
	require.False(t, ok)
}

// TestDynamicObjectFieldsShadowKindLevelTable exercises typesys's rule
// that a DynamicObject's own fields are consulted before the Kind-level
// method table, letting user-defined records override or add methods the
// builtin table never registered.
func TestDynamicObjectFieldsShadowKindLevelTable(t *testing.T) {
	h := heap.New()
	table := typesys.New()
	interner := object.NewInterner(h)
	name := interner.Intern(h, []byte("greet"))

	obj := object.NewDynamicObject(h)
	own := object.NewNativeFunction(h, value.Null, func(ctx object.NativeContext, args []value.Value) (value.Value, error) {
		return object.NewString(ctx.Heap(), []byte("hi from field")), nil
	})
	object.DynamicSet(h, obj, name, own)

	fn, ok := table.ResolveMethod(obj, name)
	require.True(t, ok)
	require.Equal(t, own, fn)
}

type testNativeContext struct{ h *heap.Heap }

func (c testNativeContext) Heap() *heap.Heap { return c.h }
