package object_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
)

func TestArrayPushGrowsAndPreservesOrder(t *testing.T) {
	h := heap.New()
	arr := object.NewArray(h)
	require.Equal(t, 0, object.ArrayLen(arr))

	const n = 50
	for i := 0; i < n; i++ {
		object.ArrayPush(h, arr, object.NewInteger(h, int64(i)))
	}
	require.Equal(t, n, object.ArrayLen(arr))
	for i := 0; i < n; i++ {
		require.Equal(t, int64(i), object.IntegerValue(object.ArrayGet(arr, i)))
	}
}

func TestArrayPopAndClear(t *testing.T) {
	h := heap.New()
	arr := object.NewArray(h)
	object.ArrayPush(h, arr, object.NewInteger(h, 1))
	object.ArrayPush(h, arr, object.NewInteger(h, 2))

	last := object.ArrayPop(arr)
	require.Equal(t, int64(2), object.IntegerValue(last))
	require.Equal(t, 1, object.ArrayLen(arr))

	object.ArrayClear(arr)
	require.Equal(t, 0, object.ArrayLen(arr))
}

func TestArraySetOverwrites(t *testing.T) {
	h := heap.New()
	arr := object.NewArray(h)
	object.ArrayPush(h, arr, object.NewInteger(h, 1))
	object.ArraySet(arr, 0, object.NewInteger(h, 99))
	require.Equal(t, int64(99), object.IntegerValue(object.ArrayGet(arr, 0)))
}
