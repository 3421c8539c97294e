package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tiro-lang/tiro/internal/gc"
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
)

// rootSlice is the simplest possible gc.RootProvider: a fixed list of
// root slots a test controls directly.
type rootSlice struct {
	slots []value.Value
}

func (r *rootSlice) WalkRoots(visit func(*value.Value)) {
	for i := range r.slots {
		visit(&r.slots[i])
	}
}

func TestCollectSweepsUnreachable(t *testing.T) {
	h := heap.New()
	roots := &rootSlice{}
	c := gc.New(h, roots, zap.NewNop())

	kept := object.NewString(h, []byte("kept"))
	roots.slots = append(roots.slots, kept)

	object.NewString(h, []byte("garbage"))

	before := h.AllocatedObjs
	require.Equal(t, uint64(2), before)

	stats := c.Collect(gc.TriggerForced)
	require.Equal(t, uint64(1), stats.LiveObjs)
	require.Equal(t, uint64(1), h.AllocatedObjs)

	require.Equal(t, []byte("kept"), object.StringBytes(kept))
}

func TestCollectTracesThroughContainers(t *testing.T) {
	h := heap.New()
	roots := &rootSlice{}
	c := gc.New(h, roots, zap.NewNop())

	arr := object.NewArray(h)
	roots.slots = append(roots.slots, arr)
	inner := object.NewString(h, []byte("reachable-through-array"))
	object.ArrayPush(h, arr, inner)

	c.Collect(gc.TriggerForced)

	require.Equal(t, []byte("reachable-through-array"), object.StringBytes(object.ArrayGet(arr, 0)))
}

func TestShouldCollectTracksThreshold(t *testing.T) {
	h := heap.New()
	roots := &rootSlice{}
	c := gc.New(h, roots, zap.NewNop())
	require.False(t, c.ShouldCollect())

	for i := 0; i < 1<<16; i++ {
		object.NewString(h, []byte("x"))
	}
	require.True(t, c.ShouldCollect())
}
