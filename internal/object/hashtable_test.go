package object_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
)

func TestHashTableSetGetRemove(t *testing.T) {
	h := heap.New()
	table := object.NewHashTable(h)

	key := object.NewString(h, []byte("answer"))
	object.HashTableSet(h, table, key, object.NewInteger(h, 42))

	got, ok := object.HashTableGet(table, object.NewString(h, []byte("answer")))
	require.True(t, ok)
	require.Equal(t, int64(42), object.IntegerValue(got))
	require.Equal(t, 1, object.HashTableSize(table))

	object.HashTableRemove(table, object.NewString(h, []byte("answer")))
	require.Equal(t, 0, object.HashTableSize(table))
	_, ok = object.HashTableGet(table, object.NewString(h, []byte("answer")))
	require.False(t, ok)
}

func TestHashTableOverwriteKeepsSize(t *testing.T) {
	h := heap.New()
	table := object.NewHashTable(h)
	key := object.NewString(h, []byte("k"))

	object.HashTableSet(h, table, key, object.NewInteger(h, 1))
	object.HashTableSet(h, table, object.NewString(h, []byte("k")), object.NewInteger(h, 2))

	require.Equal(t, 1, object.HashTableSize(table))
	got, ok := object.HashTableGet(table, object.NewString(h, []byte("k")))
	require.True(t, ok)
	require.Equal(t, int64(2), object.IntegerValue(got))
}

// TestHashTableGrowthAndRemovalSurviveManyInsertions exercises the
// robin-hood grow/compact path across enough entries to force multiple
// index-buffer doublings and a mix of tombstones, checking every
// surviving key is still reachable afterward.
func TestHashTableGrowthAndRemovalSurviveManyInsertions(t *testing.T) {
	h := heap.New()
	table := object.NewHashTable(h)

	const n = 500
	for i := 0; i < n; i++ {
		k := object.NewString(h, []byte(fmt.Sprintf("key-%d", i)))
		object.HashTableSet(h, table, k, object.NewInteger(h, int64(i)))
	}
	require.Equal(t, n, object.HashTableSize(table))

	for i := 0; i < n; i += 2 {
		object.HashTableRemove(table, object.NewString(h, []byte(fmt.Sprintf("key-%d", i))))
	}
	require.Equal(t, n/2, object.HashTableSize(table))

	for i := 0; i < n; i++ {
		k := object.NewString(h, []byte(fmt.Sprintf("key-%d", i)))
		got, ok := object.HashTableGet(table, k)
		if i%2 == 0 {
			require.False(t, ok, "key-%d should have been removed", i)
		} else {
			require.True(t, ok, "key-%d should still be present", i)
			require.Equal(t, int64(i), object.IntegerValue(got))
		}
	}
}

func TestHashTableIterator(t *testing.T) {
	h := heap.New()
	table := object.NewHashTable(h)
	want := map[string]int64{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		object.HashTableSet(h, table, object.NewString(h, []byte(k)), object.NewInteger(h, v))
	}

	it := object.NewHashTableIterator(h, table)
	got := map[string]int64{}
	for {
		k, v, ok := object.HashTableIteratorNext(it)
		if !ok {
			break
		}
		got[string(object.StringBytes(k))] = object.IntegerValue(v)
	}
	require.Equal(t, want, got)
}
