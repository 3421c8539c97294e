package object_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
)

func TestTupleFixedLength(t *testing.T) {
	h := heap.New()
	elts := []value.Value{object.NewInteger(h, 1), object.NewInteger(h, 2), object.NewInteger(h, 3)}
	tup := object.NewTuple(h, elts)
	require.Equal(t, 3, object.TupleLen(tup))
	require.Equal(t, int64(2), object.IntegerValue(object.TupleGet(tup, 1)))
}
