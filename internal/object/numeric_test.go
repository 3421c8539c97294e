package object_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
)

func TestEqualAcrossNumericKinds(t *testing.T) {
	h := heap.New()
	require.True(t, object.Equal(value.NewSmallInt(1), object.NewFloat(h, 1.0)))
	require.True(t, object.Equal(object.NewInteger(h, 1), value.NewSmallInt(1)))
	require.False(t, object.Equal(value.NewSmallInt(1), value.NewSmallInt(2)))
}

func TestHashAgreesWithEqual(t *testing.T) {
	h := heap.New()
	a := value.NewSmallInt(7)
	b := object.NewFloat(h, 7.0)
	require.True(t, object.Equal(a, b))
	require.Equal(t, object.Hash(a), object.Hash(b))
}

func TestAddOverflowIsFatal(t *testing.T) {
	h := heap.New()
	a := object.NewInteger(h, math.MaxInt64)
	b := object.NewInteger(h, 1)
	_, _, _, err := object.Add(a, b)
	require.Error(t, err)
}

func TestDivisionByZero(t *testing.T) {
	h := heap.New()
	_, _, _, err := object.Div(object.NewInteger(h, 10), value.NewSmallInt(0))
	require.Error(t, err)
}

func TestModTruncatedSign(t *testing.T) {
	h := heap.New()
	i, _, isFloat, err := object.Mod(object.NewInteger(h, -7), object.NewInteger(h, 3))
	require.NoError(t, err)
	require.False(t, isFloat)
	require.Equal(t, int64(-1), i)
}

func TestPowIntegerExponentiation(t *testing.T) {
	h := heap.New()
	i, _, isFloat, err := object.Pow(object.NewInteger(h, 2), object.NewInteger(h, 10))
	require.NoError(t, err)
	require.False(t, isFloat)
	require.Equal(t, int64(1024), i)
}

func TestPowNegativeExponentFailsForMostBases(t *testing.T) {
	h := heap.New()
	_, _, _, err := object.Pow(object.NewInteger(h, 2), object.NewInteger(h, -1))
	require.Error(t, err)
}

func TestPowZeroToNegativeExponentFails(t *testing.T) {
	h := heap.New()
	_, _, _, err := object.Pow(object.NewInteger(h, 0), object.NewInteger(h, -3))
	require.Error(t, err)
}

func TestPowNegativeExponentUnitBaseReturnsItself(t *testing.T) {
	h := heap.New()
	i, _, isFloat, err := object.Pow(object.NewInteger(h, 1), object.NewInteger(h, -5))
	require.NoError(t, err)
	require.False(t, isFloat)
	require.Equal(t, int64(1), i)

	i, _, isFloat, err = object.Pow(object.NewInteger(h, -1), object.NewInteger(h, -5))
	require.NoError(t, err)
	require.False(t, isFloat)
	require.Equal(t, int64(-1), i)
}

func TestBitwiseOperators(t *testing.T) {
	h := heap.New()
	a, b := object.NewInteger(h, 0b1100), object.NewInteger(h, 0b1010)

	and, err := object.BAnd(a, b)
	require.NoError(t, err)
	require.Equal(t, int64(0b1000), and)

	or, err := object.BOr(a, b)
	require.NoError(t, err)
	require.Equal(t, int64(0b1110), or)

	xor, err := object.BXor(a, b)
	require.NoError(t, err)
	require.Equal(t, int64(0b0110), xor)

	not, err := object.BNot(a)
	require.NoError(t, err)
	require.Equal(t, ^int64(0b1100), not)
}

func TestShiftOperators(t *testing.T) {
	h := heap.New()
	left, err := object.LSh(object.NewInteger(h, 1), object.NewInteger(h, 4))
	require.NoError(t, err)
	require.Equal(t, int64(16), left)

	right, err := object.RSh(object.NewInteger(h, -16), object.NewInteger(h, 2))
	require.NoError(t, err)
	require.Equal(t, int64(-4), right)

	_, err = object.LSh(object.NewInteger(h, 1), object.NewInteger(h, -1))
	require.Error(t, err)
}

func TestTruthy(t *testing.T) {
	h := heap.New()
	require.False(t, object.Truthy(value.Null))
	require.False(t, object.Truthy(object.NewUndefined(h)))
	require.False(t, object.Truthy(object.NewBoolean(h, false)))
	require.False(t, object.Truthy(value.NewSmallInt(0)))
	require.True(t, object.Truthy(object.NewString(h, []byte(""))))
	require.True(t, object.Truthy(value.NewSmallInt(1)))
}
