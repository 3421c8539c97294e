package object

import (
	"math"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Same implements pointer/immediate identity (spec.md §4.1 "is" operator):
// two Values are the same iff they are bit-identical words.
func Same(a, b value.Value) bool {
	return a == b
}

// Equal implements value equality (spec.md §4.1 "=="): numerics compare by
// mathematical value across SmallInteger/Integer/Float, Strings compare
// byte-for-byte, Symbols and every other heap kind fall back to identity.
// Grounded on original_source/src/tiro/objects/value.cpp equality rules.
func Equal(a, b value.Value) bool {
	if Same(a, b) {
		return true
	}

	ka, kb := heap.KindOf(a), heap.KindOf(b)
	numA := ka == value.KindSmallInteger || ka == value.KindInteger || ka == value.KindFloat
	numB := kb == value.KindSmallInteger || kb == value.KindInteger || kb == value.KindFloat
	if numA && numB {
		if ka == value.KindFloat || kb == value.KindFloat {
			fa, _ := ConvertFloat(a)
			fb, _ := ConvertFloat(b)
			return fa == fb
		}
		return IntegerValue(a) == IntegerValue(b)
	}

	if ka != kb {
		return false
	}
	if ka == value.KindString {
		return string(StringBytes(a)) == string(StringBytes(b))
	}
	return false
}

// Hash computes a value suitable for HashTable bucketing (spec.md §4.6):
// numerics hash by value (so 1 and 1.0 collide, matching Equal), Strings
// and Symbols reuse their cached content hash, everything else hashes by
// its raw bit pattern.
func Hash(v value.Value) uint64 {
	switch heap.KindOf(v) {
	case value.KindSmallInteger, value.KindInteger:
		return hashInt64(IntegerValue(v))
	case value.KindFloat:
		f := FloatValue(v)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return hashInt64(int64(f))
		}
		return hashInt64(int64(math.Float64bits(f)))
	case value.KindString:
		return StringHash(v)
	case value.KindSymbol:
		return SymbolHash(v)
	default:
		return hashInt64(int64(v))
	}
}

func hashInt64(n int64) uint64 {
	h := uint64(n)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// Truthy implements the language's truthiness rule (spec.md §4.1): only
// Null, Undefined, false and the integer/float zero are falsy; every other
// Value, including empty strings/arrays/tables, is truthy.
func Truthy(v value.Value) bool {
	switch heap.KindOf(v) {
	case value.KindNull, value.KindUndefined:
		return false
	case value.KindBoolean:
		return BoolValue(v)
	case value.KindSmallInteger, value.KindInteger:
		return IntegerValue(v) != 0
	case value.KindFloat:
		return FloatValue(v) != 0
	default:
		return true
	}
}

// arithResult is returned by the binary numeric operators: either both
// operands were numeric (in which case exactly one of i/f is meaningful,
// selected by isFloat) or they were not, in which case the caller raises
// value.ErrTypeMismatch.
type arithResult struct {
	i       int64
	f       float64
	isFloat bool
	ok      bool
}

func numericPair(a, b value.Value) (af, bf float64, ai, bi int64, isFloat, ok bool) {
	ka, kb := heap.KindOf(a), heap.KindOf(b)
	numA := ka == value.KindSmallInteger || ka == value.KindInteger || ka == value.KindFloat
	numB := kb == value.KindSmallInteger || kb == value.KindInteger || kb == value.KindFloat
	if !numA || !numB {
		return 0, 0, 0, 0, false, false
	}
	if ka == value.KindFloat || kb == value.KindFloat {
		af, _ = ConvertFloat(a)
		bf, _ = ConvertFloat(b)
		return af, bf, 0, 0, true, true
	}
	return 0, 0, IntegerValue(a), IntegerValue(b), false, true
}

// Add implements spec.md §4.1's "+": numeric addition with overflow
// checking on the integer path, widening to Float on overflow is NOT
// performed (spec.md §7: integer overflow is a fatal RuntimeError, mirrors
// original_source/src/tiro/objects/math.cpp add_impl).
func Add(a, b value.Value) (int64, float64, bool, error) {
	af, bf, ai, bi, isFloat, ok := numericPair(a, b)
	if !ok {
		return 0, 0, false, value.ErrTypeMismatch("+", heap.KindOf(a))
	}
	if isFloat {
		return 0, af + bf, true, nil
	}
	sum := ai + bi
	if (bi > 0 && sum < ai) || (bi < 0 && sum > ai) {
		return 0, 0, false, value.ErrIntegerOverflow("+")
	}
	return sum, 0, false, nil
}

// Sub implements spec.md §4.1's "-".
func Sub(a, b value.Value) (int64, float64, bool, error) {
	af, bf, ai, bi, isFloat, ok := numericPair(a, b)
	if !ok {
		return 0, 0, false, value.ErrTypeMismatch("-", heap.KindOf(a))
	}
	if isFloat {
		return 0, af - bf, true, nil
	}
	diff := ai - bi
	if (bi < 0 && diff < ai) || (bi > 0 && diff > ai) {
		return 0, 0, false, value.ErrIntegerOverflow("-")
	}
	return diff, 0, false, nil
}

// Mul implements spec.md §4.1's "*".
func Mul(a, b value.Value) (int64, float64, bool, error) {
	af, bf, ai, bi, isFloat, ok := numericPair(a, b)
	if !ok {
		return 0, 0, false, value.ErrTypeMismatch("*", heap.KindOf(a))
	}
	if isFloat {
		return 0, af * bf, true, nil
	}
	if ai == 0 || bi == 0 {
		return 0, 0, false, nil
	}
	prod := ai * bi
	if prod/bi != ai {
		return 0, 0, false, value.ErrIntegerOverflow("*")
	}
	return prod, 0, false, nil
}

// Div implements spec.md §4.1's "/": integer division truncates toward
// zero; division by zero is fatal for both operand kinds.
func Div(a, b value.Value) (int64, float64, bool, error) {
	af, bf, ai, bi, isFloat, ok := numericPair(a, b)
	if !ok {
		return 0, 0, false, value.ErrTypeMismatch("/", heap.KindOf(a))
	}
	if isFloat {
		if bf == 0 {
			return 0, 0, false, value.ErrDivisionByZero("/")
		}
		return 0, af / bf, true, nil
	}
	if bi == 0 {
		return 0, 0, false, value.ErrDivisionByZero("/")
	}
	if ai == math.MinInt64 && bi == -1 {
		return 0, 0, false, value.ErrIntegerOverflow("/")
	}
	return ai / bi, 0, false, nil
}

// Mod implements spec.md §4.1's "%": result takes the sign of the
// dividend (Go's native truncated %, so -7 % 3 == -1, not euclidean mod;
// see DESIGN.md's Open Question decisions).
func Mod(a, b value.Value) (int64, float64, bool, error) {
	af, bf, ai, bi, isFloat, ok := numericPair(a, b)
	if !ok {
		return 0, 0, false, value.ErrTypeMismatch("%", heap.KindOf(a))
	}
	if isFloat {
		if bf == 0 {
			return 0, 0, false, value.ErrDivisionByZero("%")
		}
		return 0, math.Mod(af, bf), true, nil
	}
	if bi == 0 {
		return 0, 0, false, value.ErrDivisionByZero("%")
	}
	if ai == math.MinInt64 && bi == -1 {
		return 0, 0, false, nil
	}
	return ai % bi, 0, false, nil
}

// Pow implements spec.md §4.1's "**": integer power with a negative
// exponent fails for |base| != 1 (spec.md §4.1, SPEC_FULL.md Supplemented
// Features), matching original_source math.cpp pow_op's later/squarer
// version exactly — 0 raised to a negative power is its own distinct
// fatal message, base ±1 returns itself unchanged regardless of the
// exponent's magnitude, and every other base is a fatal RuntimeError
// rather than a silent widen to Float.
func Pow(a, b value.Value) (int64, float64, bool, error) {
	af, bf, ai, bi, isFloat, ok := numericPair(a, b)
	if !ok {
		return 0, 0, false, value.ErrTypeMismatch("**", heap.KindOf(a))
	}
	if isFloat {
		return 0, math.Pow(af, bf), true, nil
	}
	if bi < 0 {
		switch ai {
		case 0:
			return 0, 0, false, value.ErrZeroToNegativePower()
		case 1, -1:
			return ai, 0, false, nil
		default:
			return 0, 0, false, value.ErrNegativePowerBase(ai)
		}
	}

	var result int64 = 1
	base, exp := ai, bi
	for exp > 0 {
		if exp&1 == 1 {
			next := result * base
			if base != 0 && next/base != result {
				return 0, 0, false, value.ErrIntegerOverflow("**")
			}
			result = next
		}
		exp >>= 1
		if exp > 0 {
			next := base * base
			if base != 0 && next/base != base {
				return 0, 0, false, value.ErrIntegerOverflow("**")
			}
			base = next
		}
	}
	return result, 0, false, nil
}

// Neg implements unary "-". The overflow check is against Integer.MIN,
// not -1: DESIGN.md Open Question decision, resolving a discrepancy
// between spec.md's own wording and one original_source revision in
// spec.md's favor.
func Neg(a value.Value) (int64, float64, bool, error) {
	switch heap.KindOf(a) {
	case value.KindSmallInteger, value.KindInteger:
		n := IntegerValue(a)
		if n == math.MinInt64 {
			return 0, 0, false, value.ErrIntegerOverflow("-")
		}
		return -n, 0, false, nil
	case value.KindFloat:
		return 0, -FloatValue(a), true, nil
	default:
		return 0, 0, false, value.ErrTypeMismatch("-", heap.KindOf(a))
	}
}

// integerPair requires both operands to be SmallInteger/Integer, unlike
// numericPair: the bitwise/shift operators have no Float counterpart
// (spec.md §4.10 lists them alongside the checked-arithmetic group, but
// they operate on the integer's bit pattern, not its mathematical value).
func integerPair(a, b value.Value) (ai, bi int64, ok bool) {
	if !IsIntegerLike(a) || !IsIntegerLike(b) {
		return 0, 0, false
	}
	return IntegerValue(a), IntegerValue(b), true
}

// BNot implements spec.md §4.10's "BNot": bitwise complement, grounded on
// original_source/src/tiro/vm/interpreter.cpp's bitwise_not (ctx.get_integer(~v)).
func BNot(a value.Value) (int64, error) {
	if !IsIntegerLike(a) {
		return 0, value.ErrTypeMismatch("~", heap.KindOf(a))
	}
	return ^IntegerValue(a), nil
}

// BAnd implements spec.md §4.10's "BAnd". original_source leaves the
// bitwise group unimplemented (interpreter.cpp's default case); spec.md's
// own opcode table still mandates it, so this is built directly from the
// operator's standard two's-complement semantics rather than ported code.
func BAnd(a, b value.Value) (int64, error) {
	ai, bi, ok := integerPair(a, b)
	if !ok {
		return 0, value.ErrTypeMismatch("&", heap.KindOf(a))
	}
	return ai & bi, nil
}

// BOr implements spec.md §4.10's "BOr".
func BOr(a, b value.Value) (int64, error) {
	ai, bi, ok := integerPair(a, b)
	if !ok {
		return 0, value.ErrTypeMismatch("|", heap.KindOf(a))
	}
	return ai | bi, nil
}

// BXor implements spec.md §4.10's "BXor".
func BXor(a, b value.Value) (int64, error) {
	ai, bi, ok := integerPair(a, b)
	if !ok {
		return 0, value.ErrTypeMismatch("^", heap.KindOf(a))
	}
	return ai ^ bi, nil
}

// LSh implements spec.md §4.10's "LSh": a left-shifted by b bits. A
// negative or out-of-range shift count is a fatal type mismatch rather
// than Go's wraparound shift-count behavior, since the language has no
// user-visible notion of an unsigned shift count.
func LSh(a, b value.Value) (int64, error) {
	ai, bi, ok := integerPair(a, b)
	if !ok {
		return 0, value.ErrTypeMismatch("<<", heap.KindOf(a))
	}
	if bi < 0 || bi >= 64 {
		return 0, value.ErrTypeMismatch("<<", heap.KindOf(b))
	}
	return ai << uint(bi), nil
}

// RSh implements spec.md §4.10's "RSh": an arithmetic (sign-extending)
// right shift, matching Go's native `>>` on a signed integer.
func RSh(a, b value.Value) (int64, error) {
	ai, bi, ok := integerPair(a, b)
	if !ok {
		return 0, value.ErrTypeMismatch(">>", heap.KindOf(a))
	}
	if bi < 0 || bi >= 64 {
		return 0, value.ErrTypeMismatch(">>", heap.KindOf(b))
	}
	return ai >> uint(bi), nil
}
