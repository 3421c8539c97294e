package value

import (
	"fmt"

	"github.com/pkg/errors"
)

// RuntimeError is a fatal condition per spec.md §7. There is no recovery
// policy at the bytecode level: a RuntimeError propagates out of the
// interpreter loop and out of Context.run unwinding every handle scope on
// the way, the Go equivalent of the source's C++ exceptions (design note
// §9). pkg/errors.WithStack is used at the construction site so the
// original opcode/frame that raised the error is still recoverable from
// the error chain after it has unwound across several Go call frames.
type RuntimeError struct {
	cause error
}

func (e *RuntimeError) Error() string { return e.cause.Error() }

// Unwrap lets errors.Is/errors.As and pkg/errors.Cause see through to the
// underlying message.
func (e *RuntimeError) Unwrap() error { return e.cause }

// Fatalf constructs a RuntimeError with a formatted message, annotated with
// a stack trace at the call site.
func Fatalf(format string, args ...any) *RuntimeError {
	return &RuntimeError{cause: errors.WithStack(fmt.Errorf(format, args...))}
}

// Errors mirroring the taxonomy of spec.md §7, built as message
// constructors rather than distinct Go types: native code and the
// interpreter both only ever need to format-and-propagate, never to
// branch on error kind (the recovery policy is "none").

func ErrIntegerOverflow(op string) *RuntimeError {
	return Fatalf("Integer overflow in %s.", op)
}

func ErrDivisionByZero(op string) *RuntimeError {
	return Fatalf("Integer %s by zero.", op)
}

func ErrTypeMismatch(op string, k Kind) *RuntimeError {
	return Fatalf("Invalid operand type for %s: %s.", op, k)
}

func ErrUndefinedSymbol(name string) *RuntimeError {
	return Fatalf("Undefined symbol: '%s'.", name)
}

func ErrMissingMember(name string) *RuntimeError {
	return Fatalf("Object has no member named '%s'.", name)
}

func ErrUndefinedObserved() *RuntimeError {
	return Fatalf("Attempt to use an undefined value.")
}

func ErrStackOverflow() *RuntimeError {
	return Fatalf("Coroutine stack would exceed its maximum size.")
}

func ErrIndexOutOfBounds(idx, size int) *RuntimeError {
	return Fatalf("Index %d is out of bounds (size %d).", idx, size)
}

func ErrNotCallable(k Kind) *RuntimeError {
	return Fatalf("Value of type %s is not callable.", k)
}

func ErrAssertionFailed(expr, message string) *RuntimeError {
	if message != "" {
		return Fatalf("Assertion `%s` failed: %s", expr, message)
	}
	return Fatalf("Assertion `%s` failed.", expr)
}

func ErrNotIndexable(k Kind) *RuntimeError {
	return Fatalf("Loading an index is not supported for objects of type %s.", k)
}

func ErrNotIndexAssignable(k Kind) *RuntimeError {
	return Fatalf("Storing an index is not supported for objects of type %s.", k)
}

func ErrZeroToNegativePower() *RuntimeError {
	return Fatalf("Cannot raise 0 to a negative power.")
}

func ErrNegativePowerBase(base int64) *RuntimeError {
	return Fatalf("Integer power with a negative exponent is only defined for |base| == 1 (got %d).", base)
}
