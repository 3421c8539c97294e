package handle

import "github.com/tiro-lang/tiro/internal/value"

// RegisterBankSize is the interpreter's fixed temporary-register count
// (spec.md §4.3 example: 16).
const RegisterBankSize = 16

// RegisterBank is the small fixed-size root category for values that
// don't yet belong on the coroutine's value stack (spec.md §4.3 category
// 3). A Context owns one and the collector walks it exactly like a page
// of rooted locals. internal/interp neither writes to it nor resets it.
type RegisterBank struct {
	regs [RegisterBankSize]value.Value
}

// Reset clears every register to Null. Nothing in the runtime calls it at
// instruction boundaries; registers keep their values until Set or Reset.
func (b *RegisterBank) Reset() {
	for i := range b.regs {
		b.regs[i] = value.Null
	}
}

// Get returns register i.
func (b *RegisterBank) Get(i int) value.Value { return b.regs[i] }

// Set stores v into register i.
func (b *RegisterBank) Set(i int, v value.Value) { b.regs[i] = v }

// WalkRoots visits every register, for the collector's root-marking pass.
func (b *RegisterBank) WalkRoots(visit func(*value.Value)) {
	for i := range b.regs {
		visit(&b.regs[i])
	}
}
