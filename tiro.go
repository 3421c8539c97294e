// Package tiro is the embedding entry point: a thin re-export of
// internal/vm.Context plus the module-loading glue, so a host only needs
// to import this one package (spec.md §6's control surface).
package tiro

import (
	"go.uber.org/zap"

	"github.com/tiro-lang/tiro/internal/compiled"
	"github.com/tiro-lang/tiro/internal/loader"
	"github.com/tiro-lang/tiro/internal/value"
	"github.com/tiro-lang/tiro/internal/vm"
)

// Context runs compiled Tiro modules. See internal/vm.Context for the
// full control surface (GetInteger, GetSymbol, MakeCoroutine, Run, ...).
type Context = vm.Context

// NewContext creates a Context with its own heap and module table. log
// may be nil to discard every log entry the collector and scheduler emit.
func NewContext(log *zap.Logger) *Context {
	return vm.New(log)
}

// LoadModule decodes data as a compiled module (spec.md §6's wire
// format), instantiates it against ctx, and registers it under name so
// later modules can import it by that name.
func LoadModule(ctx *Context, name string, data []byte) (value.Value, error) {
	cm, err := compiled.Decode(data)
	if err != nil {
		return value.Null, err
	}
	mod, err := loader.Load(ctx.Heap(), ctx.Interner(), ctx, cm)
	if err != nil {
		return value.Null, err
	}
	ctx.AddModule(name, mod)
	return mod, nil
}
