// Package loader materializes a validated compiled.Module into the live
// object.Module graph internal/interp runs (spec.md §6): decode-then-
// instantiate, the same two-phase split the teacher's own module
// pipeline uses to keep format validation independent of runtime
// allocation.
package loader

import (
	"github.com/pkg/errors"

	"github.com/tiro-lang/tiro/internal/compiled"
	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
)

// ImportResolver looks up an already-loaded module by name, for
// MemberImport entries. vm.Context's module table implements this.
type ImportResolver interface {
	FindModule(name string) (value.Value, bool)
}

// Load instantiates cm against h, interning names through in and
// resolving cross-module imports through imports.
func Load(h *heap.Heap, in *object.Interner, imports ImportResolver, cm *compiled.Module) (value.Value, error) {
	// The module's own name is itself one of its members (a String), so
	// it can only be resolved into a Symbol once the member table below
	// is fully materialized.
	mod := object.NewModule(h, value.Null)

	for i, member := range cm.Members {
		materialized, err := materializeMember(h, in, imports, mod, member)
		if err != nil {
			return value.Null, errors.Wrapf(err, "loader: member %d", i)
		}
		object.ModuleDefine(h, mod, materialized)
	}

	if cm.Name != compiled.NoRef {
		nameStr := object.ModuleMember(mod, int(cm.Name))
		symbol := in.Intern(h, object.StringBytes(nameStr))
		object.ModuleSetName(mod, symbol)
	}

	for _, export := range cm.Exports {
		nameStr := object.ModuleMember(mod, int(export.Name))
		symbol := in.Intern(h, object.StringBytes(nameStr))
		object.ModuleExport(h, mod, symbol, int(export.Index))
	}

	return mod, nil
}

func materializeMember(h *heap.Heap, in *object.Interner, imports ImportResolver, mod value.Value, m compiled.Member) (value.Value, error) {
	switch m.Kind {
	case compiled.MemberInteger:
		return object.NewInteger(h, m.Integer), nil

	case compiled.MemberFloat:
		return object.NewFloat(h, m.Float), nil

	case compiled.MemberString:
		return object.NewString(h, m.String), nil

	case compiled.MemberImport:
		nameStr := object.ModuleMember(mod, int(m.ImportName))
		target, ok := imports.FindModule(string(object.StringBytes(nameStr)))
		if !ok {
			return value.Null, errors.Errorf("unresolved import %q", object.StringBytes(nameStr))
		}
		return target, nil

	case compiled.MemberFunctionTemplate:
		name := value.Null
		if m.Name != compiled.NoRef {
			nameStr := object.ModuleMember(mod, int(m.Name))
			name = in.Intern(h, object.StringBytes(nameStr))
		}
		constants := object.NewArray(h)
		for _, ref := range m.Constants {
			object.ArrayPush(h, constants, object.ModuleMember(mod, int(ref)))
		}
		code := object.NewCode(h, m.Code, constants)
		return object.NewFunctionTemplate(h, name, code, mod, int(m.ParamCount), int(m.LocalCount)), nil

	default:
		return value.Null, errors.Errorf("unknown member kind %d", m.Kind)
	}
}
