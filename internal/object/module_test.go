package object_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/object"
	"github.com/tiro-lang/tiro/internal/value"
)

func TestModuleDefineMemberExportResolve(t *testing.T) {
	h := heap.New()
	mod := object.NewModule(h, value.Null)

	idx := object.ModuleDefine(h, mod, object.NewInteger(h, 42))
	require.Equal(t, 0, idx)
	require.Equal(t, int64(42), object.IntegerValue(object.ModuleMember(mod, idx)))

	name := object.NewString(h, []byte("answer"))
	object.ModuleExport(h, mod, name, idx)

	resolved, ok := object.ModuleResolve(mod, name)
	require.True(t, ok)
	require.Equal(t, int64(42), object.IntegerValue(resolved))

	_, ok = object.ModuleResolve(mod, object.NewString(h, []byte("missing")))
	require.False(t, ok)
}

func TestModuleSetMemberPatchesInPlace(t *testing.T) {
	h := heap.New()
	mod := object.NewModule(h, value.Null)
	idx := object.ModuleDefine(h, mod, value.Null)
	object.ModuleSetMember(mod, idx, object.NewInteger(h, 7))
	require.Equal(t, int64(7), object.IntegerValue(object.ModuleMember(mod, idx)))
}

func TestModuleSetName(t *testing.T) {
	h := heap.New()
	mod := object.NewModule(h, value.Null)
	name := object.NewString(h, []byte("mymodule"))
	object.ModuleSetName(mod, name)
	require.Equal(t, name, object.ModuleName(mod))
}

func TestCodeInstructionsAndConstants(t *testing.T) {
	h := heap.New()
	constants := object.NewArray(h)
	object.ArrayPush(h, constants, object.NewInteger(h, 99))

	code := object.NewCode(h, []byte{1, 2, 3}, constants)
	require.Equal(t, []byte{1, 2, 3}, object.CodeInstructions(code))
	require.Equal(t, int64(99), object.IntegerValue(object.CodeConstant(code, 0)))
}
