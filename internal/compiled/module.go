// Package compiled decodes and validates the serialized module format of
// spec.md §6: a flat member table addressed by index, where every
// reference a member carries must point strictly backward (to a
// lower-indexed member already decoded), so the table can be built in one
// forward pass with no patch-up phase. internal/loader turns a validated
// *Module into the live object.Module graph the interpreter runs.
package compiled

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// maxMembers bounds a single module's member table (spec.md §6): a
// 2^20-entry cap, generous for any real module, that keeps a corrupt
// length prefix from causing a multi-gigabyte allocation.
const maxMembers = 1 << 20

var magic = [4]byte{'T', 'I', 'R', 'O'}

const formatVersion = 1

// MemberKind tags the union spec.md §6 calls "Member".
type MemberKind uint8

const (
	MemberInteger MemberKind = iota
	MemberFloat
	MemberString
	MemberFunctionTemplate
	MemberImport
)

// Ref is a forward-only reference: the index of an earlier member in the
// same module's table.
type Ref uint32

// NoRef marks an optional reference field that is absent.
const NoRef Ref = 0xFFFFFFFF

// Member is one decoded table entry. Which fields are meaningful depends
// on Kind.
type Member struct {
	Kind MemberKind

	Integer int64
	Float   float64
	String  []byte

	// MemberFunctionTemplate
	Name       Ref // NoRef if anonymous
	ParamCount uint16
	LocalCount uint16
	Code       []byte
	Constants  []Ref

	// MemberImport
	ImportName Ref
}

// Export maps an exported name (by String-member reference) to the
// member index it resolves to.
type Export struct {
	Name  Ref
	Index uint32
}

// Module is the decoded, validated wire format of one compilation unit.
type Module struct {
	Name    Ref
	Members []Member
	Exports []Export
}

// Decode parses and validates data as a compiled Module. Every forward
// reference is checked against the member index it appears in as it is
// decoded, so a Module returned by Decode is guaranteed reference-valid:
// internal/loader never needs to re-check bounds.
func Decode(data []byte) (*Module, error) {
	r := &reader{data: data}

	var gotMagic [4]byte
	if !r.bytes(gotMagic[:]) || gotMagic != magic {
		return nil, errors.New("compiled: bad magic")
	}
	version, ok := r.u32()
	if !ok || version != formatVersion {
		return nil, errors.Errorf("compiled: unsupported version %d", version)
	}

	nameRef, ok := r.u32()
	if !ok {
		return nil, errors.New("compiled: truncated module name")
	}

	memberCount, ok := r.u32()
	if !ok {
		return nil, errors.New("compiled: truncated member count")
	}
	if memberCount > maxMembers {
		return nil, errors.Errorf("compiled: member count %d exceeds cap %d", memberCount, maxMembers)
	}

	m := &Module{Name: Ref(nameRef), Members: make([]Member, 0, memberCount)}

	for i := uint32(0); i < memberCount; i++ {
		member, err := decodeMember(r, i)
		if err != nil {
			return nil, errors.Wrapf(err, "compiled: member %d", i)
		}
		m.Members = append(m.Members, member)
	}

	if err := checkRef(m.Name, uint32(len(m.Members))); err != nil {
		return nil, errors.Wrap(err, "compiled: module name")
	}

	exportCount, ok := r.u32()
	if !ok {
		return nil, errors.New("compiled: truncated export count")
	}
	for i := uint32(0); i < exportCount; i++ {
		nameRef, ok := r.u32()
		idx, ok2 := r.u32()
		if !ok || !ok2 {
			return nil, errors.New("compiled: truncated export entry")
		}
		if err := checkRef(Ref(nameRef), uint32(len(m.Members))); err != nil {
			return nil, errors.Wrapf(err, "compiled: export %d name", i)
		}
		if idx >= uint32(len(m.Members)) {
			return nil, errors.Errorf("compiled: export %d target %d out of range", i, idx)
		}
		m.Exports = append(m.Exports, Export{Name: Ref(nameRef), Index: idx})
	}

	if r.remaining() != 0 {
		return nil, errors.New("compiled: trailing data after module")
	}
	return m, nil
}

// checkRef enforces the forward-only rule: ref must either be NoRef or
// point strictly before memberIndex (the member currently being decoded,
// or len(Members) for the trailing module-name/export references).
func checkRef(ref Ref, memberIndex uint32) error {
	if ref == NoRef {
		return nil
	}
	if uint32(ref) >= memberIndex {
		return errors.Errorf("forward reference %d >= %d", ref, memberIndex)
	}
	return nil
}

func decodeMember(r *reader, index uint32) (Member, error) {
	tag, ok := r.u8()
	if !ok {
		return Member{}, errors.New("truncated member tag")
	}

	switch MemberKind(tag) {
	case MemberInteger:
		n, ok := r.i64()
		if !ok {
			return Member{}, errors.New("truncated integer member")
		}
		return Member{Kind: MemberInteger, Integer: n}, nil

	case MemberFloat:
		f, ok := r.f64()
		if !ok {
			return Member{}, errors.New("truncated float member")
		}
		return Member{Kind: MemberFloat, Float: f}, nil

	case MemberString:
		s, ok := r.blob()
		if !ok {
			return Member{}, errors.New("truncated string member")
		}
		return Member{Kind: MemberString, String: s}, nil

	case MemberImport:
		nameRef, ok := r.u32()
		if !ok {
			return Member{}, errors.New("truncated import member")
		}
		if err := checkRef(Ref(nameRef), index); err != nil {
			return Member{}, errors.Wrap(err, "import name")
		}
		return Member{Kind: MemberImport, ImportName: Ref(nameRef)}, nil

	case MemberFunctionTemplate:
		nameRef, ok := r.u32()
		if !ok {
			return Member{}, errors.New("truncated function template")
		}
		if err := checkRef(Ref(nameRef), index); err != nil {
			return Member{}, errors.Wrap(err, "template name")
		}
		paramCount, ok := r.u16()
		localCount, ok2 := r.u16()
		if !ok || !ok2 {
			return Member{}, errors.New("truncated function template counts")
		}
		code, ok := r.blob()
		if !ok {
			return Member{}, errors.New("truncated function template code")
		}
		constCount, ok := r.u32()
		if !ok {
			return Member{}, errors.New("truncated constant count")
		}
		constants := make([]Ref, 0, constCount)
		for i := uint32(0); i < constCount; i++ {
			ref, ok := r.u32()
			if !ok {
				return Member{}, errors.New("truncated constant ref")
			}
			if err := checkRef(Ref(ref), index); err != nil {
				return Member{}, errors.Wrapf(err, "constant %d", i)
			}
			constants = append(constants, Ref(ref))
		}
		return Member{
			Kind:       MemberFunctionTemplate,
			Name:       Ref(nameRef),
			ParamCount: paramCount,
			LocalCount: localCount,
			Code:       code,
			Constants:  constants,
		}, nil

	default:
		return Member{}, fmt.Errorf("unknown member tag %d", tag)
	}
}

// reader is a minimal little-endian cursor over a byte slice.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) bytes(out []byte) bool {
	if r.remaining() < len(out) {
		return false
	}
	copy(out, r.data[r.pos:])
	r.pos += len(out)
	return true
}

func (r *reader) u8() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *reader) u16() (uint16, bool) {
	if r.remaining() < 2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, true
}

func (r *reader) u32() (uint32, bool) {
	if r.remaining() < 4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, true
}

func (r *reader) i64() (int64, bool) {
	if r.remaining() < 8 {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return int64(v), true
}

func (r *reader) f64() (float64, bool) {
	bits, ok := r.u64()
	if !ok {
		return 0, false
	}
	return math.Float64frombits(bits), true
}

func (r *reader) u64() (uint64, bool) {
	if r.remaining() < 8 {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, true
}

func (r *reader) blob() ([]byte, bool) {
	n, ok := r.u32()
	if !ok || r.remaining() < int(n) {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, true
}
