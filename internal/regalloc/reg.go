package regalloc

import (
	"fmt"
)

// VReg represents a register assigned to a value produced somewhere in the
// CFG. A VReg may or may not be bound to a physical register yet; once it is,
// RealReg returns the physical register backing it.
type VReg uint64

// VRegID is the lower 32 bits of a VReg: the pure identifier, independent of
// any RealReg binding.
type VRegID uint32

const MaxVRegID = ^VRegID(0)

// RealReg returns the physical register bound to this VReg, or
// RealRegInvalid if none is bound yet.
func (v VReg) RealReg() RealReg {
	return RealReg(v >> 32)
}

// IsRealReg reports whether this VReg is already bound to a physical
// register.
func (v VReg) IsRealReg() bool {
	return v.RealReg() != RealRegInvalid
}

// FromRealReg builds a VReg that directly denotes a specific physical
// register; used to represent pre-colored operands (call arguments and
// results constrained to a fixed ABI register, the stack/frame pointer,
// etc).
func FromRealReg(r RealReg, typ RegType) VReg {
	rid := VRegID(r)
	if rid > vRegIDReservedForRealNum {
		panic(fmt.Sprintf("invalid real reg %d", r))
	}
	return VReg(r).SetRealReg(r).SetRegType(typ)
}

// SetRealReg returns a copy of v bound to RealReg r.
func (v VReg) SetRealReg(r RealReg) VReg {
	return VReg(r)<<32 | (v & 0xff_00_ffffffff)
}

// RegType returns the register bank (integer or float/vector) this VReg
// belongs to.
func (v VReg) RegType() RegType {
	return RegType(v >> 40)
}

// SetRegType returns a copy of v tagged with RegType t.
func (v VReg) SetRegType(t RegType) VReg {
	return VReg(t)<<40 | (v & 0x00_ff_ffffffff)
}

// ID returns the VRegID of this VReg, independent of any RealReg binding.
func (v VReg) ID() VRegID {
	return VRegID(v & 0xffffffff)
}

// Valid reports whether v denotes an actual register (as opposed to the
// VRegInvalid sentinel).
func (v VReg) Valid() bool {
	return v.ID() != vRegIDInvalid && v.RegType() != RegTypeInvalid
}

// String implements fmt.Stringer.
func (v VReg) String() string {
	if v.IsRealReg() {
		return fmt.Sprintf("r%d", v.RealReg())
	}
	return fmt.Sprintf("v%d", v.ID())
}

// RealReg represents a physical register (or, when RealRegInvalid, the
// absence of one).
type RealReg byte

// RealRegInvalid denotes the absence of a physical register binding.
const RealRegInvalid RealReg = 0

const (
	vRegIDInvalid            VRegID = 1 << 31
	VRegIDNonReservedBegin          = vRegIDReservedForRealNum
	vRegIDReservedForRealNum VRegID = 128
	// VRegInvalid is the zero-value sentinel VReg.
	VRegInvalid = VReg(vRegIDInvalid)
)

// String implements fmt.Stringer.
func (r RealReg) String() string {
	if r == RealRegInvalid {
		return "invalid"
	}
	return fmt.Sprintf("r%d", byte(r))
}

// RegType is the register bank a VReg/LRG belongs to. Spill classes,
// pressure limits, and allocatable-register tables are all indexed by
// RegType; the coloring and coalescing passes treat each bank's interference
// graph as disjoint from the others.
type RegType byte

const (
	RegTypeInvalid RegType = iota
	RegTypeInt
	RegTypeFloat
	NumRegType
)

// String implements fmt.Stringer.
func (r RegType) String() string {
	switch r {
	case RegTypeInt:
		return "int"
	case RegTypeFloat:
		return "float"
	default:
		return "invalid"
	}
}

// RealRegsNumMax bounds the number of distinct physical registers (including
// stack-slot "registers" below the AllStack chunk boundary) any one target
// can expose; RegMask sizes its backing storage off of it.
const RealRegsNumMax = 128
