// Package machdesc is the machine description the allocator queries but
// never mutates: register names, the allocatable-register tables per bank,
// save-on-call/save-on-entry policy, and the idealreg2regmask/
// idealreg2spillmask-style tables a real target would derive from its
// calling convention.
//
// Grounded on regalloc.RegisterInfo's shape, generalized with the
// stack-slot/AllStack and pair/vector concepts RegMask already models; the
// mock target below is a small four-integer/two-float-register machine
// sized for exercising every allocator phase without a large register file.
package machdesc

import (
	"fmt"

	"github.com/regalloc/chaitin/internal/regalloc"
)

// Info is a fully concrete machine description: enough to build a
// regalloc.RegisterInfo and to classify operand register classes when
// building a CFG by hand (as internal/ssacfg's test driver does).
type Info struct {
	IntRegs, FloatRegs     []regalloc.RealReg
	CalleeSaved            map[regalloc.RealReg]struct{}
	CallerSaved            map[regalloc.RealReg]struct{}
	StackSlotBase          regalloc.RealReg
	FramePointer           regalloc.RealReg
	StackSlotAlignmentBits int
}

// RealRegName is the debug name for a real register on this mock target:
// i0..i3 for the four integer registers, f0..f1 for the two float registers,
// and spill sentinels print as their underlying int per regalloc's own
// RealReg.String.
func (i *Info) RealRegName(r regalloc.RealReg) string {
	for idx, rr := range i.IntRegs {
		if rr == r {
			return fmt.Sprintf("i%d", idx)
		}
	}
	for idx, rr := range i.FloatRegs {
		if rr == r {
			return fmt.Sprintf("f%d", idx)
		}
	}
	return fmt.Sprintf("r%d", r)
}

// RegisterInfo builds the regalloc.RegisterInfo this Info describes.
func (i *Info) RegisterInfo() *regalloc.RegisterInfo {
	maxReg := i.FramePointer
	for _, r := range append(append([]regalloc.RealReg{}, i.IntRegs...), i.FloatRegs...) {
		if r > maxReg {
			maxReg = r
		}
	}
	realRegToVReg := make([]regalloc.VReg, maxReg+1)
	for _, r := range i.IntRegs {
		realRegToVReg[r] = regalloc.FromRealReg(r, regalloc.RegTypeInt)
	}
	for _, r := range i.FloatRegs {
		realRegToVReg[r] = regalloc.FromRealReg(r, regalloc.RegTypeFloat)
	}

	var allocatable [regalloc.NumRegType][]regalloc.RealReg
	allocatable[regalloc.RegTypeInt] = i.IntRegs
	allocatable[regalloc.RegTypeFloat] = i.FloatRegs

	return &regalloc.RegisterInfo{
		AllocatableRegisters: allocatable,
		CalleeSavedRegisters: i.CalleeSaved,
		CallerSavedRegisters: i.CallerSaved,
		RealRegToVReg:        realRegToVReg,
		RealRegName:          i.RealRegName,
	}
}

// IntMask returns a RegMask naming every allocatable integer register.
func (i *Info) IntMask() regalloc.RegMask {
	return regalloc.NewRegMask(i.IntRegs...)
}

// FloatMask returns a RegMask naming every allocatable float register.
func (i *Info) FloatMask() regalloc.RegMask {
	return regalloc.NewRegMask(i.FloatRegs...)
}

// StackMask returns an AllStack mask representing the (conceptually
// infinite) supply of stack slots, used as the fallback mask for spilled
// values.
func (i *Info) StackMask() regalloc.RegMask {
	var m regalloc.RegMask
	m.SetAllStack(true)
	return m
}

// Mock returns a small four-integer/two-float-register test target: i0-i3,
// f0-f1, with i2/i3 and f1 marked callee-saved (so tests exercising phis,
// two-address instructions, and clobbered-register reporting have something
// on both sides of the save-on-entry policy).
func Mock() *Info {
	i0, i1, i2, i3 := regalloc.RealReg(1), regalloc.RealReg(2), regalloc.RealReg(3), regalloc.RealReg(4)
	f0, f1 := regalloc.RealReg(5), regalloc.RealReg(6)
	return &Info{
		IntRegs:   []regalloc.RealReg{i0, i1, i2, i3},
		FloatRegs: []regalloc.RealReg{f0, f1},
		CalleeSaved: map[regalloc.RealReg]struct{}{
			i2: {}, i3: {}, f1: {},
		},
		CallerSaved: map[regalloc.RealReg]struct{}{
			i0: {}, i1: {}, f0: {},
		},
		FramePointer:           regalloc.RealReg(7),
		StackSlotAlignmentBits: 3,
	}
}
