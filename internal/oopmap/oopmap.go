// Package oopmap records, for every safepoint, which physical registers and
// stack slots hold live oops at that point in the program, so a garbage
// collector walking the stack can find and (if it moves the object)
// rewrite every live reference.
//
// Grounded directly on JDK HotSpot's buildOopMap.cpp, which consumes
// exactly the live-oop/base-pointer information this package's producer
// (internal/regalloc's base-pointer stretching pass) computes.
package oopmap

import "github.com/regalloc/chaitin/internal/regalloc"

// Sink receives the oopmap entries for one safepoint. A real backend
// implements this to serialize the entries into its object file's oopmap
// table; tests implement it to record and assert against what was reported.
type Sink interface {
	// SetOop records that reg holds a live, full-width oop at the safepoint.
	SetOop(reg regalloc.RealReg)
	// SetNarrowOop records that reg holds a live, compressed oop.
	SetNarrowOop(reg regalloc.RealReg)
	// SetDerivedOop records that derived holds a pointer derived from the
	// oop in base, so the GC must adjust derived by however far it adjusts
	// base.
	SetDerivedOop(derived, base regalloc.RealReg)
	// SetCalleeSaved records that reg is a callee-saved register the
	// allocator clobbered and the prologue must have already spilled to a
	// known frame offset, so the GC can find its value there too.
	SetCalleeSaved(reg regalloc.RealReg)
}

// Recording is a Sink that simply accumulates every entry reported to it,
// for tests to assert against.
type Recording struct {
	Oops         []regalloc.RealReg
	NarrowOops   []regalloc.RealReg
	DerivedPairs [][2]regalloc.RealReg
	CalleeSaved  []regalloc.RealReg
}

func (r *Recording) SetOop(reg regalloc.RealReg) { r.Oops = append(r.Oops, reg) }

func (r *Recording) SetNarrowOop(reg regalloc.RealReg) { r.NarrowOops = append(r.NarrowOops, reg) }

func (r *Recording) SetDerivedOop(derived, base regalloc.RealReg) {
	r.DerivedPairs = append(r.DerivedPairs, [2]regalloc.RealReg{derived, base})
}

func (r *Recording) SetCalleeSaved(reg regalloc.RealReg) {
	r.CalleeSaved = append(r.CalleeSaved, reg)
}

// Emit reports, to sink, the oopmap entries for one safepoint given the set
// of LRGIDs live there, each LRG's assigned register, whether it's an oop,
// and (through bases) the base it was derived from if any.
func Emit(sink Sink, liveAt []regalloc.LRGID, lrgs *regalloc.LRGTable, bases regalloc.BaseMap, narrow func(regalloc.LRGID) bool) {
	for _, id := range liveAt {
		lr := lrgs.Get(id)
		if !lr.IsOop || lr.Reg == regalloc.RealRegInvalid {
			continue
		}
		base, isDerived := bases[id]
		switch {
		case isDerived && base != id:
			baseLR := lrgs.Get(base)
			if baseLR.Reg != regalloc.RealRegInvalid {
				sink.SetDerivedOop(lr.Reg, baseLR.Reg)
			}
		case narrow != nil && narrow(id):
			sink.SetNarrowOop(lr.Reg)
		default:
			sink.SetOop(lr.Reg)
		}
	}
}
