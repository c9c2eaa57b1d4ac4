package oopmap_test

import (
	"testing"

	"github.com/regalloc/chaitin/internal/machdesc"
	"github.com/regalloc/chaitin/internal/oopmap"
	"github.com/regalloc/chaitin/internal/regalloc"
	"github.com/regalloc/chaitin/internal/ssacfg"
	"github.com/stretchr/testify/require"
)

func TestEmit_OopAndDerivedOop(t *testing.T) {
	lrgs := regalloc.NewLRGTable()

	baseID, base := lrgs.New()
	base.IsOop = true
	base.Reg = 1

	derivedID, derived := lrgs.New()
	derived.IsOop = true
	derived.Reg = 2

	plainID, plain := lrgs.New()
	plain.Reg = 3 // not an oop: must be skipped entirely

	bases := regalloc.BaseMap{derivedID: baseID}

	var rec oopmap.Recording
	oopmap.Emit(&rec, []regalloc.LRGID{baseID, derivedID, plainID}, lrgs, bases, nil)

	require.Equal(t, []regalloc.RealReg{1}, rec.Oops)
	require.Equal(t, [][2]regalloc.RealReg{{2, 1}}, rec.DerivedPairs)
	require.Empty(t, rec.NarrowOops)
}

func TestEmit_NarrowOop(t *testing.T) {
	lrgs := regalloc.NewLRGTable()
	id, lr := lrgs.New()
	lr.IsOop = true
	lr.Reg = 5

	var rec oopmap.Recording
	oopmap.Emit(&rec, []regalloc.LRGID{id}, lrgs, nil, func(regalloc.LRGID) bool { return true })

	require.Equal(t, []regalloc.RealReg{5}, rec.NarrowOops)
	require.Empty(t, rec.Oops)
}

func TestEmit_SkipsUncoloredOop(t *testing.T) {
	lrgs := regalloc.NewLRGTable()
	id, lr := lrgs.New()
	lr.IsOop = true
	lr.Reg = regalloc.RealRegInvalid

	var rec oopmap.Recording
	oopmap.Emit(&rec, []regalloc.LRGID{id}, lrgs, nil, nil)

	require.Empty(t, rec.Oops)
	require.Empty(t, rec.DerivedPairs)
}

// TestAllocatorReportsDerivedOopAcrossSafepoint exercises the allocator's own
// oopmap wiring end to end: a derived pointer kept live across a safepoint
// must surface as a set_derived_oop-style entry once the allocator reports
// to the sink installed with SetOopmapSink.
func TestAllocatorReportsDerivedOopAcrossSafepoint(t *testing.T) {
	f := ssacfg.New()
	mach := machdesc.Mock()
	alloc := regalloc.NewAllocator(mach.RegisterInfo())
	m := mach.IntMask()

	var rec oopmap.Recording
	alloc.SetOopmapSink(&rec)

	b := f.NewBlock(true)
	base := f.NewVReg(regalloc.RegTypeInt)
	derived := f.NewVReg(regalloc.RegTypeInt)

	defBase := ssacfg.NewInstr("newobj").Def(base, m)
	defBase.OopDef()
	b.Emit(defBase)

	addIdx := ssacfg.NewInstr("addr").Def(derived, m).Use(base, m)
	addIdx.DerivedOop()
	addIdx.OopDef()
	b.Emit(addIdx)

	call := ssacfg.NewInstr("call").Use(base, m)
	call.Call()
	call.Safepoint()
	b.Emit(call)

	use := ssacfg.NewInstr("load").Def(f.NewVReg(regalloc.RegTypeInt), m).Use(derived, m)
	b.Emit(use)
	b.Emit(ssacfg.NewInstr("ret").Use(base, m).Return())

	f.Finalize([]*ssacfg.Blk{b})

	require.NoError(t, alloc.Allocate(f))

	require.Len(t, rec.DerivedPairs, 1, "safepoint should report exactly one derived/base pair")
	require.Equal(t, addIdx.AssignedDef().RealReg(), rec.DerivedPairs[0][0])
	require.Equal(t, defBase.AssignedDef().RealReg(), rec.DerivedPairs[0][1])
}
