package ssacfg_test

import (
	"testing"

	"github.com/regalloc/chaitin/internal/machdesc"
	"github.com/regalloc/chaitin/internal/regalloc"
	"github.com/regalloc/chaitin/internal/ssacfg"
	"github.com/stretchr/testify/require"
)

func newAllocator() (*regalloc.Allocator, *machdesc.Info) {
	mach := machdesc.Mock()
	return regalloc.NewAllocator(mach.RegisterInfo()), mach
}

// A straight-line function with no register pressure: every value should
// land in a hardware register with nothing spilled.
func TestAllocate_StraightLineAdd(t *testing.T) {
	f := ssacfg.New()
	alloc, mach := newAllocator()
	m := mach.IntMask()

	b := f.NewBlock(true)
	a := f.NewVReg(regalloc.RegTypeInt)
	bv := f.NewVReg(regalloc.RegTypeInt)
	sum := f.NewVReg(regalloc.RegTypeInt)

	defA := ssacfg.NewInstr("const").Def(a, m)
	defB := ssacfg.NewInstr("const").Def(bv, m)
	add := ssacfg.NewInstr("add").Def(sum, m).Use(a, m).Use(bv, m)
	ret := ssacfg.NewInstr("ret").Use(sum, m).Return()
	b.Emit(defA)
	b.Emit(defB)
	b.Emit(add)
	b.Emit(ret)
	f.Finalize([]*ssacfg.Blk{b})

	require.NoError(t, alloc.Allocate(f))

	require.True(t, defA.AssignedDef().IsRealReg())
	require.True(t, defB.AssignedDef().IsRealReg())
	require.True(t, add.AssignedDef().IsRealReg())
	for _, u := range ret.AssignedUses() {
		require.True(t, u.IsRealReg())
	}
	require.Empty(t, f.Stores)
	require.Empty(t, f.Reloads)
	require.True(t, f.IsDone)
}

// A two-address instruction's def must land in the same register as its
// designated input.
func TestAllocate_TwoAddressMerge(t *testing.T) {
	f := ssacfg.New()
	alloc, mach := newAllocator()
	m := mach.IntMask()

	b := f.NewBlock(true)
	x := f.NewVReg(regalloc.RegTypeInt)
	y := f.NewVReg(regalloc.RegTypeInt)
	x2 := f.NewVReg(regalloc.RegTypeInt)

	defX := ssacfg.NewInstr("const").Def(x, m)
	// inc is x2 = x + y, a two-address instruction whose def must share x's
	// register: Uses()[0] is the two-address operand.
	inc := ssacfg.NewInstr("inc").Def(x2, m).Use(x, m).Use(y, m).TwoAddress(0)
	ret := ssacfg.NewInstr("ret").Use(x2, m).Return()
	b.Emit(defX)
	b.Emit(ssacfg.NewInstr("const").Def(y, m))
	b.Emit(inc)
	b.Emit(ret)
	f.Finalize([]*ssacfg.Blk{b})

	require.NoError(t, alloc.Allocate(f))

	require.Equal(t, inc.AssignedDef().RealReg(), inc.AssignedUses()[0].RealReg(),
		"two-address def and its designated input must share a register")
}

// Five integer values simultaneously live against a four-register int bank
// force a spill: a store and a matching reload must appear.
func TestAllocate_ForcedSpillOnOverlappingLiveRanges(t *testing.T) {
	f := ssacfg.New()
	alloc, mach := newAllocator()
	m := mach.IntMask()

	b := f.NewBlock(true)
	vregs := make([]regalloc.VReg, 5)
	for i := range vregs {
		vregs[i] = f.NewVReg(regalloc.RegTypeInt)
		b.Emit(ssacfg.NewInstr("const").Def(vregs[i], m))
	}
	t1 := f.NewVReg(regalloc.RegTypeInt)
	t2 := f.NewVReg(regalloc.RegTypeInt)
	t3 := f.NewVReg(regalloc.RegTypeInt)
	t4 := f.NewVReg(regalloc.RegTypeInt)
	b.Emit(ssacfg.NewInstr("add").Def(t1, m).Use(vregs[0], m).Use(vregs[1], m))
	b.Emit(ssacfg.NewInstr("add").Def(t2, m).Use(vregs[2], m).Use(vregs[3], m))
	b.Emit(ssacfg.NewInstr("add").Def(t3, m).Use(t1, m).Use(t2, m))
	b.Emit(ssacfg.NewInstr("add").Def(t4, m).Use(t3, m).Use(vregs[4], m))
	b.Emit(ssacfg.NewInstr("ret").Use(t4, m).Return())
	f.Finalize([]*ssacfg.Blk{b})

	require.NoError(t, alloc.Allocate(f))
	require.NotEmpty(t, f.Stores, "five simultaneously-live int values need a spill on a four-register bank")
	require.NotEmpty(t, f.Reloads)
}

// Two predecessor blocks defining the same phi-joined value with no
// interference should be coalesced onto a single color.
func TestAllocate_PhiCoalescingAcrossDiamond(t *testing.T) {
	f := ssacfg.New()
	alloc, mach := newAllocator()
	m := mach.IntMask()

	entry := f.NewBlock(true)
	left := f.NewBlock(false)
	right := f.NewBlock(false)
	join := f.NewBlock(false)
	left.AddPred(entry)
	right.AddPred(entry)
	join.AddPred(left)
	join.AddPred(right)

	cond := f.NewVReg(regalloc.RegTypeInt)
	entry.Emit(ssacfg.NewInstr("const").Def(cond, m))

	xl := f.NewVReg(regalloc.RegTypeInt)
	left.Emit(ssacfg.NewInstr("const").Def(xl, m).Use(cond, m))

	xr := f.NewVReg(regalloc.RegTypeInt)
	right.Emit(ssacfg.NewInstr("const").Def(xr, m).Use(cond, m))

	z := f.NewVReg(regalloc.RegTypeInt)
	phi := ssacfg.NewInstr("phi").Def(z, m).Use(xl, m).Use(xr, m).Phi()
	join.Emit(phi)
	ret := ssacfg.NewInstr("ret").Use(z, m).Return()
	join.Emit(ret)

	f.Finalize([]*ssacfg.Blk{entry, left, right, join})

	require.NoError(t, alloc.Allocate(f))

	zReg := phi.AssignedDef().RealReg()
	phiUses := phi.AssignedUses()
	require.Len(t, phiUses, 2)
	require.Equal(t, zReg, phiUses[0].RealReg(), "phi's left input should be coalesced onto the phi's color")
	require.Equal(t, zReg, phiUses[1].RealReg(), "phi's right input should be coalesced onto the phi's color")
}

// A derived pointer must keep its base oop alive (and both must still hold
// valid registers) across an intervening safepoint.
func TestAllocate_DerivedOopLivesAcrossSafepoint(t *testing.T) {
	f := ssacfg.New()
	alloc, mach := newAllocator()
	m := mach.IntMask()

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

	require.True(t, defBase.AssignedDef().IsRealReg())
	require.True(t, addIdx.AssignedDef().IsRealReg())
	require.True(t, use.AssignedUses()[0].IsRealReg(), "derived pointer must still be live after the safepoint call")

	pairs := call.OopPairs()
	require.Len(t, pairs, 1, "the safepoint should have recorded exactly one derived/base debug pair")
}

// A chain of plain register copies with no other consumers should be
// elided entirely once every link lands in the same color.
func TestAllocate_CopyChainElision(t *testing.T) {
	f := ssacfg.New()
	alloc, mach := newAllocator()
	m := mach.IntMask()

	b := f.NewBlock(true)
	a := f.NewVReg(regalloc.RegTypeInt)
	c1 := f.NewVReg(regalloc.RegTypeInt)
	c2 := f.NewVReg(regalloc.RegTypeInt)

	defA := ssacfg.NewInstr("const").Def(a, m)
	copy1 := ssacfg.NewInstr("mov").Def(c1, m).Use(a, m)
	copy1.Copy()
	copy2 := ssacfg.NewInstr("mov").Def(c2, m).Use(c1, m)
	copy2.Copy()
	ret := ssacfg.NewInstr("ret").Use(c2, m).Return()
	b.Emit(defA)
	b.Emit(copy1)
	b.Emit(copy2)
	b.Emit(ret)
	f.Finalize([]*ssacfg.Blk{b})

	require.NoError(t, alloc.Allocate(f))

	require.True(t, copy1.Elided(), "copy with source and dest sharing a register should be elided")
	require.True(t, copy2.Elided(), "copy with source and dest sharing a register should be elided")
}

// FuseCISCLoads folds a copy immediately feeding a CISC-fusable consumer
// into that consumer's memory operand, without needing a full allocation
// pass first.
func TestFuseCISCLoads_FoldsCopyIntoFusableConsumer(t *testing.T) {
	f := ssacfg.New()
	var m regalloc.RegMask
	m.SetAllStack(true)

	b := f.NewBlock(true)
	v := f.NewVReg(regalloc.RegTypeInt)
	w := f.NewVReg(regalloc.RegTypeInt)

	reload := ssacfg.NewInstr("reload").Def(v, m)
	reload.Copy()
	consumer := ssacfg.NewInstr("add").Def(w, m).Use(v, m)
	consumer.CISCFusable()

	b.Emit(reload)
	b.Emit(consumer)
	f.Finalize([]*ssacfg.Blk{b})

	fused := regalloc.FuseCISCLoads(f)
	require.Equal(t, 1, fused)
}

func TestFuseCISCLoads_SkipsNonFusableConsumer(t *testing.T) {
	f := ssacfg.New()
	var m regalloc.RegMask
	m.SetAllStack(true)

	b := f.NewBlock(true)
	v := f.NewVReg(regalloc.RegTypeInt)
	w := f.NewVReg(regalloc.RegTypeInt)

	reload := ssacfg.NewInstr("reload").Def(v, m)
	reload.Copy()
	consumer := ssacfg.NewInstr("add").Def(w, m).Use(v, m)

	b.Emit(reload)
	b.Emit(consumer)
	f.Finalize([]*ssacfg.Blk{b})

	require.Equal(t, 0, regalloc.FuseCISCLoads(f))
}
