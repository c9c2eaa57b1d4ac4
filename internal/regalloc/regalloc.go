// Package regalloc performs global register allocation by Chaitin-Briggs
// graph coloring: build an interference graph from liveness, coalesce
// copies where it stays colorable, simplify the graph onto a stack by
// repeatedly removing low-degree nodes (forcing a spill candidate when none
// remain), then select a color for each node in reverse, splitting and
// retrying whenever a node fails to color.
package regalloc

// References:
// * https://en.wikipedia.org/wiki/Chaitin%27s_algorithm
// * https://www.cs.cmu.edu/~fp/courses/15411-f08/lectures/03-regalloc.pdf
// * Chaitin, Auslander, Chandra, Cocke, Hopkins, Markstein, "Register
//   Allocation via Coloring", 1981.

import (
	"fmt"
)

// maxSplitRetries bounds the spill-split-recycle loop; exceeding it without
// reaching a fixed point is a compilation failure.
const maxSplitRetries = 24

// RegisterInfo holds the statically-known ISA-specific register information
// the allocator queries but never mutates.
type RegisterInfo struct {
	// AllocatableRegisters is a 2D array of allocatable RealReg, indexed by
	// RegType. The order matters: the first element is the most preferred
	// one when allocating.
	AllocatableRegisters [NumRegType][]RealReg
	CalleeSavedRegisters map[RealReg]struct{}
	CallerSavedRegisters map[RealReg]struct{}
	RealRegToVReg        []VReg
	// RealRegName returns the name of the given RealReg for debugging.
	RealRegName func(r RealReg) string
}

// Allocator is a register allocator. One Allocator can be reused across
// many Allocate calls; Reset (called automatically at the start of Allocate)
// returns its arena-backed tables to their initial empty state.
type Allocator struct {
	regInfo *RegisterInfo
	sink    FailureSink
	oopSink OopSink

	lrgs *LRGTable
	free *indexSetFreeList
}

// NewAllocator returns a new Allocator for the given static register info.
func NewAllocator(regInfo *RegisterInfo) *Allocator {
	return &Allocator{
		regInfo: regInfo,
		sink:    noopFailureSink{},
		oopSink: noopOopSink{},
		lrgs:    NewLRGTable(),
		free:    newIndexSetFreeList(),
	}
}

// SetFailureSink installs a sink that receives structured failure records in
// addition to the error Allocate returns.
func (a *Allocator) SetFailureSink(sink FailureSink) {
	if sink == nil {
		sink = noopFailureSink{}
	}
	a.sink = sink
}

// Reset returns the allocator's arena-backed tables to their initial state
// so it can be reused for the next Function.
func (a *Allocator) Reset() {
	a.lrgs.Reset()
}

// Allocate runs the full pipeline over f: liveness, base-pointer stretching,
// interference-graph construction, coalescing, Simplify/Select, and — when
// Select cannot color everything — Split followed by a retry, up to
// maxSplitRetries times. On success every Instr in f has had AssignDef/
// AssignUses called, with RealReg-bound VRegs for every operand whose live
// range got a register (operands of spilled live ranges are passed through
// unbound), every safepoint's live oops
// (and any registered OopSink) have been reported, redundant copies have
// been elided, and f.Done() has been called.
func (a *Allocator) Allocate(f Function) error {
	a.Reset()

	numBlocks := 0
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		if id := b.ID() + 1; id > numBlocks {
			numBlocks = id
		}
	}

	maxVRegID := a.seedLRGTable(f)
	names := func(v VReg) LRGID {
		if !v.Valid() {
			return lrgIDInvalid
		}
		return a.lrgs.Find(LRGID(v.ID()))
	}
	_ = maxVRegID

	var (
		liveness *Liveness
		ifg      *IFG
		lists    *Worklists
		sel      SelectResult
		bases    BaseMap
	)

	for attempt := 0; ; attempt++ {
		if attempt > maxSplitRetries {
			return wrapFailure(a.sink, ErrAllocatorRetryExhausted,
				fmt.Sprintf("exceeded %d spill-split-recycle retries", maxSplitRetries))
		}

		liveness = NewLiveness(numBlocks, a.lrgs, a.free)
		liveness.Compute(f)

		bases = ComputeBases(f, a.lrgs, names)
		StretchLiveness(f, liveness, a.lrgs, bases)

		ifg = NewIFG(a.lrgs.Len(), a.free)
		build := BuildNeighbors(f, liveness, a.lrgs, ifg, true, a.free)

		AggressiveCoalesce(f, a.lrgs, ifg, names)
		ConservativeCoalesce(f, a.lrgs, ifg, names)

		lists = NewWorklists(a.lrgs, ifg)
		lists.Run(a.lrgs, ifg)
		sel = Select(a.lrgs, ifg, lists)

		if build.MustSpill == 0 && len(sel.Spilled) == 0 {
			break
		}

		spilled := sel.Spilled
		if build.MustSpill > 0 {
			for id := LRGID(1); int(id) < a.lrgs.Len(); id++ {
				if a.lrgs.Find(id) == id && a.lrgs.Get(id).MustSpill {
					spilled = append(spilled, id)
				}
			}
		}

		res := RunSplit(f, a.lrgs, spilled, names)
		if !res.Split {
			return wrapFailure(a.sink, ErrAllocatorRetryExhausted, "split made no progress")
		}
	}

	a.assignRegisters(f, names)
	a.reportClobberedCalleeSaved(f)
	a.emitOopmaps(f, liveness, bases)

	ElideCopies(f, a.lrgs, names)
	MergeMultidefs(f, a.lrgs, names)
	FuseCISCLoads(f)

	f.Done()
	return nil
}

// reportClobberedCalleeSaved tells f which callee-saved registers this
// allocation actually used, so the backend's prologue/epilogue knows which
// ones it must save and restore around the function body.
func (a *Allocator) reportClobberedCalleeSaved(f Function) {
	var clobbered []VReg
	seen := make(map[RealReg]bool)
	for id := LRGID(1); int(id) < a.lrgs.Len(); id++ {
		if a.lrgs.Find(id) != id {
			continue
		}
		lr := a.lrgs.GetRaw(id)
		if lr.Reg == RealRegInvalid || lr.Reg >= spillSentinelBase {
			continue
		}
		if _, ok := a.regInfo.CalleeSavedRegisters[lr.Reg]; !ok || seen[lr.Reg] {
			continue
		}
		seen[lr.Reg] = true
		if int(lr.Reg) < len(a.regInfo.RealRegToVReg) {
			clobbered = append(clobbered, a.regInfo.RealRegToVReg[lr.Reg])
		}
	}
	if len(clobbered) > 0 {
		f.ClobberedRegisters(clobbered)
	}
}

// seedLRGTable allocates one LRGID per distinct VRegID referenced by f
// (de-SSA: "one per node with a non-empty out-mask"), seeding each entry's
// Mask from the instruction's constraint, Cost/Area from a flat per-use/def
// weight (this package has no block-frequency model, so every program point
// is weighted equally), and the IsFloat/IsOop/NumRegs/FatProj/MultiDef flags
// straight from the VReg and Instr the def came from.
func (a *Allocator) seedLRGTable(f Function) VRegID {
	var maxID VRegID
	seen := make(map[VRegID]bool)

	ensure := func(v VReg) *LRG {
		id := v.ID()
		if id > maxID {
			maxID = id
		}
		for int(id) >= a.lrgs.Len() {
			a.lrgs.New()
		}
		lr := a.lrgs.GetRaw(LRGID(id))
		if v.RegType() == RegTypeFloat {
			lr.IsFloat = true
		}
		return lr
	}

	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			for _, d := range instr.Defs() {
				lr := ensure(d)
				lr.Def = d
				lr.Mask = instr.DefMask()
				lr.NumRegs = 1
				lr.IsOop = instr.IsOopDef()
				lr.FatProj = instr.IsFatProj()
				if seen[d.ID()] {
					lr.MultiDef = true
				} else {
					seen[d.ID()] = true
					lr.SingleDef = true
				}
				lr.Cost++
				lr.Area++
			}
			for i, u := range instr.Uses() {
				lr := ensure(u)
				lr.Mask.AND(instr.UseMask(i))
				lr.Cost++
				lr.Area++
			}
		}
	}

	return maxID
}

// assignRegisters walks every instruction once, binding each VReg operand to
// the RealReg its LRG was assigned, via Instr.AssignDef/AssignUses.
func (a *Allocator) assignRegisters(f Function, names func(VReg) LRGID) {
	var uses []VReg
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			for _, d := range instr.Defs() {
				lr := a.lrgs.Get(names(d))
				if lr.Reg != RealRegInvalid && lr.Reg < spillSentinelBase {
					instr.AssignDef(d.SetRealReg(lr.Reg))
				}
			}
			uses = uses[:0]
			for _, u := range instr.Uses() {
				lr := a.lrgs.Get(names(u))
				if lr.Reg != RealRegInvalid && lr.Reg < spillSentinelBase {
					uses = append(uses, u.SetRealReg(lr.Reg))
				} else {
					uses = append(uses, u)
				}
			}
			instr.AssignUses(uses)
		}
	}
}
