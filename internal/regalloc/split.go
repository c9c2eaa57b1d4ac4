package regalloc

// Split responds to an LRG Select could not color by permanently excluding
// it from register occupancy: every definition gets a store to the stack
// immediately after it, every non-phi use gets a reload immediately before
// it, and the LRG is marked MustSpill so every later liveness/IFG/Simplify/
// Select round skips it entirely.
//
// This is a deliberate simplification of HotSpot's chaitin.cpp Split(),
// which instead breaks a spilled LRG into narrower live ranges connected by
// fresh spill-copy nodes that re-enter coloring as ordinary candidates (so a
// reload's result can itself land back in a register). That requires the
// CFG-rewriting hook to return the new value it created; this package's
// Function interface's StoreRegisterAfter/ReloadRegisterBefore only take an
// existing VReg and return nothing, so there is no way to hand a new LRGID
// back to the allocator. Treating every spill as permanent is the strictly
// weaker but mechanically expressible alternative: it still guarantees
// forward progress (a MustSpill LRG can never fail to color again, since it
// never competes for a register again), at the cost of never re-coloring a
// reload that turns out to have low enough degree to fit.
type SplitResult struct {
	// Split reports whether any LRG was actually split. It is false when
	// there was nothing to split or every LRG passed in was already
	// MustSpill; the driver treats false as a failed attempt.
	Split bool
}

// RunSplit rewrites f for every spilled LRGID in spilled, returning whether
// anything changed. names resolves a VReg to its current LRGID; lrgs is
// mutated in place, and the old spilled entries are flagged MustSpill so a
// subsequent liveness/IFG pass treats them as dead once their uses have all
// been redirected.
func RunSplit(f Function, lrgs *LRGTable, spilled []LRGID, names func(VReg) LRGID) SplitResult {
	if len(spilled) == 0 {
		return SplitResult{}
	}
	// isSpilled only holds ids that need fresh store/reload instructions this
	// round: an id already MustSpill had them inserted on an earlier round
	// (the driver's bound-register re-scan can resurface the same id every
	// round it stays conflicted), so only its spill bookkeeping advances.
	isSpilled := make(map[LRGID]bool, len(spilled))
	any := false
	for _, id := range spilled {
		lr := lrgs.Get(id)
		alreadySpilled := lr.MustSpill
		lr.MarkSpilled()
		lr.MustSpill = true
		if alreadySpilled {
			continue
		}
		isSpilled[id] = true
		any = true
	}
	if !any {
		return SplitResult{}
	}

	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			for _, d := range instr.Defs() {
				if id := names(d); isSpilled[lrgs.Find(id)] {
					f.StoreRegisterAfter(d, instr)
				}
			}
			if instr.IsPhi() {
				continue
			}
			for _, u := range instr.Uses() {
				if id := names(u); isSpilled[lrgs.Find(id)] {
					f.ReloadRegisterBefore(u, instr)
				}
			}
		}
	}

	return SplitResult{Split: true}
}
