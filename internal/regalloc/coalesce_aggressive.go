package regalloc

// AggressiveCoalesce merges the live ranges on either side of every copy
// (and every phi input, and every two-address operand) without regard to the
// resulting degree, as long as the merge is even legal: the two ranges must
// not already interfere, and their masks must share at least one register.
//
// Grounded on JDK HotSpot's PhaseAggressiveCoalesce (coalesce.cpp,
// combine_these_two): union into the smaller id, AND the masks together, sum
// the Cost fields and keep the larger Area (see LRGTable.Union).
func AggressiveCoalesce(f Function, lrgs *LRGTable, g *IFG, names func(VReg) LRGID) {
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		preds := b.Preds()
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			switch {
			case instr.IsCopy():
				defs, uses := instr.Defs(), instr.Uses()
				if len(defs) != 1 || len(uses) != 1 {
					continue
				}
				combineCopy(lrgs, g, names(defs[0]), names(uses[0]))

			case instr.IsPhi():
				defs, uses := instr.Defs(), instr.Uses()
				if len(defs) != 1 {
					continue
				}
				did := names(defs[0])
				for i, u := range uses {
					if i >= len(preds) {
						break
					}
					combineCopy(lrgs, g, did, names(u))
				}

			default:
				if idx, ok := instr.TwoAddressInput(); ok {
					defs, uses := instr.Defs(), instr.Uses()
					if len(defs) == 1 && idx < len(uses) {
						combineCopy(lrgs, g, names(defs[0]), names(uses[idx]))
					}
				}
			}
		}
	}
}

// combineCopy attempts to union a and b, returning true if they end up (or
// already were) the same live range.
func combineCopy(lrgs *LRGTable, g *IFG, a, b LRGID) bool {
	ra, rb := lrgs.Find(a), lrgs.Find(b)
	if ra == rb {
		return true
	}
	if ra == lrgIDInvalid || rb == lrgIDInvalid {
		return false
	}
	if g.TestEdge(ra, rb) {
		return false
	}
	la, lb := lrgs.Get(ra), lrgs.Get(rb)
	if !Intersects(la.Mask, lb.Mask) {
		return false
	}
	survivor := lrgs.Union(ra, rb)
	other := ra
	if survivor == ra {
		other = rb
	}
	g.Union(survivor, other)
	return true
}
