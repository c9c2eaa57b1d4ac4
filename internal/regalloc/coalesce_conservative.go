package regalloc

// ConservativeCoalesce runs after AggressiveCoalesce and attempts to merge
// whatever copies aggressive coalescing left behind (because the two sides
// interfered, or the merged mask was briefly empty at the time), this time
// guarding every merge with Briggs's effective-degree test so a coalesce can
// never push a previously-colorable graph into uncolorability.
//
// The test: form rm = mask(la) ∩ mask(lb), then walk every neighbor n of
// either la or lb (excluding la/lb themselves) once:
//   - n contributes 0 if its mask is AllStack (infinite stack supply), or if
//     n is already low-degree (Briggs: a low-degree neighbor's own color
//     choice can never be constrained by the merged live range);
//   - n shrinks rm directly if it is bound (one hardware register only),
//     since such a neighbor permanently removes that register from rm
//     regardless of how many other neighbors there are;
//   - otherwise n contributes 1 to the effective degree.
// Coalescing is safe when the resulting effective degree is strictly less
// than rm's size. If unsafe, a reciprocal copy-bias is recorded on both LRGs
// instead, for Select to use as a coloring hint.
//
// Grounded on JDK HotSpot's PhaseConservativeCoalesce (coalesce.cpp:
// copy_copy/update_ifg/record_bias).
func ConservativeCoalesce(f Function, lrgs *LRGTable, g *IFG, names func(VReg) LRGID) int {
	merged := 0
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		preds := b.Preds()
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			var pairs [][2]LRGID
			switch {
			case instr.IsCopy():
				defs, uses := instr.Defs(), instr.Uses()
				if len(defs) == 1 && len(uses) == 1 {
					pairs = append(pairs, [2]LRGID{names(defs[0]), names(uses[0])})
				}
			case instr.IsPhi():
				defs, uses := instr.Defs(), instr.Uses()
				if len(defs) == 1 {
					did := names(defs[0])
					for i, u := range uses {
						if i >= len(preds) {
							break
						}
						pairs = append(pairs, [2]LRGID{did, names(u)})
					}
				}
			}
			for _, pr := range pairs {
				if tryConservativeCoalesce(lrgs, g, pr[0], pr[1]) {
					merged++
				}
			}
		}
	}
	return merged
}

func tryConservativeCoalesce(lrgs *LRGTable, g *IFG, a, b LRGID) bool {
	ra, rb := lrgs.Find(a), lrgs.Find(b)
	if ra == rb {
		return false
	}
	if ra == lrgIDInvalid || rb == lrgIDInvalid {
		return false
	}
	if g.TestEdge(ra, rb) {
		return false
	}

	la, lb := lrgs.Get(ra), lrgs.Get(rb)
	rm := Intersection(la.Mask, lb.Mask)
	if rm.Empty() {
		return false
	}

	effDegree := 0
	safe := true
	seen := make(map[LRGID]bool)
	visit := func(n LRGID) {
		if !safe || n == ra || n == rb || seen[n] {
			return
		}
		seen[n] = true
		nl := lrgs.Get(n)
		switch {
		case nl.Mask.IsAllStack():
		case nl.LoDegree():
		case nl.IsBound():
			rm.SUBTRACT(nl.Mask)
			if rm.Empty() {
				safe = false
			}
		default:
			effDegree++
		}
	}
	g.Neighbors(ra, visit)
	g.Neighbors(rb, visit)

	if !safe || effDegree >= rm.Size() {
		recordBias(la, ra, lb, rb)
		return false
	}

	survivor := lrgs.Union(ra, rb)
	other := ra
	if survivor == ra {
		other = rb
	}
	g.Union(survivor, other)
	lrgs.Get(survivor).Mask = rm
	lrgs.Get(survivor).InvalidateMaskSize()
	return true
}

// recordBias sets a reciprocal copy_bias between two LRGs that could not be
// safely coalesced, so Select can still try to hand them the same color.
func recordBias(la *LRG, ra LRGID, lb *LRG, rb LRGID) {
	la.CopyBias = rb
	lb.CopyBias = ra
}
