package regalloc

// Elidable is implemented by copy instructions whose backend can turn them
// into a no-op in place once post-allocation copy removal proves the copy's
// source and destination already share a physical register.
type Elidable interface {
	Instr
	// Elide marks this copy as removed; the backend is expected to make it
	// a no-op (or physically delete it) without renumbering the block.
	Elide()
}

// ElideCopies implements post-allocation copy removal: for every copy whose
// source and destination LRGs were assigned the same physical register, the
// copy is redundant and can be dropped.
//
// Deliberately conservative:
//   - two-address inputs are never elided here (the def/use sharing a
//     register is required by the instruction's own constraint, not
//     evidence the copy before it is redundant);
//   - spill-sentinel "registers" (RealReg >= spillSentinelBase) never count
//     as a match, since those aren't real physical registers.
//
// Grounded on JDK HotSpot's postaloc.cpp PhasePostAllocAlloc::elide_copy.
func ElideCopies(f Function, lrgs *LRGTable, names func(VReg) LRGID) int {
	elided := 0
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			if !instr.IsCopy() {
				continue
			}
			defs, uses := instr.Defs(), instr.Uses()
			if len(defs) != 1 || len(uses) != 1 {
				continue
			}
			if _, isTwoAddr := instr.TwoAddressInput(); isTwoAddr {
				continue
			}
			did, uid := names(defs[0]), names(uses[0])
			dl, ul := lrgs.Get(did), lrgs.Get(uid)
			if dl.Reg == RealRegInvalid || dl.Reg >= spillSentinelBase {
				continue
			}
			if dl.Reg != ul.Reg {
				continue
			}
			elidable, ok := instr.(Elidable)
			if !ok {
				continue
			}
			elidable.Elide()
			elided++
		}
	}
	return elided
}

// MultidefMerger is implemented by a Function whose backend can synthesize a
// merge node subsuming two conflicting defs of the same multidef LRG into
// one physical location.
type MultidefMerger interface {
	Function
	// SynthesizeMerge replaces the two prior defs reaching the same
	// physical register with a single merge point in block, returning the
	// VReg later uses should read instead.
	SynthesizeMerge(prior []VReg, block Block) VReg
}

// MergeMultidefs forward-walks each block tracking the latest def per
// physical register for multidef LRGs; when a second def lands in the same
// register as an earlier def in the block, the prior def and the new one are
// folded (uses in between are not consulted, so a def that has already been
// read is merged too)
// through a MultidefMerger-synthesized merge point (if the Function
// implements it — otherwise the case is merely counted, since synthesizing
// CFG nodes is backend-specific) so a single physical location can
// represent the multidef uniformly.
//
// Grounded on JDK HotSpot's postaloc.cpp merge_multidefs.
func MergeMultidefs(f Function, lrgs *LRGTable, names func(VReg) LRGID) int {
	merger, canSynthesize := f.(MultidefMerger)
	merges := 0

	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		lastDefReg := make(map[RealReg]VReg)
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			for _, d := range instr.Defs() {
				lr := lrgs.Get(names(d))
				if !lr.MultiDef || lr.Reg == RealRegInvalid || lr.Reg >= spillSentinelBase {
					continue
				}
				if prior, ok := lastDefReg[lr.Reg]; ok {
					merges++
					if canSynthesize {
						merged := merger.SynthesizeMerge([]VReg{prior, d}, b)
						lastDefReg[lr.Reg] = merged
						continue
					}
				}
				lastDefReg[lr.Reg] = d
			}
		}
	}
	return merges
}
