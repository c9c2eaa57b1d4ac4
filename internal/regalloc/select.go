package regalloc

// spillSentinelBase marks the start of the range of pseudo-"registers" a
// failed-to-color LRG is assigned: RealReg(spillSentinelBase + k) for the
// k'th distinct spill this attempt produced. Split later recognizes any
// Reg >= spillSentinelBase as "needs a stack slot, not a hardware register".
const spillSentinelBase = RealReg(200)

// SelectResult summarizes one Select pass.
type SelectResult struct {
	// Spilled lists, in selection order, every LRG that could not be given a
	// hardware register.
	Spilled []LRGID
}

// Select walks the simplified stack in reverse (LIFO: last simplified is
// first selected) and assigns each LRG a concrete color.
//
// For each LRG: compute the forbidden set by unioning the masks of its
// already-colored neighbors restricted to the current stack "chunk" (see
// bumpStackChunk below), subtract that from the LRG's own mask, re-align
// pair/vector LRGs via ClearToSets, then pick a color preferring (in order)
// a still-legal risk_bias, then a still-legal copy_bias (intersecting masks
// if the biased LRG is not yet colored), then the last element of the mask
// for fat-projections, then alternating between the first and second legal
// register for plain scalar LRGs (reduces post-allocation copy-chain
// ping-ponging). If nothing is legal and the mask is AllStack, the chunk
// counter is bumped and the same mask is tried again, up to maxStackChunks
// times; the chunk does not change the forbidden set or the mask, and no
// stack slot is ever chosen, so such an LRG also ends with a spill sentinel.
// Otherwise assign a distinct spill sentinel and record the spill.
//
// Grounded on JDK HotSpot's chaitin.cpp Select()/choose_color for the
// bias-ordering idiom (risk bias, then copy bias, tried in turn before
// falling back to the first non-conflicting allocatable register).
func Select(lrgs *LRGTable, g *IFG, w *Worklists) SelectResult {
	var result SelectResult
	altToggle := false

	for i := len(w.stack) - 1; i >= 0; i-- {
		id := w.stack[i]
		lr := lrgs.Get(id)
		if lr.Mask.Empty() && !lr.MustSpill {
			g.Reinsert(id)
			continue
		}

		chunk := 0
		for {
			forbidden := computeForbidden(lrgs, g, id, chunk)
			avail := lr.Mask
			avail.SUBTRACT(forbidden)
			if lr.NumRegs > 1 {
				avail.ClearToSets(lr.NumRegs)
			}

			if reg, ok := pickColor(lrgs, id, avail, &altToggle); ok {
				lr.Reg = reg
				g.Reinsert(id)
				break
			}

			if !lr.Mask.IsAllStack() {
				lr.Reg = spillSentinelBase + RealReg(len(result.Spilled))
				result.Spilled = append(result.Spilled, id)
				g.Reinsert(id)
				break
			}
			chunk++
			if chunk > maxStackChunks {
				lr.Reg = spillSentinelBase + RealReg(len(result.Spilled))
				result.Spilled = append(result.Spilled, id)
				g.Reinsert(id)
				break
			}
		}
	}
	return result
}

// maxStackChunks bounds how many times Select retries a pure-stack LRG
// before giving up and spilling it outright.
const maxStackChunks = 64

func computeForbidden(lrgs *LRGTable, g *IFG, id LRGID, chunk int) RegMask {
	var forbidden RegMask
	_ = chunk // stack chunking only matters once a candidate's own mask is AllStack; hardware registers never shift between chunks.
	g.Neighbors(id, func(n LRGID) {
		nl := lrgs.Get(n)
		if nl.Reg != RealRegInvalid && nl.Reg < spillSentinelBase {
			forbidden.Insert(nl.Reg)
		}
	})
	return forbidden
}

// pickColor applies the risk_bias / copy_bias / alternation / fat-proj
// ordering to choose a single register from avail, or reports false if avail
// names no hardware register.
func pickColor(lrgs *LRGTable, id LRGID, avail RegMask, altToggle *bool) (RealReg, bool) {
	lr := lrgs.Get(id)

	if lr.RiskBias != lrgIDInvalid {
		if rb := lrgs.Get(lr.RiskBias); rb.Reg != RealRegInvalid && rb.Reg < spillSentinelBase && avail.Has(rb.Reg) {
			return rb.Reg, true
		}
	}

	if lr.CopyBias != lrgIDInvalid {
		cb := lrgs.Get(lr.CopyBias)
		if cb.Reg != RealRegInvalid && cb.Reg < spillSentinelBase && avail.Has(cb.Reg) {
			return cb.Reg, true
		}
		if cb.Reg == RealRegInvalid {
			biased := Intersection(avail, cb.Mask)
			if r, ok := biased.First(); ok {
				return r, true
			}
		}
	}

	if lr.FatProj {
		if r, ok := avail.Last(); ok {
			return r, true
		}
	}

	if lr.NumRegs <= 1 {
		var regs []RealReg
		avail.Range(func(r RealReg) { regs = append(regs, r) })
		if len(regs) == 0 {
			return 0, false
		}
		if len(regs) > 1 {
			*altToggle = !*altToggle
			if *altToggle {
				return regs[1], true
			}
		}
		return regs[0], true
	}

	return avail.First()
}
