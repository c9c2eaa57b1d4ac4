package regalloc

// BaseMap records, for every oop-typed live range, the live range of the
// base pointer it was derived from (a non-derived oop is its own base).
// Built once per allocation attempt and consulted by liveness stretching so
// that a derived pointer's base is never dead while the derived value itself
// is live across a safepoint — otherwise the GC would have no oop to adjust
// when the heap moves, only an offset from one.
type BaseMap map[LRGID]LRGID

// ComputeBases walks f in reverse post-order computing, for every oop LRG,
// the LRG of its base pointer.
//
// For an ordinary derived-oop def (instr.IsDerivedOop()), the base is found
// by walking up through the chain already recorded for its first use operand
// (an AddP-like node derives from exactly one pointer operand, by
// convention the first Uses() entry). For a phi whose def is an oop, each
// input's already-computed base is consulted; if every predecessor agrees on
// one base LRG, the phi shares it, otherwise a fresh base-phi LRG is
// synthesized in the LRG table to hold whichever of the disagreeing bases is
// live at any one time — RPO visitation order means loop-carried derived
// pointers may need a second pass to converge, so the walk repeats until the
// map stops changing, at most 8 times.
//
// Grounded on JDK HotSpot's derived-pointer base search (chaitin.cpp's
// find_base_for_derived / Compute_Derived_Reg, buildOopMap.cpp's
// consumption of the result at safepoints).
func ComputeBases(f Function, lrgs *LRGTable, names func(VReg) LRGID) BaseMap {
	bases := make(BaseMap)

	converge := func() bool {
		changed := false
		for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
			preds := b.Preds()
			for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
				defs := instr.Defs()
				if len(defs) != 1 {
					continue
				}
				did := names(defs[0])
				lr := lrgs.Get(did)
				if !lr.IsOop {
					continue
				}

				var resolved LRGID
				switch {
				case instr.IsPhi():
					uses := instr.Uses()
					var common LRGID
					agree := true
					for i, u := range uses {
						if i >= len(preds) {
							break
						}
						ub := baseOf(bases, names(u))
						if common == lrgIDInvalid {
							common = ub
						} else if common != ub {
							agree = false
						}
					}
					if agree && common != lrgIDInvalid {
						resolved = common
					} else if existing, ok := bases[did]; ok {
						resolved = existing
					} else {
						id, synth := lrgs.New()
						synth.IsOop = true
						synth.Mask = lr.Mask
						resolved = id
					}

				case instr.IsDerivedOop():
					uses := instr.Uses()
					if len(uses) == 0 {
						resolved = did
						break
					}
					resolved = baseOf(bases, names(uses[0]))

				default:
					resolved = did
				}

				if bases[did] != resolved {
					bases[did] = resolved
					changed = true
				}
			}
		}
		return changed
	}

	for i := 0; i < 8 && converge(); i++ {
	}
	return bases
}

func baseOf(bases BaseMap, id LRGID) LRGID {
	if b, ok := bases[id]; ok {
		return b
	}
	return id
}

// DerivedOopPair is one (derived, base) debug-input pair a safepoint carries
// so a garbage collector walking the stack can adjust a derived pointer by
// however far it adjusts the base it was computed from.
type DerivedOopPair struct {
	Derived, Base LRGID
}

// SafepointOopRecorder is implemented by an Instr that wants to retain the
// (derived, base) debug-input pairs StretchLiveness computes for it, so a
// later pass (or a test) can read them back off the safepoint node itself.
// Only instructions for which IsSafepoint() is true are ever asked to record
// pairs; an Instr that does not implement this interface is simply skipped.
type SafepointOopRecorder interface {
	Instr
	// RecordOopPairs appends one (derived, base) pair per live derived
	// pointer reaching this safepoint.
	RecordOopPairs(pairs []DerivedOopPair)
}

// StretchLiveness extends every block's live-in/live-out sets so that every
// oop live across a safepoint in that block, and the base LRG of any such
// derived pointer, is considered live there, preventing the allocator from
// recycling the base's register before the GC has had a chance to read it
// out of the oopmap. An oop counts as live across a safepoint when it is in
// the block's live-out set or is read by an instruction after the block's
// first safepoint.
//
// This is a block-granularity over-approximation of the source's
// per-instruction stretching: such values are kept live for the whole block
// containing a safepoint rather than only from the safepoint to the
// derived value's last use. That is always safe (it can only lengthen a
// live range, never shorten one) and costs at most a little extra register
// pressure in blocks that mix safepoints with short derived-pointer
// lifetimes.
func StretchLiveness(f Function, live *Liveness, lrgs *LRGTable, bases BaseMap) {
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		var safepoints []Instr
		across := live.LiveOut(b).CloneWith(nil)
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			if len(safepoints) > 0 && !instr.IsPhi() {
				for _, u := range instr.Uses() {
					if id := live.lrgOf(u); id != lrgIDInvalid {
						across.Add(int(id))
					}
				}
			}
			if instr.IsSafepoint() {
				safepoints = append(safepoints, instr)
			}
		}
		if len(safepoints) == 0 {
			continue
		}
		out := live.LiveOut(b)
		var extra []LRGID
		var pairs []DerivedOopPair
		across.Iterate(func(n int) {
			id := LRGID(n)
			lr := lrgs.GetRaw(id)
			if !lr.IsOop {
				return
			}
			extra = append(extra, id)
			if base, ok := bases[id]; ok && base != id {
				extra = append(extra, base)
				pairs = append(pairs, DerivedOopPair{Derived: id, Base: base})
			}
		})
		for _, id := range extra {
			out.Add(int(id))
			live.LiveIn(b).Add(int(id))
		}
		if len(pairs) == 0 {
			continue
		}
		for _, s := range safepoints {
			if rec, ok := s.(SafepointOopRecorder); ok {
				rec.RecordOopPairs(pairs)
			}
		}
	}
}
