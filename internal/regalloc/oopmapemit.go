package regalloc

// OopSink receives the oopmap entries the allocator produces for every
// safepoint once coloring succeeds. Its method set matches
// internal/oopmap.Sink exactly. It is declared here, rather than imported
// from that package, because internal/oopmap already imports this package
// for LRGTable/BaseMap/RealReg — this package cannot import it back without
// a cycle. Go interfaces are structural, so any internal/oopmap.Sink
// implementation (including oopmap.Recording) already satisfies this
// interface without either package needing to know about the other's types.
type OopSink interface {
	// SetOop records that reg holds a live, full-width oop at the safepoint.
	SetOop(reg RealReg)
	// SetNarrowOop records that reg holds a live, compressed oop.
	SetNarrowOop(reg RealReg)
	// SetDerivedOop records that derived holds a pointer derived from the
	// oop in base.
	SetDerivedOop(derived, base RealReg)
	// SetCalleeSaved records that reg is a callee-saved register the
	// allocator clobbered.
	SetCalleeSaved(reg RealReg)
}

// noopOopSink is the default OopSink installed on a fresh Allocator: every
// call is simply dropped, so an embedder that never calls SetOopmapSink pays
// nothing beyond the safepoint live-set walk itself.
type noopOopSink struct{}

func (noopOopSink) SetOop(RealReg)                 {}
func (noopOopSink) SetNarrowOop(RealReg)           {}
func (noopOopSink) SetDerivedOop(RealReg, RealReg) {}
func (noopOopSink) SetCalleeSaved(RealReg)         {}

// SetOopmapSink installs a sink that receives the oopmap entries Allocate
// produces for every safepoint. Passing nil restores the no-op default.
func (a *Allocator) SetOopmapSink(sink OopSink) {
	if sink == nil {
		sink = noopOopSink{}
	}
	a.oopSink = sink
}

// emitOopmaps walks every safepoint in f and reports its live oops, derived
// pointers, and clobbered callee-saved registers to a.oopSink. Live-at-
// safepoint is approximated at block granularity (the block's LiveOut, which
// StretchLiveness has already extended with every oop live across one of the
// block's safepoints and that oop's base): always safe, since it
// can only report a register as live for longer than strictly necessary.
//
// Grounded on JDK HotSpot's buildOopMap.cpp, which walks the same
// liveness/BaseMap data this allocator already computes; mirrors
// internal/oopmap.Emit's logic directly since that package cannot be called
// from here (see OopSink's doc comment).
func (a *Allocator) emitOopmaps(f Function, live *Liveness, bases BaseMap) {
	reportedCalleeSaved := make(map[RealReg]bool)
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		var liveAt []LRGID
		safepointSeen := false
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			if !instr.IsSafepoint() {
				continue
			}
			if !safepointSeen {
				safepointSeen = true
				live.LiveOut(b).Iterate(func(n int) {
					liveAt = append(liveAt, a.lrgs.Find(LRGID(n)))
				})
			}
			emitOopmap(a.oopSink, liveAt, a.lrgs, bases)
		}
	}

	for id := LRGID(1); int(id) < a.lrgs.Len(); id++ {
		if a.lrgs.Find(id) != id {
			continue
		}
		lr := a.lrgs.GetRaw(id)
		if lr.Reg == RealRegInvalid || lr.Reg >= spillSentinelBase {
			continue
		}
		if _, ok := a.regInfo.CalleeSavedRegisters[lr.Reg]; !ok || reportedCalleeSaved[lr.Reg] {
			continue
		}
		reportedCalleeSaved[lr.Reg] = true
		a.oopSink.SetCalleeSaved(lr.Reg)
	}
}

// emitOopmap reports, to sink, the oopmap entries for one safepoint given the
// set of LRGIDs live there and (through bases) the base each was derived
// from, if any.
func emitOopmap(sink OopSink, liveAt []LRGID, lrgs *LRGTable, bases BaseMap) {
	for _, id := range liveAt {
		lr := lrgs.Get(id)
		if !lr.IsOop || lr.Reg == RealRegInvalid || lr.Reg >= spillSentinelBase {
			continue
		}
		if base, ok := bases[id]; ok && base != id {
			baseLR := lrgs.Get(base)
			if baseLR.Reg != RealRegInvalid && baseLR.Reg < spillSentinelBase {
				sink.SetDerivedOop(lr.Reg, baseLR.Reg)
			}
			continue
		}
		sink.SetOop(lr.Reg)
	}
}
