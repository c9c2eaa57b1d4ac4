package regalloc

// CISCFusable is implemented by an Instr whose target ISA can fold a reload
// of one of its use operands directly into an addressing mode (e.g. x86
// "add eax, [rbp-8]" instead of "mov ecx, [rbp-8]; add eax, ecx").
// FuseCISCLoads offers the result of every copy instruction to the
// instruction immediately following it; instructions that do not implement
// this interface are left alone.
type CISCFusable interface {
	Instr
	// TryFuseReload attempts to fold a reload of the given VReg directly
	// into this instruction's addressing mode, returning the fused
	// replacement and true on success.
	TryFuseReload(v VReg) (fused Instr, ok bool)
}

// FuseCISCLoads walks every block looking for a copy (an instruction whose
// IsCopy is true) immediately followed by a CISCFusable instruction, and
// lets the backend fold the copy's result into it when it can. Reloads that
// Split inserted are considered only if the Function reports them as copies.
// Returns the number of pairs fused.
//
// Grounded on JDK HotSpot's post-allocation Fixup phase, which converts
// spill copies to frame-relative memory operands with optional CISC fusion;
// kept here as a narrow, purely additive optimization over a register-only
// ISA abstraction — skipping it is always correct, just slower code.
func FuseCISCLoads(f Function) int {
	fused := 0
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		var prev Instr
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			if prev != nil && prev.IsCopy() {
				if consumer, ok := instr.(CISCFusable); ok {
					defs := prev.Defs()
					if len(defs) == 1 {
						if _, ok := consumer.TryFuseReload(defs[0]); ok {
							fused++
						}
					}
				}
			}
			prev = instr
		}
	}
	return fused
}
