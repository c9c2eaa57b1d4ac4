// Package ssacfg is a minimal, hand-buildable control-flow graph that
// satisfies internal/regalloc's Function/Block/Instr interfaces. It exists
// only to drive the allocator's test scenarios and the demo CLI: callers
// build a Func by adding blocks and instructions directly (no lowering pass,
// no real ISA), wire up predecessors and a reverse-post-order, and hand the
// result to regalloc.Allocator.Allocate.
//
// Its InstrIteratorBegin/Next walk a single live cursor per block, so no
// Instr value needs to outlive the next iterator call, matching the
// contract regalloc.Function documents. Beyond that contract the node types
// are minimal: this package has no SSA builder, no opcodes, no lowering —
// just enough structure to exercise every phase of register allocation end
// to end.
package ssacfg

import (
	"fmt"
	"strings"

	"github.com/regalloc/chaitin/internal/regalloc"
)

// Func is a hand-built CFG of Blk nodes.
type Func struct {
	blocks []*Blk
	rpo    []*Blk
	po     []*Blk

	rpoCursor int
	poCursor  int

	vregSeq regalloc.VRegID

	blockOf map[regalloc.Instr]*Blk

	Clobbered []regalloc.VReg
	Stores    []SpillEvent
	Reloads   []SpillEvent
	Swaps     []SwapEvent
	Merges    []MergeEvent
	IsDone    bool
}

// SpillEvent records one StoreRegister*/ReloadRegister* call the allocator
// made against this Func, for tests to assert against.
type SpillEvent struct {
	VReg  regalloc.VReg
	Instr regalloc.Instr
	After bool
}

// SwapEvent records one SwapAtEndOfBlock call.
type SwapEvent struct {
	X, Y  regalloc.VReg
	Block regalloc.Block
}

// MergeEvent records one SynthesizeMerge call.
type MergeEvent struct {
	Prior  []regalloc.VReg
	Merged regalloc.VReg
	Block  regalloc.Block
}

// New returns an empty Func. VRegs are allocated starting above
// regalloc.VRegIDNonReservedBegin, since lower ids are reserved to represent
// pre-colored real registers.
func New() *Func {
	return &Func{
		vregSeq: regalloc.VRegIDNonReservedBegin,
		blockOf: make(map[regalloc.Instr]*Blk),
	}
}

// NewVReg allocates a fresh, never-before-used VReg of the given bank.
func (f *Func) NewVReg(t regalloc.RegType) regalloc.VReg {
	f.vregSeq++
	return regalloc.VReg(f.vregSeq).SetRegType(t)
}

// NewBlock appends a new, initially pred-less block.
func (f *Func) NewBlock(entry bool) *Blk {
	b := &Blk{id: len(f.blocks), entry: entry, owner: f}
	f.blocks = append(f.blocks, b)
	return b
}

// Finalize fixes the reverse-post-order (and, as its reverse, the
// post-order) the iterators walk. Callers building an acyclic or reducible
// test CFG can simply list blocks in program order; Finalize does not
// compute RPO itself since this package has no CFG analysis of its own.
func (f *Func) Finalize(rpo []*Blk) {
	f.rpo = rpo
	f.po = make([]*Blk, len(rpo))
	for i, b := range rpo {
		f.po[len(rpo)-1-i] = b
	}
}

func (f *Func) PostOrderBlockIteratorBegin() regalloc.Block {
	f.poCursor = 0
	return f.postOrderNext()
}

func (f *Func) PostOrderBlockIteratorNext() regalloc.Block {
	return f.postOrderNext()
}

func (f *Func) postOrderNext() regalloc.Block {
	if f.poCursor >= len(f.po) {
		return nil
	}
	b := f.po[f.poCursor]
	f.poCursor++
	return b
}

func (f *Func) ReversePostOrderBlockIteratorBegin() regalloc.Block {
	f.rpoCursor = 0
	return f.reversePostOrderNext()
}

func (f *Func) ReversePostOrderBlockIteratorNext() regalloc.Block {
	return f.reversePostOrderNext()
}

func (f *Func) reversePostOrderNext() regalloc.Block {
	if f.rpoCursor >= len(f.rpo) {
		return nil
	}
	b := f.rpo[f.rpoCursor]
	f.rpoCursor++
	return b
}

func (f *Func) ClobberedRegisters(regs []regalloc.VReg) {
	f.Clobbered = append([]regalloc.VReg{}, regs...)
}

func (f *Func) StoreRegisterBefore(v regalloc.VReg, instr regalloc.Instr) {
	f.insertSpill(v, instr, false, false)
}

func (f *Func) StoreRegisterAfter(v regalloc.VReg, instr regalloc.Instr) {
	f.insertSpill(v, instr, false, true)
}

func (f *Func) ReloadRegisterBefore(v regalloc.VReg, instr regalloc.Instr) {
	f.insertSpill(v, instr, true, false)
}

func (f *Func) ReloadRegisterAfter(v regalloc.VReg, instr regalloc.Instr) {
	f.insertSpill(v, instr, true, true)
}

func (f *Func) insertSpill(v regalloc.VReg, at regalloc.Instr, reload, after bool) {
	b, ok := f.blockOf[at]
	if !ok {
		panic("ssacfg: spill target instruction not found in any block")
	}
	in := NewInstr(spillLabel(reload))
	if reload {
		in.defs = []regalloc.VReg{v}
		in.defMask = fullMask(v.RegType())
	} else {
		in.uses = []regalloc.VReg{v}
		in.useMasks = []regalloc.RegMask{fullMask(v.RegType())}
	}
	idx := b.indexOf(at)
	if after {
		idx++
	}
	b.insertAt(idx, in)
	if reload {
		f.Reloads = append(f.Reloads, SpillEvent{VReg: v, Instr: at, After: after})
	} else {
		f.Stores = append(f.Stores, SpillEvent{VReg: v, Instr: at, After: after})
	}
}

func spillLabel(reload bool) string {
	if reload {
		return "reload"
	}
	return "store"
}

func fullMask(t regalloc.RegType) regalloc.RegMask {
	var m regalloc.RegMask
	m.SetAll()
	_ = t
	return m
}

func (f *Func) SwapAtEndOfBlock(x, y regalloc.VReg, block regalloc.Block) {
	b := block.(*Blk)
	in := NewInstr("swap")
	in.defs = []regalloc.VReg{x, y}
	in.uses = []regalloc.VReg{x, y}
	in.defMask = fullMask(x.RegType())
	in.useMasks = []regalloc.RegMask{fullMask(x.RegType()), fullMask(y.RegType())}
	b.insertAt(len(b.instrs), in)
	f.Swaps = append(f.Swaps, SwapEvent{X: x, Y: y, Block: block})
}

func (f *Func) Done() { f.IsDone = true }

// SynthesizeMerge implements regalloc.MultidefMerger: it allocates a fresh
// VReg, appends a synthetic merge instruction reading every prior def at the
// end of block, and returns the new VReg callers should read going forward.
func (f *Func) SynthesizeMerge(prior []regalloc.VReg, block regalloc.Block) regalloc.VReg {
	b := block.(*Blk)
	t := regalloc.RegTypeInt
	if len(prior) > 0 {
		t = prior[0].RegType()
	}
	merged := f.NewVReg(t)
	in := NewInstr("merge")
	in.defs = []regalloc.VReg{merged}
	in.defMask = fullMask(t)
	in.uses = append([]regalloc.VReg{}, prior...)
	masks := make([]regalloc.RegMask, len(prior))
	for i := range masks {
		masks[i] = fullMask(t)
	}
	in.useMasks = masks
	b.insertAt(len(b.instrs), in)
	f.Merges = append(f.Merges, MergeEvent{Prior: prior, Merged: merged, Block: block})
	return merged
}

// Blk is a basic block: a flat instruction list plus explicit predecessors.
type Blk struct {
	owner  *Func
	id     int
	instrs []*In
	preds  []*Blk
	predsI []regalloc.Block
	entry  bool
	cursor int
}

// AddPred records pred as a predecessor of b. Order matters: it must match
// the order phi Uses() are given in.
func (b *Blk) AddPred(pred *Blk) {
	b.preds = append(b.preds, pred)
	b.predsI = append(b.predsI, pred)
}

// Emit appends in to the end of b's instruction list.
func (b *Blk) Emit(in *In) *In {
	b.instrs = append(b.instrs, in)
	b.owner.blockOf[in] = b
	return in
}

func (b *Blk) indexOf(target regalloc.Instr) int {
	for i, in := range b.instrs {
		if in == target {
			return i
		}
	}
	panic("ssacfg: instruction not found in block")
}

func (b *Blk) insertAt(idx int, in *In) {
	b.owner.blockOf[in] = b
	b.instrs = append(b.instrs, nil)
	copy(b.instrs[idx+1:], b.instrs[idx:])
	b.instrs[idx] = in
	if idx < b.cursor {
		b.cursor++
	}
}

func (b *Blk) ID() int { return b.id }

func (b *Blk) InstrIteratorBegin() regalloc.Instr {
	b.cursor = 0
	return b.instrNext()
}

func (b *Blk) InstrIteratorNext() regalloc.Instr {
	return b.instrNext()
}

func (b *Blk) instrNext() regalloc.Instr {
	if b.cursor >= len(b.instrs) {
		return nil
	}
	in := b.instrs[b.cursor]
	b.cursor++
	return in
}

func (b *Blk) Preds() []regalloc.Block { return b.predsI }

func (b *Blk) PredIndex(pred regalloc.Block) int {
	for i, p := range b.predsI {
		if p == pred {
			return i
		}
	}
	return -1
}

func (b *Blk) Entry() bool { return b.entry }

// In is a single hand-built instruction.
type In struct {
	label string

	defs     []regalloc.VReg
	uses     []regalloc.VReg
	defMask  regalloc.RegMask
	useMasks []regalloc.RegMask

	copy, call, indirectCall, ret, phi bool
	twoAddrIdx                         int
	hasTwoAddr                         bool
	safepoint, derivedOop, oopDef      bool
	fatProj                           bool

	ciscFusable bool

	assignedDef  []regalloc.VReg
	assignedUses []regalloc.VReg
	elided       bool

	oopPairs []regalloc.DerivedOopPair
}

// NewInstr returns an instruction named label (used only for String()); use
// the chained setters to fill in defs/uses/flags before Emit-ing it.
func NewInstr(label string) *In {
	return &In{label: label}
}

func (i *In) Def(v regalloc.VReg, mask regalloc.RegMask) *In {
	i.defs = []regalloc.VReg{v}
	i.defMask = mask
	return i
}

func (i *In) Use(v regalloc.VReg, mask regalloc.RegMask) *In {
	i.uses = append(i.uses, v)
	i.useMasks = append(i.useMasks, mask)
	return i
}

func (i *In) Copy() *In         { i.copy = true; return i }
func (i *In) Call() *In         { i.call = true; return i }
func (i *In) IndirectCall() *In { i.call, i.indirectCall = true, true; return i }
func (i *In) Return() *In       { i.ret = true; return i }
func (i *In) Phi() *In          { i.phi = true; return i }
func (i *In) TwoAddress(useIdx int) *In {
	i.twoAddrIdx, i.hasTwoAddr = useIdx, true
	return i
}
func (i *In) Safepoint() *In   { i.safepoint = true; return i }
func (i *In) DerivedOop() *In  { i.derivedOop = true; return i }
func (i *In) OopDef() *In      { i.oopDef = true; return i }
func (i *In) CISCFusable() *In { i.ciscFusable = true; return i }
func (i *In) FatProj() *In     { i.fatProj = true; return i }

func (i *In) String() string {
	var sb strings.Builder
	if len(i.assignedDef) > 0 {
		fmt.Fprintf(&sb, "%s = ", i.assignedDef[0])
	} else if len(i.defs) == 1 {
		fmt.Fprintf(&sb, "%s = ", i.defs[0])
	}
	sb.WriteString(i.label)
	operands := i.assignedUses
	if operands == nil {
		operands = i.uses
	}
	for _, u := range operands {
		fmt.Fprintf(&sb, " %s", u)
	}
	if i.elided {
		sb.WriteString(" ; elided")
	}
	return sb.String()
}

func (i *In) Defs() []regalloc.VReg { return i.defs }
func (i *In) Uses() []regalloc.VReg { return i.uses }

func (i *In) UseMask(idx int) regalloc.RegMask {
	if idx < len(i.useMasks) {
		return i.useMasks[idx]
	}
	return fullMask(regalloc.RegTypeInt)
}

func (i *In) DefMask() regalloc.RegMask { return i.defMask }

func (i *In) AssignUses(uses []regalloc.VReg) {
	i.assignedUses = append([]regalloc.VReg{}, uses...)
}

func (i *In) AssignDef(v regalloc.VReg) { i.assignedDef = []regalloc.VReg{v} }

func (i *In) IsCopy() bool         { return i.copy }
func (i *In) IsCall() bool         { return i.call }
func (i *In) IsIndirectCall() bool { return i.indirectCall }
func (i *In) IsReturn() bool       { return i.ret }
func (i *In) IsPhi() bool          { return i.phi }

func (i *In) TwoAddressInput() (int, bool) { return i.twoAddrIdx, i.hasTwoAddr }

func (i *In) IsSafepoint() bool  { return i.safepoint }
func (i *In) IsDerivedOop() bool { return i.derivedOop }
func (i *In) IsOopDef() bool     { return i.oopDef }
func (i *In) IsFatProj() bool    { return i.fatProj }

// RecordOopPairs implements regalloc.SafepointOopRecorder: it replaces
// whatever this safepoint previously recorded, since a spill-and-retry round
// recomputes the live derived/base set from scratch and only the final
// successful round's pairs describe the allocation tests should assert
// against.
func (i *In) RecordOopPairs(pairs []regalloc.DerivedOopPair) {
	i.oopPairs = append([]regalloc.DerivedOopPair{}, pairs...)
}

// OopPairs returns the (derived, base) debug-input pairs the most recent
// RecordOopPairs call recorded for this safepoint.
func (i *In) OopPairs() []regalloc.DerivedOopPair { return i.oopPairs }

// Elide implements regalloc.Elidable.
func (i *In) Elide() { i.elided = true }

// Elided reports whether a previous ElideCopies pass dropped this
// instruction.
func (i *In) Elided() bool { return i.elided }

// TryFuseReload implements regalloc.CISCFusable for instructions the test
// built with CISCFusable(); any other instruction refuses every fusion.
func (i *In) TryFuseReload(v regalloc.VReg) (regalloc.Instr, bool) {
	if !i.ciscFusable {
		return nil, false
	}
	for _, u := range i.uses {
		if u == v {
			return i, true
		}
	}
	return nil, false
}

// AssignedDef returns the register-bound VReg AssignDef last recorded, or
// regalloc.VRegInvalid if none has been assigned yet.
func (i *In) AssignedDef() regalloc.VReg {
	if len(i.assignedDef) == 0 {
		return regalloc.VRegInvalid
	}
	return i.assignedDef[0]
}

// AssignedUses returns the register-bound VRegs AssignUses last recorded.
func (i *In) AssignedUses() []regalloc.VReg { return i.assignedUses }
