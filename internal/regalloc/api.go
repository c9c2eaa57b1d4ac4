package regalloc

import "fmt"

// These interfaces are implemented by ISA-specific backends to abstract away the details, and allow the register
// allocators to work on any ISA.
//
// TODO: the interfaces are not stabilized yet, especially x64 will need some changes. E.g. x64 has an addressing mode
// 	where index can be in memory. That kind of info will be useful to reduce the register pressure, and should be leveraged
// 	by the register allocators, like https://docs.rs/regalloc2/latest/regalloc2/enum.OperandConstraint.html

type (
	// Function is the top-level interface to do register allocation, which corresponds to a CFG containing
	// Blocks(s).
	Function interface {
		// PostOrderBlockIteratorBegin returns the first block in the post-order traversal of the CFG.
		// In other words, the last blocks in the CFG will be returned first.
		PostOrderBlockIteratorBegin() Block
		// PostOrderBlockIteratorNext returns the next block in the post-order traversal of the CFG.
		PostOrderBlockIteratorNext() Block
		// ReversePostOrderBlockIteratorBegin returns the first block in the reverse post-order traversal of the CFG.
		// In other words, the first blocks in the CFG will be returned first.
		ReversePostOrderBlockIteratorBegin() Block
		// ReversePostOrderBlockIteratorNext returns the next block in the reverse post-order traversal of the CFG.
		ReversePostOrderBlockIteratorNext() Block
		// ClobberedRegisters tell the clobbered registers by this function.
		ClobberedRegisters([]VReg)
		// StoreRegisterBefore inserts a spill store of v immediately before instr.
		StoreRegisterBefore(v VReg, instr Instr)
		// StoreRegisterAfter inserts a spill store of v immediately after instr.
		StoreRegisterAfter(v VReg, instr Instr)
		// ReloadRegisterBefore inserts a spill reload of v immediately before instr.
		ReloadRegisterBefore(v VReg, instr Instr)
		// ReloadRegisterAfter inserts a spill reload of v immediately after instr.
		ReloadRegisterAfter(v VReg, instr Instr)
		// SwapAtEndOfBlock inserts a parallel-copy-breaking swap of x and y at the end of block.
		SwapAtEndOfBlock(x, y VReg, block Block)
		// Done tells the implementation that register allocation is done, and it can finalize the stack
		// frame (final slot count, etc).
		Done()
	}

	// Block is a basic block in the CFG of a function, and it consists of multiple instructions, and predecessor Block(s).
	Block interface {
		// ID returns the unique identifier of this block.
		ID() int
		// InstrIteratorBegin returns the first instruction in this block. Instructions added after lowering must be skipped.
		// Note: multiple Instr(s) will not be held at the same time, so it's safe to use the same impl for the return Instr.
		InstrIteratorBegin() Instr
		// InstrIteratorNext returns the next instruction in this block. Instructions added after lowering must be skipped.
		// Note: multiple Instr(s) will not be held at the same time, so it's safe to use the same impl for the return Instr.
		InstrIteratorNext() Instr
		// Preds returns the predecessors of this block in the CFG.
		// Note: multiple returned []Block will not be used at the same time, so it's safe to use the same slice for []Block.
		Preds() []Block
		// PredIndex returns the index of pred within Preds(), used to pick out which phi input
		// corresponds to a given predecessor edge.
		PredIndex(pred Block) int
		// Entry returns true if the block is for the entry block.
		Entry() bool
	}

	// Instr is an instruction in a block, abstracting away the underlying ISA.
	Instr interface {
		fmt.Stringer

		// Defs returns the virtual registers defined by this instruction.
		// Note: multiple returned []VReg will not be held at the same time, so it's safe to use the same slice for this.
		Defs() []VReg
		// Uses returns the virtual registers used by this instruction.
		// Note: multiple returned []VReg will not be held at the same time, so it's safe to use the same slice for this.
		Uses() []VReg
		// UseMask returns the required register mask for the i'th use operand.
		UseMask(i int) RegMask
		// DefMask returns the required register mask for this instruction's (sole) def.
		DefMask() RegMask
		// AssignUses assigns the RealReg-allocated virtual registers used by this instruction.
		// Note: input []VReg is reused, so it's not safe to hold reference to it after the end of this call.
		AssignUses([]VReg)
		// AssignDef assigns a RealReg-allocated virtual register defined by this instruction.
		// This only accepts one register because we don't allocate registers for multi-def instructions (i.e. call instruction)
		AssignDef(VReg)
		// IsCopy returns true if this instruction is a move instruction between two registers.
		// If true, the instruction is of the form of dst = src, and if the src and dst do not interfere with each other,
		// we could coalesce them, and hence the copy can be eliminated from the final code.
		IsCopy() bool
		// IsCall returns true if this instruction is a call instruction. The allocator in this
		// package does not consult it.
		IsCall() bool
		// IsIndirectCall returns true if this instruction is an indirect call instruction.
		IsIndirectCall() bool
		// IsReturn returns true if this instruction is a return instruction.
		IsReturn() bool
		// IsPhi returns true if this instruction is a phi; its Uses() are ordered to match the
		// owning Block's Preds() order.
		IsPhi() bool
		// TwoAddressInput returns the index into Uses() of the operand that must be assigned the
		// same register as the instruction's def, and true, or (0, false) if this instruction has
		// no two-address constraint.
		TwoAddressInput() (int, bool)
		// IsSafepoint returns true if execution may be suspended at this instruction for GC, so
		// every live oop must have an up to date oopmap entry.
		IsSafepoint() bool
		// IsDerivedOop returns true if this instruction's def is a pointer derived from a base
		// oop reached by walking Uses(); base-pointer stretching keeps the base live alongside it.
		IsDerivedOop() bool
		// IsOopDef returns true if this instruction's def is any oop-typed value (derived or
		// not); safepoints must see a legal oopmap register for every live range where this
		// is true.
		IsOopDef() bool
		// IsFatProj returns true if this instruction's def is a fat-projection: a
		// multi-register kill set (e.g. a call's clobber list) rather than an ordinary
		// value, so Select should prefer the highest register in its mask instead of the
		// usual first-fit/alternation choice, leaving the tightly-constrained low registers
		// free for ordinary live ranges.
		IsFatProj() bool
	}
)
