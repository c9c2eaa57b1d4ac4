package regalloc

// pcUseOffset/pcDefOffset/pcStride give every instruction two program-counter
// slots (uses, then defs) so overlapping use/def ranges at the same
// instruction are distinguishable.
const (
	pcUseOffset = 0
	pcDefOffset = 1
	pcStride    = 2
)

type programCounter int64

// blockLive holds the per-block liveness state: def/use summaries computed
// in one forward pass over the block's instructions, and the live-in/live-out
// sets the backward worklist solves for.
//
// Grounded on JDK HotSpot's live.cpp (PhaseLive): def, use and live_out are
// exactly its per-block def/use/liveout arrays; the worklist solver in
// Liveness.Compute below is a direct translation of its backward
// fixed-point loop: an iterative backward reaching-def/live-variable solver
// that processes blocks LIFO off a worklist.
type blockLive struct {
	def, use IndexSet
	liveOut  IndexSet
	liveIn   IndexSet
}

// Liveness computes and holds live-in/live-out LRGID sets for every block of
// a Function, along with the block-local def/use sets the dataflow is
// computed from.
type Liveness struct {
	blocks []blockLive
	free   *indexSetFreeList

	// names maps VRegID to the LRGID currently naming it, resolved through
	// the live LRGTable's union-find at the moment liveness ran.
	names *LRGTable
}

// NewLiveness returns a Liveness analysis scoped to numBlocks blocks and
// backed by names for VReg-to-LRGID resolution.
func NewLiveness(numBlocks int, names *LRGTable, free *indexSetFreeList) *Liveness {
	l := &Liveness{
		blocks: make([]blockLive, numBlocks),
		free:   free,
		names:  names,
	}
	for i := range l.blocks {
		l.blocks[i] = blockLive{
			def:     NewIndexSet(free),
			use:     NewIndexSet(free),
			liveOut: NewIndexSet(free),
			liveIn:  NewIndexSet(free),
		}
	}
	return l
}

func (l *Liveness) lrgOf(v VReg) LRGID {
	if !v.Valid() {
		return lrgIDInvalid
	}
	return l.names.Find(vregToLRGID(v))
}

// vregToLRGID is the identity embedding used while liveness still operates
// directly on VRegIDs before de-SSA has assigned every def an LRGID; callers
// that already carry an LRGID call l.names.Find directly instead.
func vregToLRGID(v VReg) LRGID {
	return LRGID(v.ID())
}

// LiveOut returns the live-out set computed for block b.
func (l *Liveness) LiveOut(b Block) *IndexSet {
	return &l.blocks[b.ID()].liveOut
}

// LiveIn returns the live-in set computed for block b.
func (l *Liveness) LiveIn(b Block) *IndexSet {
	return &l.blocks[b.ID()].liveIn
}

// Compute runs the backward liveness dataflow to a fixed point over f.
//
// Algorithm, per JDK live.cpp: walk every block's instructions once, front
// to back (skipping phi inputs, which are attributed to the corresponding
// predecessor rather than to the block containing the phi; a phi's def is
// still recorded), computing block-local def/use. Seed a worklist with every block; process LIFO:
// new_live_in = use ∪ (live_out \ def); for each predecessor p, union the
// delta new_live_in \ live_out[p] into live_out[p], and if that changed
// anything, push p. Terminates because every live_out set only grows and is
// bounded by the LRG count.
func (l *Liveness) Compute(f Function) {
	var blocks []Block
	for b := f.ReversePostOrderBlockIteratorBegin(); b != nil; b = f.ReversePostOrderBlockIteratorNext() {
		blocks = append(blocks, b)
	}

	for _, b := range blocks {
		bi := &l.blocks[b.ID()]
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			uses := instr.Uses()
			if instr.IsPhi() {
				// Phi inputs are live at the predecessor, not here; handled
				// below. The phi's own def still kills in this block.
				uses = nil
			}
			for _, u := range uses {
				id := l.lrgOf(u)
				if id == lrgIDInvalid {
					continue
				}
				if !bi.def.Has(int(id)) {
					bi.use.Add(int(id))
				}
			}
			for _, d := range instr.Defs() {
				id := l.lrgOf(d)
				if id == lrgIDInvalid {
					continue
				}
				bi.def.Add(int(id))
			}
		}
	}

	worklist := make([]Block, len(blocks))
	copy(worklist, blocks)
	onWorklist := make(map[int]bool, len(blocks))
	for _, b := range blocks {
		onWorklist[b.ID()] = true
	}

	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		onWorklist[b.ID()] = false

		bi := &l.blocks[b.ID()]
		newLiveIn := bi.liveOut.CloneWith(l.free)
		newLiveIn.SubtractInto(&bi.def)
		newLiveIn.UnionInto(&bi.use)

		for _, p := range b.Preds() {
			pi := &l.blocks[p.ID()]
			delta := newLiveIn.CloneWith(l.free)
			delta.SubtractInto(&pi.liveOut)
			if delta.Empty() {
				delta.Clear()
				continue
			}
			if pi.liveOut.UnionInto(&delta) && !onWorklist[p.ID()] {
				worklist = append(worklist, p)
				onWorklist[p.ID()] = true
			}
			delta.Clear()
		}

		// phi inputs: attribute liveness at the predecessor edge that feeds
		// each phi in b's successors is handled from the predecessor side
		// below, so here we fold in this block's own phis' inputs as uses
		// of the corresponding predecessor.
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			if !instr.IsPhi() {
				continue
			}
			uses := instr.Uses()
			preds := b.Preds()
			for i, u := range uses {
				if i >= len(preds) {
					break
				}
				id := l.lrgOf(u)
				if id == lrgIDInvalid {
					continue
				}
				pi := &l.blocks[preds[i].ID()]
				if pi.liveOut.Add(int(id)) && !onWorklist[preds[i].ID()] {
					worklist = append(worklist, preds[i])
					onWorklist[preds[i].ID()] = true
				}
			}
		}

		bi.liveIn.Clear()
		bi.liveIn = newLiveIn
	}
}

// Reset empties every block's sets, returning their storage to the shared
// free list.
func (l *Liveness) Reset() {
	for i := range l.blocks {
		l.blocks[i].def.Clear()
		l.blocks[i].use.Clear()
		l.blocks[i].liveOut.Clear()
		l.blocks[i].liveIn.Clear()
	}
}
