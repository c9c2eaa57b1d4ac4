package regalloc

// Pressure tracks, for one register bank, how many live ranges are
// simultaneously alive as a block is swept instruction by instruction: its
// current count, the peak seen so far, the program point the peak occurred
// at, and the hard limit (the number of allocatable registers in that bank)
// above which the allocator is under register pressure and should prefer
// splitting over spilling blindly.
//
// Float pressure counts float/vector LRGs; integer pressure counts every
// other LRG, whatever its mask (stack, flags, and special-purpose masks are
// not told apart from integer ones).
//
// This is a simple per-block running counter rather than a full
// interval-tree neighbor query, since the IFG already tracks exact
// interference and a separate neighbor index would be redundant bookkeeping.
type Pressure struct {
	Limit        int
	current      int
	peak         int
	peakAt       programCounter
}

// NewPressure returns a tracker with the given register limit for one bank.
func NewPressure(limit int) Pressure {
	return Pressure{Limit: limit}
}

// Inc records one more simultaneously live range at program point pc.
func (p *Pressure) Inc(pc programCounter) {
	p.current++
	if p.current > p.peak {
		p.peak = p.current
		p.peakAt = pc
	}
}

// Dec records one fewer simultaneously live range.
func (p *Pressure) Dec() {
	if p.current > 0 {
		p.current--
	}
}

// Peak returns the highest simultaneous live-range count seen.
func (p *Pressure) Peak() int { return p.peak }

// PeakAt returns the program point the peak occurred at.
func (p *Pressure) PeakAt() programCounter { return p.peakAt }

// High reports whether the tracker is currently above its register limit.
func (p *Pressure) High() bool {
	return p.current > p.Limit
}

// Reset clears the tracker back to zero, keeping Limit.
func (p *Pressure) Reset() {
	p.current, p.peak, p.peakAt = 0, 0, 0
}

// blockPressure holds the Int and Float trackers for one block, computed by
// sweeping the block's instructions against the live-out set and walking
// backward the same way BuildNeighbors does, so the two passes agree on
// where live ranges begin and end.
type blockPressure struct {
	Int, Float Pressure
}

// ComputeBlockPressure sweeps b backward from its live-out set, incrementing
// the appropriate bank's tracker when a live range's last use (walking
// backward, its first encounter) is passed and decrementing at its def. intLimit/floatLimit are the number of allocatable
// hardware registers in each bank.
func ComputeBlockPressure(b Block, live *Liveness, lrgs *LRGTable, intLimit, floatLimit int, free *indexSetFreeList) blockPressure {
	bp := blockPressure{Int: NewPressure(intLimit), Float: NewPressure(floatLimit)}

	liveNow := live.LiveOut(b).CloneWith(free)
	defer liveNow.Clear()

	liveNow.Iterate(func(n int) {
		bumpPressure(&bp, lrgs, LRGID(n), 0)
	})

	var instrs []Instr
	for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
		instrs = append(instrs, instr)
	}

	for i := len(instrs) - 1; i >= 0; i-- {
		instr := instrs[i]
		pc := programCounter(i*pcStride + pcDefOffset)
		for _, d := range instr.Defs() {
			did := live.lrgOf(d)
			if did == lrgIDInvalid {
				continue
			}
			if liveNow.Remove(int(did)) {
				dropPressure(&bp, lrgs, did)
			}
		}
		if !instr.IsPhi() {
			for _, u := range instr.Uses() {
				uid := live.lrgOf(u)
				if uid == lrgIDInvalid {
					continue
				}
				if liveNow.Add(int(uid)) {
					bumpPressure(&bp, lrgs, uid, pc)
				}
			}
		}
	}
	return bp
}

func bumpPressure(bp *blockPressure, lrgs *LRGTable, id LRGID, pc programCounter) {
	lr := lrgs.Get(id)
	if lr.IsFloat || lr.IsVector {
		bp.Float.Inc(pc)
	} else {
		bp.Int.Inc(pc)
	}
}

func dropPressure(bp *blockPressure, lrgs *LRGTable, id LRGID) {
	lr := lrgs.Get(id)
	if lr.IsFloat || lr.IsVector {
		bp.Float.Dec()
	} else {
		bp.Int.Dec()
	}
}
