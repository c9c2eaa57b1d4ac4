package regalloc

// worklistTag identifies which of Simplify's three doubly linked worklists
// (or the simplified stack) currently owns an LRG, or none.
type worklistTag byte

const (
	onNone worklistTag = iota
	onLoDegree
	onLoStkDegree
	onHiDegree
)

// worklist is an intrusive doubly linked list of LRGIDs threaded through
// index-based LRG.Prev/Next fields on the LRG record itself, rather than a
// separate container, so push/pop/migrate never allocate. head/tail use
// lrgIDInvalid as the sentinel.
type worklist struct {
	tag        worklistTag
	head, tail LRGID
}

func (w *worklist) empty() bool { return w.head == lrgIDInvalid }

// pushTail appends id to the tail of the list (FIFO overall: lo-degree pops
// are tail-insert, head-pop, so newly-exposed trivially colorable LRGs are
// processed last for better color reuse).
func (w *worklist) pushTail(t *LRGTable, id LRGID) {
	lr := t.GetRaw(id)
	lr.onList = w.tag
	lr.Prev, lr.Next = w.tail, lrgIDInvalid
	if w.tail != lrgIDInvalid {
		t.GetRaw(w.tail).Next = id
	} else {
		w.head = id
	}
	w.tail = id
}

// popHead removes and returns the head of the list, or (0, false) if empty.
func (w *worklist) popHead(t *LRGTable) (LRGID, bool) {
	if w.head == lrgIDInvalid {
		return 0, false
	}
	id := w.head
	lr := t.GetRaw(id)
	w.head = lr.Next
	if w.head != lrgIDInvalid {
		t.GetRaw(w.head).Prev = lrgIDInvalid
	} else {
		w.tail = lrgIDInvalid
	}
	lr.Prev, lr.Next, lr.onList = lrgIDInvalid, lrgIDInvalid, onNone
	return id, true
}

// remove splices id out of the list, wherever it sits.
func (w *worklist) remove(t *LRGTable, id LRGID) {
	lr := t.GetRaw(id)
	if lr.onList != w.tag {
		return
	}
	if lr.Prev != lrgIDInvalid {
		t.GetRaw(lr.Prev).Next = lr.Next
	} else {
		w.head = lr.Next
	}
	if lr.Next != lrgIDInvalid {
		t.GetRaw(lr.Next).Prev = lr.Prev
	} else {
		w.tail = lr.Prev
	}
	lr.Prev, lr.Next, lr.onList = lrgIDInvalid, lrgIDInvalid, onNone
}

// Worklists partitions every still-in-the-graph LRG into lo_degree,
// lo_stk_degree, or hi_degree, and accumulates the simplified stack Select
// later walks in reverse.
//
// Grounded on JDK HotSpot's chaitin.cpp Simplify loop (Pass 1 of the
// allocator's central coloring step). These doubly linked worklists make
// every pop/migrate O(1): re-sorting all remaining LRGs by degree on each
// iteration would be quadratic in the number of simplify steps.
type Worklists struct {
	lo, loStk, hi worklist
	stack         []LRGID
}

// NewWorklists partitions every LRG in lrgs (id 1..lrgs.Len()-1, skipping
// already-unioned non-roots, MustSpill entries and entries with an empty
// mask) across
// the three lists according to degree and mask shape.
func NewWorklists(lrgs *LRGTable, g *IFG) *Worklists {
	w := &Worklists{
		lo:    worklist{tag: onLoDegree, head: lrgIDInvalid, tail: lrgIDInvalid},
		loStk: worklist{tag: onLoStkDegree, head: lrgIDInvalid, tail: lrgIDInvalid},
		hi:    worklist{tag: onHiDegree, head: lrgIDInvalid, tail: lrgIDInvalid},
	}
	for id := LRGID(1); int(id) < lrgs.Len(); id++ {
		if lrgs.Find(id) != id {
			continue
		}
		lr := lrgs.Get(id)
		if lr.MustSpill || lr.Mask.Empty() {
			continue
		}
		lr.SetDegree(g.Degree(id))
		w.classify(lrgs, g, id)
	}
	return w
}

func (w *Worklists) classify(lrgs *LRGTable, g *IFG, id LRGID) {
	lr := lrgs.Get(id)
	switch {
	case lr.LoDegree() && !lr.Mask.IsAllStack():
		w.lo.pushTail(lrgs, id)
	case lr.LoDegree():
		w.loStk.pushTail(lrgs, id)
	default:
		w.hi.pushTail(lrgs, id)
	}
}

// Run drives Simplify to completion: repeatedly pop a lo-degree LRG (or
// force a spill-candidate selection when only hi_degree remains), yank it
// from the IFG, push it onto the simplified stack, and migrate any neighbor
// whose post-yank degree now qualifies as lo-degree.
//
// Returns the number of LRGs forced onto at_risk spill-candidate status;
// the driver treats a spill candidate identically to an ordinary simplify
// pop, so this is purely informational (the actual spill outcome is decided
// later, in Select, when no color remains).
func (w *Worklists) Run(lrgs *LRGTable, g *IFG) int {
	spillCandidates := 0
	for {
		var id LRGID
		var ok bool
		if id, ok = w.lo.popHead(lrgs); !ok {
			if id, ok = w.loStk.popHead(lrgs); !ok {
				if w.hi.empty() {
					return spillCandidates
				}
				id = w.pickSpillCandidate(lrgs)
				w.hi.remove(lrgs, id)
				lrgs.Get(id).AtRisk = true
				spillCandidates++
			}
		}

		g.Yank(id)
		w.stack = append(w.stack, id)
		lr := lrgs.Get(id)

		g.Neighbors(id, func(n LRGID) {
			nl := lrgs.Get(n)
			nl.IncDegree(-1)
			if nl.onList == onHiDegree && nl.LoDegree() {
				w.hi.remove(lrgs, n)
				w.classify(lrgs, g, n)
				nl.WasLo = true
				if lr.AtRisk {
					nl.RiskBias = id
				}
			}
		})
	}
}

// pickSpillCandidate walks hi_degree choosing the LRG minimizing Score, with
// HotSpot's tie-breaks: larger area wins when the candidate was previously
// spilled twice; smaller cost wins when area is equal; bound LRGs preferred
// over unbound; was_spilled2 and zero-area penalties are already folded into
// Score itself.
func (w *Worklists) pickSpillCandidate(lrgs *LRGTable) LRGID {
	best := w.hi.head
	bestLR := lrgs.Get(best)
	bestScore := bestLR.Score()
	for id := lrgs.GetRaw(best).Next; id != lrgIDInvalid; id = lrgs.GetRaw(id).Next {
		lr := lrgs.Get(id)
		score := lr.Score()
		switch {
		case score < bestScore:
			best, bestLR, bestScore = id, lr, score
		case score == bestScore:
			if lr.WasSpilled2 && lr.Area > bestLR.Area {
				best, bestLR, bestScore = id, lr, score
			} else if lr.Area == bestLR.Area && lr.Cost < bestLR.Cost {
				best, bestLR, bestScore = id, lr, score
			} else if lr.IsBound() && !bestLR.IsBound() {
				best, bestLR, bestScore = id, lr, score
			}
		}
	}
	return best
}

// Stack returns the simplified stack, in the order LRGs were pushed (Select
// walks it in reverse: LIFO, last simplified is first selected).
func (w *Worklists) Stack() []LRGID {
	return w.stack
}
