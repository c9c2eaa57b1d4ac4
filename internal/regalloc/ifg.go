package regalloc

// IFG is the interference graph: an undirected graph on LRGIDs. It is built
// first as a triangular adjacency list (each edge stored only under its
// higher-numbered endpoint, halving construction cost) and then squared up
// into a symmetric adjacency list before Simplify/Select need fast
// neighbor-of-either-endpoint queries.
//
// Grounded on JDK HotSpot's PhaseIFG (ifg.cpp/chaitin.hpp): add_edge,
// test_edge, SquareUp, Union, remove_node/re_insert (here Yank/Reinsert) and
// neighbor_cnt map directly; IndexSet here plays the role its _adjs triangular
// array and squared adjacency lists both played there.
type IFG struct {
	numLRG int
	square bool

	// adj[i] holds i's neighbors once squared; before SquareUp it holds only
	// the triangular half (neighbors with a smaller id than i).
	adj []IndexSet
	free *indexSetFreeList

	// yanked records LRGIDs temporarily removed from the graph by Simplify,
	// so Reinsert knows to restore their edges without re-adding duplicates.
	yanked map[LRGID]bool
}

// NewIFG returns an empty triangular IFG sized for numLRG live ranges.
func NewIFG(numLRG int, free *indexSetFreeList) *IFG {
	g := &IFG{
		numLRG: numLRG,
		adj:    make([]IndexSet, numLRG),
		free:   free,
		yanked: make(map[LRGID]bool),
	}
	for i := range g.adj {
		g.adj[i] = NewIndexSet(free)
	}
	return g
}

// AddEdge inserts an interference edge between a and b, stored only under
// the higher-numbered endpoint while the graph is still triangular.
// Self-edges are ignored. Returns whether a new edge was added (duplicate
// insertions are detected and counted once, as IndexSet already guarantees).
func (g *IFG) AddEdge(a, b LRGID) bool {
	if a == b {
		return false
	}
	if g.square {
		added := g.adj[a].Add(int(b))
		g.adj[b].Add(int(a))
		return added
	}
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	return g.adj[hi].Add(int(lo))
}

// TestEdge reports whether a and b interfere.
func (g *IFG) TestEdge(a, b LRGID) bool {
	if g.square {
		return g.adj[a].Has(int(b))
	}
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	return g.adj[hi].Has(int(lo))
}

// SquareUp converts the triangular adjacency list into a full symmetric one,
// so every node's neighbor set includes both its higher- and lower-numbered
// interferences.
func (g *IFG) SquareUp() {
	if g.square {
		return
	}
	for hi := range g.adj {
		g.adj[hi].Iterate(func(lo int) {
			g.adj[lo].Add(hi)
		})
	}
	g.square = true
}

// Neighbors calls f once for every live, non-yanked neighbor of id.
func (g *IFG) Neighbors(id LRGID, f func(LRGID)) {
	g.adj[id].Iterate(func(n int) {
		nid := LRGID(n)
		if !g.yanked[nid] {
			f(nid)
		}
	})
}

// Degree returns the number of live, non-yanked neighbors of id.
func (g *IFG) Degree(id LRGID) int {
	n := 0
	g.Neighbors(id, func(LRGID) { n++ })
	return n
}

// Yank temporarily removes id from the graph: every neighbor's adjacency
// still names id (so Reinsert is cheap and exact), but Neighbors/Degree skip
// it from both sides.
func (g *IFG) Yank(id LRGID) {
	g.yanked[id] = true
}

// Reinsert restores a previously yanked node.
func (g *IFG) Reinsert(id LRGID) {
	delete(g.yanked, id)
}

// IsYanked reports whether id is currently yanked.
func (g *IFG) IsYanked(id LRGID) bool {
	return g.yanked[id]
}

// Union merges b's adjacency into a's (used after coalescing unions two
// LRGIDs in the LRGTable): every neighbor of b becomes a neighbor of a,
// except a itself.
func (g *IFG) Union(a, b LRGID) {
	if !g.square {
		g.SquareUp()
	}
	g.adj[b].Iterate(func(n int) {
		if LRGID(n) == a {
			return
		}
		g.adj[a].Add(n)
		g.adj[n].Add(int(a))
		g.adj[n].Remove(int(b))
	})
	g.adj[b].Clear()
}

// buildResult summarizes one buildNeighbors pass.
type buildResult struct {
	// MustSpill counts bound LRGs whose mask became empty once bound-register
	// interferences were subtracted; the driver reacts to a non-zero count
	// by forcing a split.
	MustSpill int
}

// BuildNeighbors constructs interference edges from liveness. For every
// instruction, walk backward conceptually: a value r interferes with every
// other value simultaneously live across its def. physical selects between
// the virtual build (any simultaneous liveness is an edge; Allocate itself
// always uses the physical build) and the physical build (an
// edge is added only when the two LRGs' masks actually overlap, since
// disjoint register classes can never conflict).
//
// Grounded on JDK HotSpot's ifg.cpp, which builds the interference graph
// from liveness the same way, adjusted here onto this package's
// LRGTable/IFG types rather than HotSpot's node-pointer neighbor maps.
func BuildNeighbors(f Function, live *Liveness, lrgs *LRGTable, g *IFG, physical bool, free *indexSetFreeList) buildResult {
	var result buildResult

	for b := f.PostOrderBlockIteratorBegin(); b != nil; b = f.PostOrderBlockIteratorNext() {
		liveNow := live.LiveOut(b).CloneWith(free)

		var instrs []Instr
		for instr := b.InstrIteratorBegin(); instr != nil; instr = b.InstrIteratorNext() {
			instrs = append(instrs, instr)
		}

		for i := len(instrs) - 1; i >= 0; i-- {
			instr := instrs[i]
			uses := instr.Uses()

			// A copy's source must never interfere with its own destination:
			// that is exactly the edge coalescing needs absent to merge them.
			// Without this, a source that is still live past the copy (read
			// again further down the block) would otherwise show up in
			// liveNow and pick up a spurious edge here.
			copySrc := lrgIDInvalid
			if instr.IsCopy() && len(uses) > 0 {
				copySrc = live.lrgOf(uses[0])
			}

			twoAddrIdx, hasTwoAddr := instr.TwoAddressInput()

			for _, d := range instr.Defs() {
				did := live.lrgOf(d)
				if did == lrgIDInvalid || lrgs.Get(did).MustSpill {
					continue
				}
				liveNow.Iterate(func(n int) {
					nid := LRGID(n)
					if nid == did || nid == copySrc {
						return
					}
					if !physical || regTypesCompatible(lrgs, did, nid) {
						if maybeInterfere(lrgs, did, nid, physical) {
							g.AddEdge(did, nid)
						}
					}
				})
				liveNow.Remove(int(did))

				// A two-address instruction clobbers its designated input
				// with the result, so the def must interfere with every
				// other input the same way a real copy-then-clobber would —
				// independent of whether that input is otherwise still live.
				if hasTwoAddr {
					for j, u := range uses {
						if j == twoAddrIdx {
							continue
						}
						uid := live.lrgOf(u)
						if uid == lrgIDInvalid || uid == did || lrgs.Get(uid).MustSpill {
							continue
						}
						if !physical || regTypesCompatible(lrgs, did, uid) {
							if maybeInterfere(lrgs, did, uid, physical) {
								g.AddEdge(did, uid)
							}
						}
					}
				}
			}
			if !instr.IsPhi() {
				for _, u := range uses {
					uid := live.lrgOf(u)
					if uid != lrgIDInvalid && !lrgs.Get(uid).MustSpill {
						liveNow.Add(int(uid))
					}
				}
			}
		}
		liveNow.Clear()
	}

	// Edges were recorded in triangular form; make every edge visible from
	// both endpoints before the bound-register check and the later phases
	// that walk neighbors.
	g.SquareUp()

	if physical {
		for id := LRGID(1); int(id) < lrgs.Len(); id++ {
			if lrgs.Find(id) != id {
				continue
			}
			lr := lrgs.Get(id)
			if !lr.IsBound() || lr.Mask.Empty() {
				continue
			}
			mask := lr.Mask
			g.Neighbors(id, func(n LRGID) {
				nlr := lrgs.Get(n)
				if nlr.IsBound() {
					mask.SUBTRACT(nlr.Mask)
				}
			})
			if mask.Empty() {
				lr.MustSpill = true
				result.MustSpill++
			}
		}
	}

	return result
}

func regTypesCompatible(lrgs *LRGTable, a, b LRGID) bool {
	la, lb := lrgs.Get(a), lrgs.Get(b)
	return la.IsFloat == lb.IsFloat
}

// maybeInterfere decides whether two simultaneously-live LRGs actually get
// an edge: unconditional in the virtual build, conditional on mask overlap
// in the physical build (non-overlapping register classes cannot conflict).
func maybeInterfere(lrgs *LRGTable, a, b LRGID, physical bool) bool {
	if !physical {
		return true
	}
	la, lb := lrgs.Get(a), lrgs.Get(b)
	return Intersects(la.Mask, lb.Mask)
}
