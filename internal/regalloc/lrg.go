package regalloc

import "github.com/regalloc/chaitin/internal/debugapi"

// LRGID names a live range within a single compilation's LRG table. Id 0 is
// reserved for unallocatable nodes (constants folded away, control, etc);
// real live ranges start at 1.
type LRGID uint32

// lrgIDInvalid marks the absence of an LRG (an empty risk_bias/copy_bias, or
// a doubly-linked worklist terminator).
const lrgIDInvalid LRGID = 0

// LRG is a live-range descriptor: the allocator's unit of color assignment.
// Every value produced by a node that needs a register is assigned an LRGID
// at de-SSA time, and from then on the allocator works purely in terms of
// LRGs, not individual nodes.
//
// Grounded field-for-field on JDK HotSpot's LRG (chaitin.hpp), generalized
// off the fixed node-graph representation and onto the abstract Function
// interface this package already exposes.
type LRG struct {
	// Mask is the current set of physical registers (including stack slots,
	// through AllStack) this live range may legally occupy.
	Mask RegMask

	// Cost and Area feed the spill score. Allocate seeds both with the
	// unweighted count of the range's defs and uses; no execution-frequency
	// weighting is applied.
	Cost, Area float64

	// Def is the VReg this live range names; for a multidef LRG it is the
	// first def encountered.
	Def VReg

	RiskBias, CopyBias LRGID

	// Prev/Next thread this LRG onto exactly one of the lo_degree,
	// lo_stk_degree, or hi_degree doubly linked worklists during
	// Simplify/Select. Index-based rather than pointer-based so the table
	// can live in a flat, arena-friendly slice.
	Prev, Next LRGID
	// onList records which worklist (if any) currently threads this LRG, so
	// migrating it (e.g. hi_degree -> lo_degree as a neighbor is yanked)
	// never has to search.
	onList worklistTag

	EffDegree        int
	DegreeValid      bool
	maskSize         int
	MaskSizeValid    bool
	NumRegs          int
	ScalableRegSlots int
	RegPressure      int

	Reg RealReg

	IsOop           bool
	IsFloat         bool
	IsVector        bool
	IsScalable      bool
	WasSpilled1     bool
	WasSpilled2     bool
	IsBoundFlag     bool
	DirectConflict  bool
	MustSpill       bool
	FatProj         bool
	WasLo           bool
	HasCopy         bool
	AtRisk          bool
	SingleDef       bool
	MultiDef        bool
}

// degreesOfFreedom returns MaskSize - NumRegs, HotSpot's measure of how much
// slack a live range's mask has beyond the registers it actually needs.
func (l *LRG) degreesOfFreedom() int {
	return l.MaskSize() - l.NumRegs
}

// MaskSize returns the number of hardware registers the mask currently
// names, recomputing and caching it if stale.
func (l *LRG) MaskSize() int {
	if !l.MaskSizeValid {
		l.maskSize = l.Mask.Size()
		l.MaskSizeValid = true
	}
	return l.maskSize
}

// InvalidateMaskSize marks the cached mask size stale; called whenever Mask
// is mutated.
func (l *LRG) InvalidateMaskSize() {
	l.MaskSizeValid = false
}

// Degree returns the cached effective IFG degree.
func (l *LRG) Degree() int {
	return l.EffDegree
}

// SetDegree overwrites the cached effective degree and marks it valid.
func (l *LRG) SetDegree(d int) {
	l.EffDegree = d
	l.DegreeValid = true
}

// IncDegree bumps the cached effective degree by delta.
func (l *LRG) IncDegree(delta int) {
	l.EffDegree += delta
}

// LoDegree reports whether this LRG qualifies for the lo_degree or
// lo_stk_degree worklist: its degree does not exceed its degrees of freedom.
func (l *LRG) LoDegree() bool {
	return l.EffDegree <= l.degreesOfFreedom()
}

// JustLoDegree reports whether the LRG is at exactly the boundary: its
// degree equals its degrees of freedom.
func (l *LRG) JustLoDegree() bool {
	return l.EffDegree == l.degreesOfFreedom()
}

// IsBound reports whether the mask has collapsed to effectively one hardware
// register choice.
func (l *LRG) IsBound() bool {
	return l.IsBoundFlag || l.Mask.IsBound()
}

// NotFree reports whether the LRG has no slack at all: mask size equals the
// number of registers it needs.
func (l *LRG) NotFree() bool {
	return l.degreesOfFreedom() <= 0
}

// RegisterCostAreaRatio weights the Area term of the spill score; HotSpot
// exposes this as a tunable, defaulted here to its usual value.
const RegisterCostAreaRatio = 16384.0

// Score computes the spill-candidate ranking: lower means a better spill
// candidate. Grounded on chaitin.cpp's LRG::score, including its tie-break
// biases for previously-spilled and zero-area live ranges.
func (l *LRG) Score() float64 {
	s := l.Cost - l.Area*RegisterCostAreaRatio/65536.0
	if l.WasSpilled2 {
		s += 1e30
	}
	if l.Area == 0 {
		s += 1e35
	}
	return s
}

// MarkSpilled records that this live range has been chosen as a spill
// candidate, promoting WasSpilled1 to WasSpilled2 on a second occurrence so
// Score's was-spilled-twice penalty only engages once a live range has
// already failed to color once before.
func (l *LRG) MarkSpilled() {
	if l.WasSpilled1 {
		l.WasSpilled2 = true
	} else {
		l.WasSpilled1 = true
	}
}

// LRGTable is the arena-backed table of live-range descriptors, indexed by
// LRGID. Entries are never removed, only unioned away (their Mask cleared
// and Def nulled) by the union-find: a live range is destroyed logically
// when Union redirects it, but its record stays in the table so existing
// LRGIDs (including ones still sitting in a worklist mid-traversal) keep
// resolving to a valid pointer.
//
// Backed by a debugapi.Pool rather than a plain growable slice so that a
// page is never copied as the table grows (LRG is not a small struct, and a
// typical function can allocate thousands of them across split/retry
// rounds).
type LRGTable struct {
	pool debugapi.Pool[LRG]
	uf   *unionFind
}

// NewLRGTable returns an empty table with id 0 reserved as the unallocatable
// sentinel entry.
func NewLRGTable() *LRGTable {
	t := &LRGTable{pool: debugapi.NewPool[LRG](), uf: newUnionFind(1)}
	t.pool.Allocate() // reserve id 0
	return t
}

// New allocates a fresh LRGID and returns a pointer to its zero-valued entry.
func (t *LRGTable) New() (LRGID, *LRG) {
	lr := t.pool.Allocate()
	id := LRGID(t.pool.Allocated() - 1)
	t.uf.extend(t.pool.Allocated())
	return id, lr
}

// Len returns the number of LRGIDs allocated so far, including id 0.
func (t *LRGTable) Len() int {
	return t.pool.Allocated()
}

// Find resolves id through the union-find, returning the representative id
// that currently owns the live range named by id.
func (t *LRGTable) Find(id LRGID) LRGID {
	return LRGID(t.uf.find(uint32(id)))
}

// Get returns the LRG entry for id's representative.
func (t *LRGTable) Get(id LRGID) *LRG {
	return t.pool.View(int(t.Find(id)))
}

// GetRaw returns the LRG entry at id without resolving through the
// union-find; used only by code that is itself maintaining the union-find
// (union, and table iteration that must see every root exactly once).
func (t *LRGTable) GetRaw(id LRGID) *LRG {
	return t.pool.View(int(id))
}

// Union merges the live ranges named by a and b: the surviving entry keeps
// the sum of Cost, the max of Area, and the intersection of Mask (callers
// that need a different mask, like conservative coalescing, overwrite the
// survivor's Mask after calling Union). Returns the surviving id.
func (t *LRGTable) Union(a, b LRGID) LRGID {
	ra, rb := t.Find(a), t.Find(b)
	if ra == rb {
		return ra
	}
	survivor := LRGID(t.uf.union(uint32(ra), uint32(rb)))
	var dead LRGID
	if survivor == ra {
		dead = rb
	} else {
		dead = ra
	}
	keep, drop := t.GetRaw(survivor), t.GetRaw(dead)
	keep.Cost += drop.Cost
	if drop.Area > keep.Area {
		keep.Area = drop.Area
	}
	keep.Mask.AND(drop.Mask)
	keep.InvalidateMaskSize()
	keep.HasCopy = keep.HasCopy || drop.HasCopy
	drop.Mask.Clear()
	drop.Def = VRegInvalid
	return survivor
}

// Reset empties the table back to just the id-0 sentinel, reusing the
// pool's already-allocated pages.
func (t *LRGTable) Reset() {
	t.pool.Reset()
	t.pool.Allocate()
	t.uf.reset(1)
}

// Mark captures the table's current allocation state, for a later Release
// to roll back to (e.g. discarding the LRGs a failed coloring attempt
// created before retrying after Split).
type Mark struct {
	pool   debugapi.Mark
	uf     int
	parent []uint32
	saved  []LRG
}

// Mark returns a checkpoint of the table's current state.
func (t *LRGTable) Mark() Mark {
	saved := make([]LRG, t.pool.Allocated())
	for i := range saved {
		saved[i] = *t.pool.View(i)
	}
	return Mark{pool: t.pool.Mark(), uf: t.pool.Allocated(), parent: append([]uint32(nil), t.uf.parent...), saved: saved}
}

// Release rolls the table back to a previously captured Mark, undoing the
// entries allocated and every union or field change made since.
func (t *LRGTable) Release(m Mark) {
	t.pool.Release(m.pool)
	t.uf.truncate(m.uf)
	copy(t.uf.parent, m.parent)
	for i := range m.saved {
		*t.pool.View(i) = m.saved[i]
	}
}
