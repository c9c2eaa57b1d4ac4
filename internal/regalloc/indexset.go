package regalloc

import "math/bits"

// IndexSet is a dense set of small non-negative integers (LRG ids, in every
// use in this package) supporting O(1) insert/remove/member and in-order
// iteration. It backs liveness live-in/live-out sets and IFG neighbor lists
// — the hottest containers in the allocator — so its
// words are recycled through an indexSetFreeList instead of being
// individually garbage collected.
//
// Generalized from a VRegID-keyed bitset into a general-purpose
// small-integer set, with free-list recycling of the backing word slices so
// the liveness solver's per-block sets don't churn the garbage collector.
type IndexSet struct {
	words []uint64
	free  *indexSetFreeList
}

const indexSetWordBits = 64

func wordIndex(i int) (word, bit int) {
	return i / indexSetWordBits, i % indexSetWordBits
}

// NewIndexSet returns an empty IndexSet drawing its backing storage from
// free.
func NewIndexSet(free *indexSetFreeList) IndexSet {
	return IndexSet{free: free}
}

func (s *IndexSet) ensure(word int) {
	if word < len(s.words) {
		return
	}
	if s.free != nil {
		if grown := s.free.get(word + 1); grown != nil {
			copy(grown, s.words)
			s.words = grown
			return
		}
	}
	grown := make([]uint64, word+1)
	copy(grown, s.words)
	s.words = grown
}

// Add inserts i and reports whether it was not already present.
func (s *IndexSet) Add(i int) bool {
	w, b := wordIndex(i)
	s.ensure(w)
	old := s.words[w]
	s.words[w] = old | (1 << uint(b))
	return old&(1<<uint(b)) == 0
}

// Remove deletes i and reports whether it was present.
func (s *IndexSet) Remove(i int) bool {
	w, b := wordIndex(i)
	if w >= len(s.words) {
		return false
	}
	old := s.words[w]
	mask := uint64(1) << uint(b)
	s.words[w] = old &^ mask
	return old&mask != 0
}

// Has reports whether i is a member of s.
func (s *IndexSet) Has(i int) bool {
	w, b := wordIndex(i)
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<uint(b)) != 0
}

// Empty reports whether s has no members.
func (s *IndexSet) Empty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Len returns the number of members.
func (s *IndexSet) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clear empties s, returning its backing storage to the free list for reuse.
func (s *IndexSet) Clear() {
	if s.free != nil && s.words != nil {
		for i := range s.words {
			s.words[i] = 0
		}
		s.free.put(s.words)
	}
	s.words = nil
}

// Iterate calls f once for each member, in ascending order.
func (s *IndexSet) Iterate(f func(i int)) {
	for wi, w := range s.words {
		base := wi * indexSetWordBits
		for w != 0 {
			b := bits.TrailingZeros64(w)
			f(base + b)
			w &= w - 1
		}
	}
}

// UnionInto unions src into s and reports whether s changed.
func (s *IndexSet) UnionInto(src *IndexSet) bool {
	changed := false
	if len(src.words) > len(s.words) {
		s.ensure(len(src.words) - 1)
	}
	for i, w := range src.words {
		if w == 0 {
			continue
		}
		old := s.words[i]
		merged := old | w
		if merged != old {
			s.words[i] = merged
			changed = true
		}
	}
	return changed
}

// SubtractInto removes every member of src from s.
func (s *IndexSet) SubtractInto(src *IndexSet) {
	n := len(s.words)
	if len(src.words) < n {
		n = len(src.words)
	}
	for i := 0; i < n; i++ {
		s.words[i] &^= src.words[i]
	}
}

// CloneWith returns an independent copy of s, drawing its storage from free.
func (s *IndexSet) CloneWith(free *indexSetFreeList) IndexSet {
	var out IndexSet
	out.free = free
	if len(s.words) == 0 {
		return out
	}
	out.ensure(len(s.words) - 1)
	copy(out.words, s.words)
	return out
}

// indexSetFreeList recycles the []uint64 backing arrays of IndexSets so the
// hot liveness/IFG loops do not allocate on every block visited.
type indexSetFreeList struct {
	buckets map[int][][]uint64
}

func newIndexSetFreeList() *indexSetFreeList {
	return &indexSetFreeList{buckets: make(map[int][][]uint64)}
}

// get returns a zeroed slice of length at least n words, or nil if none is
// available (the caller then allocates fresh).
func (f *indexSetFreeList) get(n int) []uint64 {
	if f == nil {
		return nil
	}
	bucket := f.buckets[n]
	if len(bucket) == 0 {
		return nil
	}
	s := bucket[len(bucket)-1]
	f.buckets[n] = bucket[:len(bucket)-1]
	return s
}

// put returns a zeroed slice to the free list, keyed by its length.
func (f *indexSetFreeList) put(s []uint64) {
	if f == nil || s == nil {
		return
	}
	n := len(s)
	f.buckets[n] = append(f.buckets[n], s)
}
