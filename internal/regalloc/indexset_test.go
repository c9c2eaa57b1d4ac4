package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexSet_AddHasRemove(t *testing.T) {
	var s IndexSet
	require.True(t, s.Empty())

	require.True(t, s.Add(3))
	require.False(t, s.Add(3))
	require.True(t, s.Has(3))
	require.False(t, s.Has(4))

	require.True(t, s.Add(130))
	require.True(t, s.Has(130))
	require.Equal(t, 2, s.Len())

	require.True(t, s.Remove(3))
	require.False(t, s.Remove(3))
	require.False(t, s.Has(3))
	require.Equal(t, 1, s.Len())
}

func TestIndexSet_EmptyIterationProducesNothing(t *testing.T) {
	var s IndexSet
	count := 0
	s.Iterate(func(int) { count++ })
	require.Equal(t, 0, count)
}

func TestIndexSet_Iterate_Ascending(t *testing.T) {
	var s IndexSet
	for _, i := range []int{200, 5, 64, 0, 63} {
		s.Add(i)
	}
	var got []int
	s.Iterate(func(i int) { got = append(got, i) })
	require.Equal(t, []int{0, 5, 63, 64, 200}, got)
}

func TestIndexSet_UnionSubtract(t *testing.T) {
	var a, b IndexSet
	a.Add(1)
	a.Add(2)
	b.Add(2)
	b.Add(3)

	changed := a.UnionInto(&b)
	require.True(t, changed)
	require.True(t, a.Has(1))
	require.True(t, a.Has(2))
	require.True(t, a.Has(3))

	require.False(t, a.UnionInto(&b))

	a.SubtractInto(&b)
	require.True(t, a.Has(1))
	require.False(t, a.Has(2))
	require.False(t, a.Has(3))
}

func TestIndexSet_FreeListRecycles(t *testing.T) {
	free := newIndexSetFreeList()
	s := NewIndexSet(free)
	s.Add(5)
	s.Clear()
	require.Len(t, free.buckets[1], 1)

	s2 := NewIndexSet(free)
	s2.Add(5)
	require.True(t, s2.Has(5))
	require.Empty(t, free.buckets[1])
}

func TestIndexSet_CloneIsIndependent(t *testing.T) {
	var a IndexSet
	a.Add(1)
	b := a.CloneWith(nil)
	b.Add(2)
	require.False(t, a.Has(2))
	require.True(t, b.Has(1))
	require.True(t, b.Has(2))
}
